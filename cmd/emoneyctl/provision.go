package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	pgStorage "emoney-core/internal/adapter/storage/postgres"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func hashPINCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-pin [pin]",
		Short: "Print the Argon2id hash of a 4-digit PIN (reads stdin when no argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := pinArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := service.NewArgon2HashService().Hash(pin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func pinArg(args []string, stdin io.Reader) (string, error) {
	var pin string
	if len(args) == 1 {
		pin = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read pin: %w", err)
		}
		pin = strings.TrimSpace(line)
	}
	if len(pin) != 4 || strings.Trim(pin, "0123456789") != "" {
		return "", fmt.Errorf("pin must be exactly 4 digits")
	}
	return pin, nil
}

// parseOwner accepts a user id or "system".
func parseOwner(s string) (uuid.UUID, error) {
	if strings.EqualFold(s, "system") {
		return domain.SystemActorID, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("owner must be a user id or \"system\": %w", err)
	}
	return id, nil
}

// newWallet builds a wallet to provision. Customer wallets always open
// empty: their money arrives through funding so liabilities stay backed.
func newWallet(owner uuid.UUID, kind domain.WalletKind, opening domain.Money, now time.Time) (*domain.Wallet, error) {
	switch kind {
	case domain.WalletKindCustomer:
		if opening != 0 {
			return nil, fmt.Errorf("customer wallets open with a zero balance; use a funding instead")
		}
	case domain.WalletKindTrust:
		if owner != domain.SystemActorID {
			return nil, fmt.Errorf("the trust wallet must be owned by the system actor")
		}
		if opening < 0 {
			return nil, fmt.Errorf("opening balance must not be negative")
		}
	default:
		return nil, fmt.Errorf("unknown wallet kind %q", kind)
	}
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   owner,
		Kind:      kind,
		Balance:   opening,
		Status:    domain.WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func walletCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Provision ledger wallets",
	}

	var (
		owner   string
		kind    string
		balance string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a wallet and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := parseOwner(owner)
			if err != nil {
				return err
			}
			opening, err := domain.ParseMoney(balance)
			if err != nil {
				return fmt.Errorf("--balance: %w", err)
			}
			w, err := newWallet(ownerID, domain.WalletKind(kind), opening, time.Now().UTC())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			_, pool, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgStorage.NewWalletRepo(pool).Create(ctx, w); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), w.ID)
			return nil
		},
	}
	create.Flags().StringVar(&owner, "owner", "", `owning user id, or "system" for the trust wallet`)
	create.Flags().StringVar(&kind, "kind", string(domain.WalletKindCustomer), "customer or trust")
	create.Flags().StringVar(&balance, "balance", "0", "opening balance (trust wallet only)")
	_ = create.MarkFlagRequired("owner")

	cmd.AddCommand(create)
	return cmd
}

func userCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Maintain the SCA view of identity-service users",
	}

	var (
		id      string
		pin     string
		sca     bool
		keepPIN bool
	)
	upsert := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update a user's SCA enrolment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("--id: %w", err)
			}

			ctx := cmd.Context()
			_, pool, _, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			users := pgStorage.NewUserRepo(pool)

			u := &domain.User{ID: userID, SCAEnabled: sca}
			switch {
			case pin != "":
				p, err := pinArg([]string{pin}, nil)
				if err != nil {
					return err
				}
				hash, err := service.NewArgon2HashService().Hash(p)
				if err != nil {
					return err
				}
				u.PINHash = &hash
			case keepPIN:
				existing, err := users.GetByID(ctx, userID)
				if err != nil {
					return err
				}
				if existing != nil {
					u.PINHash = existing.PINHash
				}
			}

			if err := users.Upsert(ctx, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s sca_enabled=%t pin_set=%t\n", u.ID, u.SCAEnabled, u.HasPIN())
			return nil
		},
	}
	upsert.Flags().StringVar(&id, "id", "", "user id from the identity service")
	upsert.Flags().StringVar(&pin, "pin", "", "new 4-digit PIN")
	upsert.Flags().BoolVar(&sca, "sca", true, "enable strong customer authentication")
	upsert.Flags().BoolVar(&keepPIN, "keep-pin", true, "keep the stored PIN when --pin is not given")
	_ = upsert.MarkFlagRequired("id")

	cmd.AddCommand(upsert)
	return cmd
}

func sessionTokenCmd(env *cliEnv) *cobra.Command {
	var (
		subject string
		role    string
	)
	cmd := &cobra.Command{
		Use:   "session-token",
		Short: "Mint a session JWT for operators and local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := env.load()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}
			userID, err := parseOwner(subject)
			if err != nil {
				return err
			}
			r := domain.Role(role)
			switch r {
			case domain.RoleCustomer, domain.RoleAdmin, domain.RoleSystem:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			token, expiresAt, err := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer).Generate(userID, r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "user", "", `user id, or "system"`)
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCustomer), "customer, admin or system")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
