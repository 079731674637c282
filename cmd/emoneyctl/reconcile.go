package main

import (
	"fmt"
	"net/http"
	"time"

	pgStorage "emoney-core/internal/adapter/storage/postgres"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func reconcileCmd(env *cliEnv) *cobra.Command {
	var (
		date    string
		balance string
		notes   string
		by      string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile customer liabilities against the reported trust balance",
		Long: `Runs the reconciliation for one calendar date. Re-running a date replaces
its snapshot. Intended to be triggered by an external scheduler after the
custodian's end-of-day statement is available.

Examples:
  emoneyctl reconcile --date 2026-03-01 --balance 1250000.00
  emoneyctl reconcile --balance 1250000.00 --notes "statement #4411"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := domain.NormalizeDate(time.Now().AddDate(0, 0, -1))
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				day = d
			}
			reported, err := domain.ParseMoney(balance)
			if err != nil {
				return fmt.Errorf("--balance: %w", err)
			}
			if reported < 0 {
				return fmt.Errorf("--balance must not be negative")
			}
			actor := domain.SystemActorID
			if by != "" {
				if actor, err = uuid.Parse(by); err != nil {
					return fmt.Errorf("--by: %w", err)
				}
			}

			ctx := cmd.Context()
			cfg, pool, log, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			audit := service.NewAuditService(pgStorage.NewAuditRepo(pool), 1, cfg.Audit.QueueSize, log)
			var alerts ports.AlertNotifier = service.NewLogAlerter(log)
			if cfg.Alerts.WebhookURL != "" {
				alerts = service.NewWebhookAlerter(
					cfg.Alerts.WebhookURL,
					cfg.Alerts.Secret,
					service.NewHMACSignatureService(),
					&http.Client{Timeout: cfg.Alerts.Timeout},
					cfg.Alerts.MaxRetries,
					log,
				)
			}
			recon := service.NewReconciliationService(
				pgStorage.NewSnapshotRepo(pool),
				pgStorage.NewWalletRepo(pool),
				alerts,
				audit,
				cfg.Alerts.Timeout,
				log,
			)

			result, runErr := recon.Run(ctx, ports.RunReconciliationRequest{
				Date:                 day,
				ReportedTrustBalance: reported,
				Notes:                notes,
				ReconciledBy:         actor,
			})

			// The process exits right after; let the alert and audit record land first.
			if err := recon.Wait(ctx); err != nil {
				log.Warn().Err(err).Msg("discrepancy alert still pending at exit")
			}
			if err := audit.Close(ctx); err != nil {
				log.Warn().Err(err).Msg("audit queue not drained")
			}
			if runErr != nil {
				return runErr
			}

			s := result.Snapshot
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s  status=%s  trust=%s  liabilities=%s  discrepancy=%s  coverage=%s%%  wallets=%d\n",
				s.Date.Format(domain.DateLayout), s.Status, s.ClosingBalance, s.Liabilities,
				s.Discrepancy, result.CoveragePercent.StringFixed(2), s.ActiveWallets)
			if s.Status == domain.SnapshotStatusDiscrepancy {
				return fmt.Errorf("discrepancy of %s on %s", s.Discrepancy, s.Date.Format(domain.DateLayout))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "calendar date YYYY-MM-DD (default yesterday, UTC)")
	cmd.Flags().StringVar(&balance, "balance", "", "trust account balance reported by the custodian, e.g. 1250000.00")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes stored on the snapshot")
	cmd.Flags().StringVar(&by, "by", "", "operator user id (default the system actor)")
	_ = cmd.MarkFlagRequired("balance")

	return cmd
}
