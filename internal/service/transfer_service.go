package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const failureRecordTimeout = 3 * time.Second

// Errors raised inside the storage transaction to abort it.
var (
	errSourceInsufficient = errors.New("source balance cannot cover amount")
	errAccountInactive    = errors.New("account inactive")
)

// TransferConfig holds the engine's policy knobs.
type TransferConfig struct {
	OperationTimeout time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RequireSCA       bool
	IdempotencyTTL   time.Duration
}

// TransferServiceImpl implements ports.TransferService. It is the only
// writer of wallet balances.
type TransferServiceImpl struct {
	transactor ports.Transactor
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	tokens     ports.AuthorizationTokenStore
	idempCache ports.IdempotencyCache
	audit      ports.AuditWriter
	cfg        TransferConfig
	log        zerolog.Logger

	now func() time.Time
}

// NewTransferService creates a new TransferServiceImpl. idempCache may be nil.
func NewTransferService(
	transactor ports.Transactor,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	tokens ports.AuthorizationTokenStore,
	idempCache ports.IdempotencyCache,
	audit ports.AuditWriter,
	cfg TransferConfig,
	log zerolog.Logger,
) *TransferServiceImpl {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 20 * time.Millisecond
	}
	return &TransferServiceImpl{
		transactor: transactor,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		tokens:     tokens,
		idempCache: idempCache,
		audit:      audit,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Transfer moves req.Amount from req.FromAccount to req.ToAccount as one
// atomic unit.
//
// A replayed idempotency key returns the recorded transaction. When the
// transfer fails after validation, the failed transaction is returned
// together with the error.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	req.IdempotencyKey = domain.NormalizeIdempotencyKey(req.IdempotencyKey)
	if req.Kind == "" {
		req.Kind = domain.TransactionKindTransfer
	}
	if err := validateTransfer(req); err != nil {
		return nil, err
	}

	log := s.log.With().
		Str("idempotency_key", req.IdempotencyKey).
		Str("actor_id", req.ActorID.String()).
		Logger()

	// Layer 1 + 2: replay from cache, then the transaction table.
	existing, err := s.lookup(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.replay(existing, req)
	}

	from, err := s.loadAccount(ctx, req.FromAccount)
	if err != nil {
		return nil, err
	}
	if from.OwnerID != req.ActorID {
		log.Warn().Str("from_account", req.FromAccount.String()).Msg("transfer from account not owned by actor")
		return nil, apperror.ErrAccountNotFoundOrInactive()
	}
	if _, err := s.loadAccount(ctx, req.ToAccount); err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, req, from); err != nil {
		s.auditTransfer(ctx, req, nil, domain.AuditOutcomeFailure, apperror.CodeOf(err))
		return nil, err
	}

	txn, err := s.applyWithRetry(ctx, req)
	if err != nil {
		return s.fail(ctx, req, err, log)
	}

	s.cache(ctx, txn)
	s.auditTransfer(ctx, req, txn, domain.AuditOutcomeSuccess, "")

	log.Info().
		Str("tx_id", txn.ID.String()).
		Str("from_account", txn.FromAccount.String()).
		Str("to_account", txn.ToAccount.String()).
		Str("amount", txn.Amount.String()).
		Str("kind", string(txn.Kind)).
		Msg("transfer completed")

	return txn, nil
}

func validateTransfer(req ports.TransferRequest) error {
	switch {
	case req.ActorID == uuid.Nil:
		return apperror.ErrAuthenticationRequired()
	case req.IdempotencyKey == "":
		return apperror.Validation("idempotency key is required")
	case len(req.IdempotencyKey) > domain.MaxIdempotencyKeyLength:
		return apperror.Validation(fmt.Sprintf("idempotency key must be at most %d characters", domain.MaxIdempotencyKeyLength))
	case !req.Amount.IsPositive():
		return apperror.ErrInvalidAmount()
	case req.FromAccount == uuid.Nil || req.ToAccount == uuid.Nil:
		return apperror.ErrAccountNotFoundOrInactive()
	case req.FromAccount == req.ToAccount:
		return apperror.Validation("source and destination accounts must differ")
	}
	return nil
}

// lookup finds a previously recorded attempt for key.
func (s *TransferServiceImpl) lookup(ctx context.Context, key string) (*domain.Transaction, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, domain.BuildIdempotencyCacheKey(key))
		if err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency cache check failed, falling through to DB")
		}
		if cached != nil {
			var txn domain.Transaction
			if err := json.Unmarshal(cached, &txn); err == nil {
				return &txn, nil
			}
			s.log.Warn().Str("idempotency_key", key).Msg("corrupt idempotency cache entry ignored")
		}
	}

	txn, err := s.txRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("idempotency lookup: %w", err))
	}
	return txn, nil
}

// replay returns a recorded attempt, refusing to reuse a key for a different transfer.
func (s *TransferServiceImpl) replay(existing *domain.Transaction, req ports.TransferRequest) (*domain.Transaction, error) {
	if existing.InitiatedBy != req.ActorID ||
		existing.FromAccount != req.FromAccount ||
		existing.ToAccount != req.ToAccount ||
		existing.Amount != req.Amount {
		return nil, apperror.ErrIdempotencyKeyReused()
	}

	s.log.Debug().
		Str("tx_id", existing.ID.String()).
		Str("idempotency_key", existing.IdempotencyKey).
		Str("status", string(existing.Status)).
		Msg("idempotent replay")

	if existing.Status == domain.TransactionStatusFailed {
		return existing, failureError(existing.FailureReason, nil)
	}
	return existing, nil
}

func (s *TransferServiceImpl) loadAccount(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil || !w.IsActive() {
		return nil, apperror.ErrAccountNotFoundOrInactive()
	}
	return w, nil
}

// authorize consumes the SCA token when policy requires one. The token is
// spent before any balance is touched.
func (s *TransferServiceImpl) authorize(ctx context.Context, req ports.TransferRequest, from *domain.Wallet) error {
	required := req.RequireAuthorization ||
		(s.cfg.RequireSCA && from.Kind == domain.WalletKindCustomer)
	if !required {
		return nil
	}
	if req.AuthorizationToken == "" {
		return apperror.ErrAuthenticationRequired()
	}

	holder := req.AuthorizingUser
	if holder == uuid.Nil {
		holder = req.ActorID
	}

	tok, err := s.tokens.Consume(ctx, holder, req.AuthorizationToken)
	if err != nil {
		if errors.Is(err, ports.ErrTokenInvalid) {
			return apperror.ErrTokenExpiredOrConsumed()
		}
		return apperror.ErrStorageUnavailable(fmt.Errorf("consume token: %w", err))
	}
	return matchTokenContext(tok, req)
}

// matchTokenContext enforces a transaction context bound at issuance.
func matchTokenContext(tok *domain.AuthorizationToken, req ports.TransferRequest) error {
	if v, ok := tok.Context[domain.ContextKeyAmount]; ok {
		amount, err := domain.ParseMoney(v)
		if err != nil || amount != req.Amount {
			return apperror.ErrTokenContextMismatch()
		}
	}
	if v, ok := tok.Context[domain.ContextKeyToAccount]; ok {
		to, err := uuid.Parse(v)
		if err != nil || to != req.ToAccount {
			return apperror.ErrTokenContextMismatch()
		}
	}
	return nil
}

func (s *TransferServiceImpl) applyWithRetry(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.cfg.RetryBackoff):
			}
			s.log.Debug().Int("attempt", attempt+1).Str("idempotency_key", req.IdempotencyKey).Msg("retrying transfer after conflict")
		}

		txn, err := s.apply(ctx, req)
		if err == nil || !errors.Is(err, ports.ErrConflict) {
			return txn, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// apply runs one attempt inside a storage transaction bounded by the
// operation timeout. Either every write commits or none does.
func (s *TransferServiceImpl) apply(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var result *domain.Transaction
	err := s.transactor.WithinTx(opCtx, func(txCtx context.Context) error {
		locked, err := s.walletRepo.LockForUpdate(txCtx, lockOrder(req.FromAccount, req.ToAccount))
		if err != nil {
			return fmt.Errorf("lock wallets: %w", err)
		}

		src, dst := locked[req.FromAccount], locked[req.ToAccount]
		if src == nil || dst == nil || !src.IsActive() || !dst.IsActive() {
			return errAccountInactive
		}
		if !src.CanCover(req.Amount) {
			return errSourceInsufficient
		}

		now := s.now().UTC()
		txn := &domain.Transaction{
			ID:             uuid.New(),
			IdempotencyKey: req.IdempotencyKey,
			FromAccount:    req.FromAccount,
			ToAccount:      req.ToAccount,
			Amount:         req.Amount,
			Kind:           req.Kind,
			Status:         domain.TransactionStatusCompleted,
			Metadata:       req.Metadata,
			InitiatedBy:    req.ActorID,
			CreatedAt:      now,
			CompletedAt:    &now,
		}
		if err := s.txRepo.Create(txCtx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := s.walletRepo.AdjustBalance(txCtx, req.FromAccount, -req.Amount); err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		if err := s.walletRepo.AdjustBalance(txCtx, req.ToAccount, req.Amount); err != nil {
			return fmt.Errorf("credit: %w", err)
		}

		result = txn
		return nil
	})
	if err != nil {
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	return result, nil
}

// lockOrder returns ids in ascending byte order so every transfer locks a
// pair of wallets in the same sequence.
func lockOrder(a, b uuid.UUID) []uuid.UUID {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return []uuid.UUID{a, b}
	}
	return []uuid.UUID{b, a}
}

// fail classifies err, records the failed attempt and returns it.
func (s *TransferServiceImpl) fail(ctx context.Context, req ports.TransferRequest, err error, log zerolog.Logger) (*domain.Transaction, error) {
	if errors.Is(err, ports.ErrDuplicateKey) {
		// A concurrent request with the same key won.
		return s.replayWinner(ctx, req)
	}

	reason := failureReason(err)
	log.Warn().Err(err).Str("reason", reason).Msg("transfer failed")

	// Exhausted conflicts are transient: the key stays unclaimed so the
	// caller can retry it with a fresh authorization token.
	if reason == domain.FailureConflict {
		s.auditTransfer(ctx, req, nil, domain.AuditOutcomeFailure, reason)
		return nil, failureError(reason, err)
	}

	failed, recErr := s.recordFailure(ctx, req, reason)
	if errors.Is(recErr, ports.ErrDuplicateKey) {
		return s.replayWinner(ctx, req)
	}
	if recErr != nil {
		log.Error().Err(recErr).Msg("failed to record failed transfer")
	}

	s.auditTransfer(ctx, req, failed, domain.AuditOutcomeFailure, reason)
	return failed, failureError(reason, err)
}

func (s *TransferServiceImpl) replayWinner(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	existing, err := s.txRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("idempotency lookup: %w", err))
	}
	if existing == nil {
		return nil, apperror.ErrConcurrentModification(errors.New("idempotency key claimed but not visible"))
	}
	return s.replay(existing, req)
}

// recordFailure persists the failed attempt outside the rolled-back
// transaction. It must survive a caller that has already gone away.
func (s *TransferServiceImpl) recordFailure(ctx context.Context, req ports.TransferRequest, reason string) (*domain.Transaction, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
	defer cancel()

	txn := &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		FromAccount:    req.FromAccount,
		ToAccount:      req.ToAccount,
		Amount:         req.Amount,
		Kind:           req.Kind,
		Status:         domain.TransactionStatusFailed,
		FailureReason:  reason,
		Metadata:       req.Metadata,
		InitiatedBy:    req.ActorID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.txRepo.Create(rctx, txn); err != nil {
		return txn, err
	}
	return txn, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errSourceInsufficient), errors.Is(err, ports.ErrBalanceConstraint):
		return domain.FailureInsufficientFunds
	case errors.Is(err, errAccountInactive):
		return domain.FailureAccountInactive
	case errors.Is(err, ports.ErrConflict):
		return domain.FailureConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.FailureTimeout
	default:
		return domain.FailureStorage
	}
}

// failureError maps a recorded failure reason onto the caller-facing error.
func failureError(reason string, cause error) error {
	switch reason {
	case domain.FailureInsufficientFunds:
		return apperror.ErrInsufficientFunds()
	case domain.FailureAccountInactive:
		return apperror.ErrAccountNotFoundOrInactive()
	case domain.FailureConflict:
		return apperror.ErrConcurrentModification(cause)
	case domain.FailureTimeout:
		return apperror.ErrOperationTimeout(cause)
	default:
		return apperror.ErrStorageUnavailable(cause)
	}
}

// cache stores a completed transfer for fast replay (best-effort).
func (s *TransferServiceImpl) cache(ctx context.Context, txn *domain.Transaction) {
	if s.idempCache == nil {
		return
	}
	b, err := json.Marshal(txn)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, domain.BuildIdempotencyCacheKey(txn.IdempotencyKey), b, s.cfg.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", txn.IdempotencyKey).Msg("failed to cache transfer result")
	}
}

func (s *TransferServiceImpl) auditTransfer(ctx context.Context, req ports.TransferRequest, txn *domain.Transaction, outcome domain.AuditOutcome, reason string) {
	details := map[string]string{
		"from_account":    req.FromAccount.String(),
		"to_account":      req.ToAccount.String(),
		"amount":          req.Amount.String(),
		"kind":            string(req.Kind),
		"idempotency_key": req.IdempotencyKey,
	}
	if reason != "" {
		details["reason"] = reason
	}
	resourceID := ""
	if txn != nil {
		resourceID = txn.ID.String()
	}
	s.audit.Append(ctx, &domain.AuditRecord{
		Action:       domain.AuditActionTransfer,
		ActorID:      req.ActorID,
		ResourceType: "transaction",
		ResourceID:   resourceID,
		Outcome:      outcome,
		Details:      details,
	})
}
