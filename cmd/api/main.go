package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emoney-core/config"
	httpHandler "emoney-core/internal/adapter/http/handler"
	memStorage "emoney-core/internal/adapter/storage/memory"
	pgStorage "emoney-core/internal/adapter/storage/postgres"
	redisStorage "emoney-core/internal/adapter/storage/redis"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/internal/service"
	"emoney-core/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tokenSweepInterval is how often the in-memory token store drops expired tokens.
const tokenSweepInterval = time.Minute

// backend is the storage wiring selected by storage.driver.
type backend struct {
	transactor ports.Transactor
	users      ports.UserRepository
	wallets    ports.WalletRepository
	txns       ports.TransactionRepository
	snapshots  ports.SnapshotRepository
	audits     ports.AuditRepository
	tokens     ports.AuthorizationTokenStore
	idemCache  ports.IdempotencyCache
	health     []ports.HealthChecker
	close      func()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting e-money core")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var be *backend
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		be = openMemory(ctx, log)
	default:
		be, err = openPostgres(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open storage")
		}
	}
	defer be.close()

	trustID, err := trustAccount(ctx, cfg, be, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Trust account unavailable")
	}

	// Core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(be.audits, cfg.Audit.Workers, cfg.Audit.QueueSize, logger.Component(log, "audit"))

	alertLog := logger.Component(log, "alerts")
	var alerts ports.AlertNotifier = service.NewLogAlerter(alertLog)
	if cfg.Alerts.WebhookURL != "" {
		alerts = service.NewWebhookAlerter(
			cfg.Alerts.WebhookURL,
			cfg.Alerts.Secret,
			service.NewHMACSignatureService(),
			&http.Client{Timeout: cfg.Alerts.Timeout},
			cfg.Alerts.MaxRetries,
			alertLog,
		)
	}

	// Business services
	scaSvc := service.NewScaService(be.users, service.NewCredentialVerifier(hashSvc), be.tokens, auditSvc, logger.Component(log, "sca"))
	transferSvc := service.NewTransferService(
		be.transactor,
		be.wallets,
		be.txns,
		be.tokens,
		be.idemCache,
		auditSvc,
		service.TransferConfig{
			OperationTimeout: cfg.Ledger.OperationTimeout,
			MaxRetries:       cfg.Ledger.MaxRetries,
			RequireSCA:       cfg.Ledger.RequireSCAForTransfers,
			IdempotencyTTL:   cfg.Ledger.IdempotencyCacheTTL,
		},
		logger.Component(log, "ledger"),
	)
	movementSvc := service.NewMoneyMovementService(transferSvc, be.wallets, trustID)
	reconSvc := service.NewReconciliationService(be.snapshots, be.wallets, alerts, auditSvc, cfg.Alerts.Timeout, logger.Component(log, "reconciliation"))

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ScaSvc:            scaSvc,
		TransferSvc:       transferSvc,
		MovementSvc:       movementSvc,
		ReconciliationSvc: reconSvc,
		TokenSvc:          tokenSvc,
		HealthCheckers:    be.health,
		Currency:          cfg.Ledger.Currency,
		Logger:            logger.Component(log, "http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Alerts still in flight are delivered before the audit queue drains.
	if err := reconSvc.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending discrepancy alerts abandoned")
	}
	if err := auditSvc.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Audit queue not fully drained")
	}

	log.Info().Msg("Server exited")
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info().Msg("Redis connected")

	return &backend{
		transactor: pgStorage.NewTransactor(pool, log),
		users:      pgStorage.NewUserRepo(pool),
		wallets:    pgStorage.NewWalletRepo(pool),
		txns:       pgStorage.NewTransactionRepo(pool),
		snapshots:  pgStorage.NewSnapshotRepo(pool),
		audits:     pgStorage.NewAuditRepo(pool),
		tokens:     redisStorage.NewScaTokenStore(rdb),
		idemCache:  redisStorage.NewIdempotencyCache(rdb),
		health:     []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		close: func() {
			_ = rdb.Close()
			pool.Close()
		},
	}, nil
}

func openMemory(ctx context.Context, log zerolog.Logger) *backend {
	log.Warn().Msg("In-memory storage: state is lost on exit and cannot be shared between instances")

	store := memStorage.NewStore()
	tokens := memStorage.NewTokenStore()
	go tokens.RunSweeper(ctx, tokenSweepInterval, log)

	return &backend{
		transactor: memStorage.NewTransactor(store),
		users:      memStorage.NewUserRepo(store),
		wallets:    memStorage.NewWalletRepo(store),
		txns:       memStorage.NewTransactionRepo(store),
		snapshots:  memStorage.NewSnapshotRepo(store),
		audits:     memStorage.NewAuditRepo(store),
		tokens:     tokens,
		idemCache:  memStorage.NewIdempotencyCache(),
		close:      func() {},
	}
}

// trustAccount resolves the configured trust wallet. The memory backend
// opens an empty one when none is configured.
func trustAccount(ctx context.Context, cfg *config.Config, be *backend, log zerolog.Logger) (uuid.UUID, error) {
	if cfg.Ledger.TrustAccountID == "" {
		if cfg.Storage.Driver != config.DriverMemory {
			return uuid.Nil, errors.New("ledger.trust_account_id is required")
		}
		now := time.Now().UTC()
		w := &domain.Wallet{
			ID:        uuid.New(),
			OwnerID:   domain.SystemActorID,
			Kind:      domain.WalletKindTrust,
			Status:    domain.WalletStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := be.wallets.Create(ctx, w); err != nil {
			return uuid.Nil, err
		}
		log.Info().Str("trust_account_id", w.ID.String()).Msg("Opened in-memory trust account")
		return w.ID, nil
	}

	id, err := uuid.Parse(cfg.Ledger.TrustAccountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger.trust_account_id: %w", err)
	}
	w, err := be.wallets.GetByID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if w == nil || w.Kind != domain.WalletKindTrust || w.OwnerID != domain.SystemActorID {
		return uuid.Nil, fmt.Errorf("wallet %s is not the system trust account", id)
	}
	return id, nil
}
