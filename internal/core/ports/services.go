package ports

import (
	"context"
	"time"

	"emoney-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Infrastructure Ports ---

// AuthorizationTokenStore is the ephemeral SCA token store. Consume is a
// single atomic delete-and-return: of N concurrent callers at most one wins.
type AuthorizationTokenStore interface {
	Issue(ctx context.Context, token *domain.AuthorizationToken) error
	Peek(ctx context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error)
	Consume(ctx context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error)
}

// IdempotencyCache is the fast-path replay check in front of the transaction table.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached transaction JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HashService handles PIN hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// CredentialVerifier checks SCA factors. Both methods are pure predicates.
type CredentialVerifier interface {
	VerifyKnowledge(pin string, storedHash string) bool
	VerifyPossession(assertion string) bool
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// TokenService validates session JWTs minted by the identity service.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// AlertNotifier delivers discrepancy alerts to operations.
type AlertNotifier interface {
	SendDiscrepancyAlert(ctx context.Context, alert domain.DiscrepancyAlert) error
}

// AuditWriter is the best-effort audit sink. Append never blocks and never fails the caller.
type AuditWriter interface {
	Append(ctx context.Context, record *domain.AuditRecord)
}

// --- Service Ports (Business Logic) ---

// ScaService issues and inspects SCA authorization tokens.
type ScaService interface {
	Issue(ctx context.Context, req IssueTokenRequest) (*IssuedToken, error)
	Inspect(ctx context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error)
}

// IssueTokenRequest carries the factor being presented for step-up.
type IssueTokenRequest struct {
	UserID    uuid.UUID
	Method    domain.ScaMethod
	PIN       string
	Assertion string
	Context   map[string]string
}

// IssuedToken is returned to the client once; the token is never logged.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TransferService is the single money-moving primitive.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
}

// TransferRequest holds validated input for a transfer.
type TransferRequest struct {
	ActorID            uuid.UUID // must own FromAccount
	FromAccount        uuid.UUID
	ToAccount          uuid.UUID
	Amount             domain.Money
	IdempotencyKey     string
	AuthorizationToken string
	Kind               domain.TransactionKind
	Metadata           map[string]string

	// RequireAuthorization demands a token even when policy would not.
	RequireAuthorization bool

	// AuthorizingUser is whose token is consumed; zero means ActorID.
	AuthorizingUser uuid.UUID
}

// MoneyMovementService exposes the product features built on TransferService.
type MoneyMovementService interface {
	PayPeer(ctx context.Context, req PeerPaymentRequest) (*domain.Transaction, error)
	ContributeToGroup(ctx context.Context, req GroupContributionRequest) (*domain.Transaction, error)
	SettleSplitBill(ctx context.Context, req SplitBillSettlementRequest) (*domain.Transaction, error)
	RedeemVoucher(ctx context.Context, req VoucherRedemptionRequest) (*domain.Transaction, error)
	FundWallet(ctx context.Context, req FundingRequest) (*domain.Transaction, error)
}

type PeerPaymentRequest struct {
	ActorID            uuid.UUID
	FromWallet         uuid.UUID
	ToWallet           uuid.UUID
	Amount             domain.Money
	IdempotencyKey     string
	AuthorizationToken string
	Note               string
}

type GroupContributionRequest struct {
	ActorID            uuid.UUID
	GroupID            string
	FromWallet         uuid.UUID
	GroupWallet        uuid.UUID
	Amount             domain.Money
	IdempotencyKey     string
	AuthorizationToken string
}

type SplitBillSettlementRequest struct {
	ActorID            uuid.UUID
	BillID             string
	FromWallet         uuid.UUID
	CreatorWallet      uuid.UUID
	Amount             domain.Money
	IdempotencyKey     string
	AuthorizationToken string
}

// VoucherRedemptionRequest credits the user's wallet from the trust account.
// The voucher service has already validated the code and its face value.
type VoucherRedemptionRequest struct {
	UserID             uuid.UUID
	VoucherCode        string
	ToWallet           uuid.UUID
	Amount             domain.Money
	AuthorizationToken string
}

// FundingRequest credits a wallet after a custodian deposit has cleared.
type FundingRequest struct {
	DepositReference string
	ToWallet         uuid.UUID
	Amount           domain.Money
	RequestedBy      uuid.UUID
}

// ReconciliationService compares customer liabilities against the trust balance.
type ReconciliationService interface {
	Run(ctx context.Context, req RunReconciliationRequest) (*ReconciliationResult, error)
	Get(ctx context.Context, date time.Time) (*ReconciliationResult, error)
	List(ctx context.Context, from, to time.Time) ([]ReconciliationResult, error)
	ResolveDiscrepancy(ctx context.Context, req ResolveDiscrepancyRequest) (*ReconciliationResult, error)
}

type RunReconciliationRequest struct {
	Date                 time.Time
	ReportedTrustBalance domain.Money
	Notes                string
	ReconciledBy         uuid.UUID
}

type ResolveDiscrepancyRequest struct {
	Date       time.Time
	Notes      string
	ResolvedBy uuid.UUID
}

// ReconciliationResult is a snapshot plus derived figures.
type ReconciliationResult struct {
	Snapshot        domain.TrustAccountSnapshot
	CoveragePercent decimal.Decimal
}
