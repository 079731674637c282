package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emoney-core/internal/adapter/http/handler"
	"emoney-core/internal/adapter/storage/memory"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopAlerter struct{}

func (nopAlerter) SendDiscrepancyAlert(context.Context, domain.DiscrepancyAlert) error { return nil }

type apiFixture struct {
	router  *gin.Engine
	jwt     *service.JWTTokenService
	wallets *memory.WalletRepo
	users   *memory.UserRepo
	hasher  *service.Argon2HashService
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	store := memory.NewStore()
	tokens := memory.NewTokenStore()
	f := &apiFixture{
		jwt:     service.NewJWTTokenService("router-test-secret-0123456789abcdef", time.Hour, "emoney-core"),
		wallets: memory.NewWalletRepo(store),
		users:   memory.NewUserRepo(store),
		hasher:  service.NewArgon2HashServiceWithParams(service.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8}),
	}

	audit := service.NewAuditService(memory.NewAuditRepo(store), 1, 64, log)
	t.Cleanup(func() { _ = audit.Close(context.Background()) })

	transfers := service.NewTransferService(
		memory.NewTransactor(store), f.wallets, memory.NewTransactionRepo(store), tokens,
		memory.NewIdempotencyCache(), audit,
		service.TransferConfig{
			OperationTimeout: 2 * time.Second,
			MaxRetries:       2,
			RetryBackoff:     time.Millisecond,
			RequireSCA:       true,
			IdempotencyTTL:   time.Hour,
		},
		log,
	)
	trust := f.wallet(t, domain.SystemActorID, domain.WalletKindTrust, 100000000)
	recon := service.NewReconciliationService(memory.NewSnapshotRepo(store), f.wallets, nopAlerter{}, audit, time.Second, log)

	f.router = handler.SetupRouter(handler.RouterDeps{
		ScaSvc:            service.NewScaService(f.users, service.NewCredentialVerifier(f.hasher), tokens, audit, log),
		TransferSvc:       transfers,
		MovementSvc:       service.NewMoneyMovementService(transfers, f.wallets, trust.ID),
		ReconciliationSvc: recon,
		TokenSvc:          f.jwt,
		Currency:          "NAD",
		Logger:            log,
	})
	return f
}

func (f *apiFixture) wallet(t *testing.T, owner uuid.UUID, kind domain.WalletKind, balance domain.Money) *domain.Wallet {
	t.Helper()
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID: uuid.New(), OwnerID: owner, Kind: kind, Balance: balance,
		Status: domain.WalletStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.wallets.Create(context.Background(), w))
	return w
}

func (f *apiFixture) customerWithPIN(t *testing.T, pin string) uuid.UUID {
	t.Helper()
	hash, err := f.hasher.Hash(pin)
	require.NoError(t, err)
	id := uuid.New()
	require.NoError(t, f.users.Upsert(context.Background(), &domain.User{ID: id, PINHash: &hash, SCAEnabled: true}))
	return id
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, userID uuid.UUID, role domain.Role, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		token, _, err := f.jwt.Generate(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return d
}

func TestRouter_TransferWithSCAToken(t *testing.T) {
	f := newAPI(t)
	alice := f.customerWithPIN(t, "4321")
	from := f.wallet(t, alice, domain.WalletKindCustomer, 10000)
	to := f.wallet(t, uuid.New(), domain.WalletKindCustomer, 0)

	w := f.do(t, http.MethodPost, "/api/v1/sca/verify", map[string]any{
		"method":  "pin",
		"pin":     "4321",
		"context": map[string]string{domain.ContextKeyAmount: "40.00", domain.ContextKeyToAccount: to.ID.String()},
	}, alice, domain.RoleCustomer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := data(t, w)["authorization_token"].(string)
	require.NotEmpty(t, token)

	w = f.do(t, http.MethodGet, "/api/v1/sca/tokens/"+token, nil, alice, domain.RoleCustomer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := map[string]any{
		"from_wallet_id":      from.ID.String(),
		"to_wallet_id":        to.ID.String(),
		"amount":              "40.00",
		"authorization_token": token,
	}
	headers := map[string]string{handler.HeaderIdempotencyKey: "alice-1"}

	w = f.do(t, http.MethodPost, "/api/v1/transfers", body, alice, domain.RoleCustomer, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := data(t, w)
	assert.Equal(t, "completed", first["status"])

	// Replay returns the same transaction without spending the token again.
	w = f.do(t, http.MethodPost, "/api/v1/transfers", body, alice, domain.RoleCustomer, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, first["id"], data(t, w)["id"])

	// A new key with the spent token is refused.
	w = f.do(t, http.MethodPost, "/api/v1/transfers", body, alice, domain.RoleCustomer,
		map[string]string{handler.HeaderIdempotencyKey: "alice-2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	got, err := f.wallets.GetByID(context.Background(), from.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(6000), got.Balance)
}

func TestRouter_TransferWithoutTokenRejected(t *testing.T) {
	f := newAPI(t)
	alice := f.customerWithPIN(t, "1111")
	from := f.wallet(t, alice, domain.WalletKindCustomer, 10000)
	to := f.wallet(t, uuid.New(), domain.WalletKindCustomer, 0)

	w := f.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
		"from_wallet_id": from.ID.String(),
		"to_wallet_id":   to.ID.String(),
		"amount":         "1.00",
	}, alice, domain.RoleCustomer, map[string]string{handler.HeaderIdempotencyKey: "no-token-1"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RequiresSession(t *testing.T) {
	f := newAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{}, uuid.Nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_AdminRoutesNeedAdminRole(t *testing.T) {
	f := newAPI(t)
	body := map[string]any{"date": "2026-03-01", "trust_balance": "1000000.00"}

	w := f.do(t, http.MethodPost, "/api/v1/admin/reconciliations", body, uuid.New(), domain.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/internal/v1/vouchers/redeem", map[string]any{}, uuid.New(), domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_ReconciliationLifecycle(t *testing.T) {
	f := newAPI(t)
	admin := uuid.New()
	f.wallet(t, uuid.New(), domain.WalletKindCustomer, 500000)
	f.wallet(t, uuid.New(), domain.WalletKindCustomer, 500000)

	w := f.do(t, http.MethodPost, "/api/v1/admin/reconciliations", map[string]any{
		"date": "2026-03-01", "trust_balance": "9950.00",
	}, admin, domain.RoleAdmin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := data(t, w)
	assert.Equal(t, "discrepancy", run["status"])
	assert.Equal(t, "-50.00", run["discrepancy"])

	w = f.do(t, http.MethodGet, "/api/v1/admin/reconciliations/2026-03-01", nil, admin, domain.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/admin/reconciliations/2026-03-01/resolve", map[string]any{
		"notes": "custodian fee booked late",
	}, admin, domain.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, admin.String(), data(t, w)["resolved_by"])

	w = f.do(t, http.MethodGet, "/api/v1/admin/reconciliations?from=2026-02-01&to=2026-03-31", nil, admin, domain.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, data(t, w)["items"], 1)
}

func TestRouter_OpenBankingPayment(t *testing.T) {
	f := newAPI(t)
	bob := f.customerWithPIN(t, "2468")
	from := f.wallet(t, bob, domain.WalletKindCustomer, 5000)
	to := f.wallet(t, uuid.New(), domain.WalletKindCustomer, 0)

	w := f.do(t, http.MethodPost, "/api/v1/sca/verify", map[string]any{"method": "pin", "pin": "2468"}, bob, domain.RoleCustomer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := data(t, w)["authorization_token"].(string)

	w = f.do(t, http.MethodPost, handler.OBPaymentsPath, map[string]any{
		"Data": map[string]any{
			"Initiation": map[string]any{
				"InstructionIdentification": "ob-instr-1",
				"InstructedAmount":          map[string]any{"Amount": "12.50", "Currency": "NAD"},
				"DebtorAccount":             map[string]any{"Identification": from.ID.String()},
				"CreditorAccount":           map[string]any{"Identification": to.ID.String()},
			},
		},
		"verificationToken": token,
	}, bob, domain.RoleCustomer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("x-fapi-interaction-id"))

	var resp struct {
		Data struct {
			PaymentID string `json:"PaymentId"`
			Status    string `json:"Status"`
		} `json:"Data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AcceptedSettlementCompleted", resp.Data.Status)

	got, err := f.wallets.GetByID(context.Background(), to.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1250), got.Balance)
}

func TestRouter_Health(t *testing.T) {
	f := newAPI(t)

	w := f.do(t, http.MethodGet, "/health", nil, uuid.Nil, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

var _ ports.AlertNotifier = nopAlerter{}
