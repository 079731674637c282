package postgres

import (
	"context"
	"testing"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(balance domain.Money) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Kind:      domain.WalletKindCustomer,
		Balance:   balance,
		Status:    domain.WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func walletColumns() []string {
	return []string{"id", "owner_id", "kind", "balance_minor", "status", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumns()).AddRow(
		w.ID, w.OwnerID, w.Kind, w.Balance, w.Status, w.CreatedAt, w.UpdatedAt,
	)
}

// beginTx opens a mock transaction and returns a context carrying it.
func beginTx(t *testing.T, mock pgxmock.PgxPoolIface) context.Context {
	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	return withTx(context.Background(), tx)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(1000)

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.OwnerID, w.Kind, w.Balance, w.Status, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(5000)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, domain.Money(5000), result.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(walletColumns()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_LockForUpdate_InGivenOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	a, b := newTestWallet(100), newTestWallet(200)
	ctx := beginTx(t, mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id = \\$1 FOR UPDATE").WithArgs(b.ID).WillReturnRows(walletRow(b))
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id = \\$1 FOR UPDATE").WithArgs(a.ID).WillReturnRows(walletRow(a))

	locked, err := repo.LockForUpdate(ctx, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	assert.Len(t, locked, 2)
	assert.Equal(t, domain.Money(100), locked[a.ID].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_LockForUpdate_SkipsMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ctx := beginTx(t, mock)
	missing := uuid.New()

	mock.ExpectQuery("FOR UPDATE").WithArgs(missing).WillReturnRows(pgxmock.NewRows(walletColumns()))

	locked, err := repo.LockForUpdate(ctx, []uuid.UUID{missing})
	require.NoError(t, err)
	assert.Empty(t, locked)
}

func TestWalletRepo_LockForUpdate_RequiresTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWalletRepo(mock).LockForUpdate(context.Background(), []uuid.UUID{uuid.New()})
	assert.Error(t, err)
}

func TestWalletRepo_LockForUpdate_LockTimeoutIsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ctx := beginTx(t, mock)
	id := uuid.New()

	mock.ExpectQuery("FOR UPDATE").WithArgs(id).WillReturnError(&pgconn.PgError{Code: "55P03"})

	_, err = repo.LockForUpdate(ctx, []uuid.UUID{id})
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestWalletRepo_AdjustBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ctx := beginTx(t, mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE wallets SET balance_minor = balance_minor \\+ \\$1").
		WithArgs(domain.Money(-2500), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.AdjustBalance(ctx, id, -2500))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_AdjustBalance_Overdraft(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ctx := beginTx(t, mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE wallets").
		WithArgs(domain.Money(-99999), id).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_non_negative"})

	err = repo.AdjustBalance(ctx, id, -99999)
	assert.ErrorIs(t, err, ports.ErrBalanceConstraint)
}

func TestWalletRepo_AdjustBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	ctx := beginTx(t, mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE wallets").
		WithArgs(domain.Money(10), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.AdjustBalance(ctx, id, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")
}

func TestWalletRepo_SumActiveBalances(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(balance_minor\\), 0\\), COUNT\\(\\*\\)").
		WithArgs(domain.WalletKindCustomer, domain.WalletStatusActive).
		WillReturnRows(pgxmock.NewRows([]string{"sum", "count"}).AddRow(domain.Money(1000000), int64(7)))

	s, err := repo.SumActiveBalances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1000000), s.Total)
	assert.Equal(t, int64(7), s.ActiveWallets)
	assert.NoError(t, mock.ExpectationsWereMet())
}
