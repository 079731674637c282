package postgres

import (
	"context"
	"errors"

	"emoney-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository over the identity service's users table.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// GetByID fetches the SCA-relevant user fields.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, pin_hash, sca_enabled FROM users WHERE id = $1`

	u := &domain.User{}
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&u.ID, &u.PINHash, &u.SCAEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get user by id", err)
	}
	return u, nil
}

// Upsert writes a user's PIN hash and SCA flag. Used by operator tooling.
func (r *UserRepo) Upsert(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, pin_hash, sca_enabled) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash, sca_enabled = EXCLUDED.sca_enabled`

	_, err := conn(ctx, r.pool).Exec(ctx, query, u.ID, u.PINHash, u.SCAEnabled)
	return mapError("upsert user", err)
}
