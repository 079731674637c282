package memory

import (
	"context"

	"emoney-core/internal/core/domain"

	"github.com/google/uuid"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	store *Store
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// Upsert writes a user's PIN hash and SCA flag.
func (r *UserRepo) Upsert(_ context.Context, u *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *u
	r.store.users[u.ID] = &cp
	return nil
}
