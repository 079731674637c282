package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type tokenKey struct {
	user  uuid.UUID
	token string
}

// TokenStore implements ports.AuthorizationTokenStore in process memory.
// Expired entries are rejected on read and removed by Sweep.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[tokenKey]domain.AuthorizationToken
	now    func() time.Time
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[tokenKey]domain.AuthorizationToken),
		now:    time.Now,
	}
}

func (s *TokenStore) Issue(_ context.Context, tok *domain.AuthorizationToken) error {
	if tok.IsExpired(s.now()) {
		return fmt.Errorf("memory sca issue: token already expired")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := tokenKey{tok.UserID, tok.Token}
	if existing, ok := s.tokens[k]; ok && !existing.IsExpired(s.now()) {
		return fmt.Errorf("memory sca issue: %w", ports.ErrDuplicateKey)
	}
	s.tokens[k] = copyToken(*tok)
	return nil
}

func (s *TokenStore) Peek(_ context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenKey{userID, token}]
	if !ok || tok.IsExpired(s.now()) {
		return nil, ports.ErrTokenInvalid
	}
	cp := copyToken(tok)
	return &cp, nil
}

// Consume looks up and deletes under one lock, so one caller wins.
func (s *TokenStore) Consume(_ context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := tokenKey{userID, token}
	tok, ok := s.tokens[k]
	if !ok {
		return nil, ports.ErrTokenInvalid
	}
	delete(s.tokens, k)
	if tok.IsExpired(s.now()) {
		return nil, ports.ErrTokenInvalid
	}
	cp := copyToken(tok)
	cp.Consumed = true
	return &cp, nil
}

// Sweep drops expired tokens and returns how many were removed.
func (s *TokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, tok := range s.tokens {
		if tok.IsExpired(now) {
			delete(s.tokens, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *TokenStore) RunSweeper(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("expired sca tokens swept")
			}
		}
	}
}

func copyToken(tok domain.AuthorizationToken) domain.AuthorizationToken {
	if tok.Context != nil {
		ctx := make(map[string]string, len(tok.Context))
		for k, v := range tok.Context {
			ctx[k] = v
		}
		tok.Context = ctx
	}
	return tok
}
