package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ScaTokenStore implements ports.AuthorizationTokenStore on Redis. Redis TTL
// bounds lifetime; Consume is a single GETDEL so concurrent consumers race on
// one atomic command and exactly one sees the value.
type ScaTokenStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewScaTokenStore creates a Redis-backed authorization token store.
func NewScaTokenStore(client goredis.UniversalClient) *ScaTokenStore {
	return &ScaTokenStore{
		client: client,
		prefix: keyPrefix + "sca:",
		now:    time.Now,
	}
}

// key scopes the token to its user; the raw token never appears in the keyspace.
func (s *ScaTokenStore) key(userID uuid.UUID, token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + userID.String() + ":" + hex.EncodeToString(sum[:])
}

// Issue stores tok until its ExpiresAt. Reissuing an existing token value fails.
func (s *ScaTokenStore) Issue(ctx context.Context, tok *domain.AuthorizationToken) error {
	ttl := tok.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("redis sca issue: token already expired")
	}

	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("redis sca issue: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(tok.UserID, tok.Token), b, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis sca issue: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis sca issue: %w", ports.ErrDuplicateKey)
	}
	return nil
}

// Peek returns the token without consuming it.
func (s *ScaTokenStore) Peek(ctx context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error) {
	b, err := s.client.Get(ctx, s.key(userID, token)).Bytes()
	return s.decode(b, err, "peek")
}

// Consume atomically removes and returns the token.
func (s *ScaTokenStore) Consume(ctx context.Context, userID uuid.UUID, token string) (*domain.AuthorizationToken, error) {
	b, err := s.client.GetDel(ctx, s.key(userID, token)).Bytes()
	tok, err := s.decode(b, err, "consume")
	if err != nil {
		return nil, err
	}
	tok.Consumed = true
	return tok, nil
}

func (s *ScaTokenStore) decode(b []byte, err error, op string) (*domain.AuthorizationToken, error) {
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ports.ErrTokenInvalid
		}
		return nil, fmt.Errorf("redis sca %s: %w", op, err)
	}

	var tok domain.AuthorizationToken
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("redis sca %s: decode: %w", op, err)
	}
	// Redis expiry has millisecond resolution; the recorded deadline is authoritative.
	if tok.IsExpired(s.now()) {
		return nil, ports.ErrTokenInvalid
	}
	return &tok, nil
}
