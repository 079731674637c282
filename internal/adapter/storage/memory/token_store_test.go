package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueTestToken(t *testing.T, s *TokenStore, now time.Time) *domain.AuthorizationToken {
	tok := &domain.AuthorizationToken{
		Token:     uuid.NewString(),
		UserID:    uuid.New(),
		Method:    domain.ScaMethodBiometric,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.AuthorizationTokenTTL),
	}
	require.NoError(t, s.Issue(context.Background(), tok))
	return tok
}

func TestTokenStore_ConsumeOnce(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()
	tok := issueTestToken(t, s, time.Now())

	peeked, err := s.Peek(ctx, tok.UserID, tok.Token)
	require.NoError(t, err)
	assert.False(t, peeked.Consumed)

	got, err := s.Consume(ctx, tok.UserID, tok.Token)
	require.NoError(t, err)
	assert.True(t, got.Consumed)

	_, err = s.Consume(ctx, tok.UserID, tok.Token)
	assert.ErrorIs(t, err, ports.ErrTokenInvalid)
}

func TestTokenStore_ExpiredOnFirstConsume(t *testing.T) {
	s := NewTokenStore()
	now := time.Now()
	tok := issueTestToken(t, s, now)

	s.now = func() time.Time { return tok.ExpiresAt }

	_, err := s.Peek(context.Background(), tok.UserID, tok.Token)
	assert.ErrorIs(t, err, ports.ErrTokenInvalid)
	_, err = s.Consume(context.Background(), tok.UserID, tok.Token)
	assert.ErrorIs(t, err, ports.ErrTokenInvalid)
}

func TestTokenStore_WrongUser(t *testing.T) {
	s := NewTokenStore()
	tok := issueTestToken(t, s, time.Now())

	_, err := s.Consume(context.Background(), uuid.New(), tok.Token)
	assert.ErrorIs(t, err, ports.ErrTokenInvalid)
}

func TestTokenStore_IssueRejects(t *testing.T) {
	s := NewTokenStore()
	tok := issueTestToken(t, s, time.Now())

	assert.ErrorIs(t, s.Issue(context.Background(), tok), ports.ErrDuplicateKey)

	stale := *tok
	stale.Token = "stale"
	stale.ExpiresAt = time.Now().Add(-time.Second)
	assert.Error(t, s.Issue(context.Background(), &stale))
}

func TestTokenStore_ConcurrentConsume(t *testing.T) {
	s := NewTokenStore()
	tok := issueTestToken(t, s, time.Now())

	const n = 50
	var wins, invalid atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.Consume(context.Background(), tok.UserID, tok.Token); err == nil {
				wins.Add(1)
			} else if err == ports.ErrTokenInvalid {
				invalid.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), invalid.Load())
}

func TestTokenStore_Sweep(t *testing.T) {
	s := NewTokenStore()
	now := time.Now()
	issueTestToken(t, s, now)
	issueTestToken(t, s, now)
	fresh := issueTestToken(t, s, now.Add(time.Minute))

	s.now = func() time.Time { return now.Add(domain.AuthorizationTokenTTL) }
	assert.Equal(t, 2, s.Sweep())

	_, err := s.Peek(context.Background(), fresh.UserID, fresh.Token)
	assert.NoError(t, err)
}

func TestTokenStore_RunSweeperStopsOnCancel(t *testing.T) {
	s := NewTokenStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond, zerolog.Nop())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestIdempotencyCache(t *testing.T) {
	c := NewIdempotencyCache()
	ctx := context.Background()
	now := time.Now()
	c.now = func() time.Time { return now }

	got, err := c.Get(ctx, "idem:a")
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, "idem:a", []byte("v"), time.Minute))
	got, _ = c.Get(ctx, "idem:a")
	assert.Equal(t, []byte("v"), got)

	c.now = func() time.Time { return now.Add(time.Minute) }
	got, _ = c.Get(ctx, "idem:a")
	assert.Nil(t, got)
}
