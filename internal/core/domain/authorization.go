package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationTokenTTL is how long an issued SCA token remains consumable.
const AuthorizationTokenTTL = 300 * time.Second

// ScaMethod is the factor used to step up.
type ScaMethod string

const (
	ScaMethodPIN       ScaMethod = "pin"
	ScaMethodBiometric ScaMethod = "biometric"
)

// IsValid reports whether the method is one the verifier understands.
func (m ScaMethod) IsValid() bool {
	return m == ScaMethodPIN || m == ScaMethodBiometric
}

// Well-known transaction context keys. A token issued with these keys only
// authorizes a transfer that matches them.
const (
	ContextKeyAmount    = "amount"
	ContextKeyToAccount = "to_account"
)

// AuthorizationToken is the single-use proof that SCA succeeded.
type AuthorizationToken struct {
	Token     string            `json:"token"`
	UserID    uuid.UUID         `json:"user_id"`
	Method    ScaMethod         `json:"method"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Consumed  bool              `json:"consumed"`
}

// IsExpired reports whether the token can no longer be consumed at now.
func (t *AuthorizationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Remaining returns the validity left at now, never negative.
func (t *AuthorizationToken) Remaining(now time.Time) time.Duration {
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
