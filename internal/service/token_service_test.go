package service

import (
	"testing"
	"time"

	"emoney-core/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "identity")
	userID := uuid.New()

	tokenStr, expiresAt, err := svc.Generate(userID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestJWTTokenService_MissingRoleDefaultsToCustomer(t *testing.T) {
	userID := uuid.New()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	s, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	claims, err := NewJWTTokenService(testJWTSecret, time.Hour, "").Validate(s)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	userID := uuid.New()
	sign := func(method jwt.SigningMethod, key interface{}, c jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := valid()
	noExp.ExpiresAt = nil
	wrongIss := valid()
	wrongIss.Issuer = "someone-else"
	badSub := valid()
	badSub.Subject = "not-a-uuid"

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), expired)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), noExp)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), wrongIss)},
		{"bad subject", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), badSub)},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("other"), valid())},
		{"wrong alg", sign(jwt.SigningMethodHS512, []byte(testJWTSecret), valid())},
		{"unknown role", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), sessionClaims{Role: "root", RegisteredClaims: valid()})},
		{"garbage", "not.a.valid.jwt"},
		{"empty", ""},
	}

	svc := NewJWTTokenService(testJWTSecret, time.Hour, "identity")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			assert.Error(t, err)
		})
	}
}
