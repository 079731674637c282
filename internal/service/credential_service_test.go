package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestVerifier() *CredentialVerifier {
	return NewCredentialVerifier(NewArgon2HashServiceWithParams(cheapArgon2))
}

func TestVerifyKnowledge_Argon2(t *testing.T) {
	v := newTestVerifier()
	hash, err := v.argon.Hash("4821")
	require.NoError(t, err)

	assert.True(t, v.VerifyKnowledge("4821", hash))
	assert.False(t, v.VerifyKnowledge("4822", hash))
}

func TestVerifyKnowledge_AllOtherPINsRejected(t *testing.T) {
	v := newTestVerifier()
	hash, err := v.argon.Hash("0420")
	require.NoError(t, err)

	// Spot-check a spread of wrong PINs rather than all 9999.
	for i := 0; i < 10000; i += 97 {
		pin := fmt.Sprintf("%04d", i)
		if pin == "0420" {
			continue
		}
		assert.False(t, v.VerifyKnowledge(pin, hash), pin)
	}
	assert.True(t, v.VerifyKnowledge("0420", hash))
}

func TestVerifyKnowledge_Bcrypt(t *testing.T) {
	v := newTestVerifier()
	legacy, err := bcrypt.GenerateFromPassword([]byte("1357"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, v.VerifyKnowledge("1357", string(legacy)))
	assert.False(t, v.VerifyKnowledge("1358", string(legacy)))
}

func TestVerifyKnowledge_RejectsMalformedPIN(t *testing.T) {
	v := newTestVerifier()
	hash, err := v.argon.Hash("1234")
	require.NoError(t, err)

	for _, pin := range []string{"", "123", "12345", "12a4", " 1234", "1234\n", "١٢٣٤", "-123"} {
		assert.False(t, v.VerifyKnowledge(pin, hash), "%q", pin)
	}
}

func TestVerifyKnowledge_UnknownOrEmptyHash(t *testing.T) {
	v := newTestVerifier()
	assert.False(t, v.VerifyKnowledge("1234", ""))
	assert.False(t, v.VerifyKnowledge("1234", "1234"))
	assert.False(t, v.VerifyKnowledge("1234", "$argon2id$broken"))
}

func TestVerifyPossession(t *testing.T) {
	v := newTestVerifier()

	tests := []struct {
		assertion string
		want      bool
	}{
		{"eyJhbGciOi.device-signed", true},
		{"x", true},
		{"", false},
		{"   ", false},
		{"undefined", false},
		{"NULL", false},
		{" null ", false},
		{"Undefined", false},
	}
	for _, tt := range tests {
		t.Run(tt.assertion, func(t *testing.T) {
			assert.Equal(t, tt.want, v.VerifyPossession(tt.assertion))
		})
	}
}
