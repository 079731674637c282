package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secretKey := "whsec-test"
	payload := SignedPayload(1767225600, []byte(`{"event":"reconciliation.discrepancy"}`))

	signature := svc.Sign(secretKey, payload)

	assert.Regexp(t, `^[0-9a-f]{64}$`, signature, "signature should be 64-char lowercase hex (SHA-256)")
	assert.True(t, svc.Verify(secretKey, payload, signature))
}

func TestHMACSignatureService_VerifyFails(t *testing.T) {
	svc := NewHMACSignatureService()
	sig := svc.Sign("correct-key", "payload")

	assert.False(t, svc.Verify("wrong-key", "payload", sig))
	assert.False(t, svc.Verify("correct-key", "tampered", sig))
	assert.False(t, svc.Verify("correct-key", "payload", "invalidsignature"))
}

func TestHMACSignatureService_DeterministicSign(t *testing.T) {
	svc := NewHMACSignatureService()
	assert.Equal(t, svc.Sign("key", "data"), svc.Sign("key", "data"))
}

func TestSignedPayload(t *testing.T) {
	assert.Equal(t, `1708092000.{"a":1}`, SignedPayload(1708092000, []byte(`{"a":1}`)))
	assert.Equal(t, "1708092000.", SignedPayload(1708092000, nil))
}
