package service

import (
	"regexp"
	"strings"

	"emoney-core/internal/core/ports"

	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Possession assertions that a client serialized from an unset value.
var sentinelAssertions = map[string]struct{}{
	"undefined": {},
	"null":      {},
}

// CredentialVerifier implements ports.CredentialVerifier.
//
// PIN hashes are Argon2id, or bcrypt for PINs set before the Argon2 migration.
type CredentialVerifier struct {
	argon ports.HashService
}

// NewCredentialVerifier creates a verifier backed by the given Argon2id hasher.
func NewCredentialVerifier(argon ports.HashService) *CredentialVerifier {
	return &CredentialVerifier{argon: argon}
}

// VerifyKnowledge checks a 4-digit PIN against storedHash. Anything that is
// not exactly four ASCII digits is rejected before any hashing work.
func (v *CredentialVerifier) VerifyKnowledge(pin string, storedHash string) bool {
	if !pinPattern.MatchString(pin) || storedHash == "" {
		return false
	}

	switch {
	case IsArgon2Hash(storedHash):
		ok, err := v.argon.Verify(pin, storedHash)
		return err == nil && ok
	case isBcryptHash(storedHash):
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pin)) == nil
	default:
		return false
	}
}

// VerifyPossession accepts a biometric assertion produced by the device.
//
// Trust boundary: the biometric ceremony runs on the client and this check
// only rejects empty or obviously unset values. It is not a cryptographic
// proof of possession.
func (v *CredentialVerifier) VerifyPossession(assertion string) bool {
	a := strings.TrimSpace(assertion)
	if a == "" {
		return false
	}
	_, sentinel := sentinelAssertions[strings.ToLower(a)]
	return !sentinel
}

func isBcryptHash(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}
