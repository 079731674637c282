package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheapArgon2 keeps PIN hashing fast in tests.
var cheapArgon2 = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	hash, err := svc.Hash("4821")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.True(t, IsArgon2Hash(hash))

	match, err := svc.Verify("4821", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("4822", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	h1, err := svc.Hash("1234")
	require.NoError(t, err)
	h2, err := svc.Hash("1234")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "same PIN should produce different hashes")
}

func TestArgon2HashService_DefaultParamsInHash(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("0000")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}

func TestArgon2HashService_VerifiesHashesFromOtherParams(t *testing.T) {
	old := NewArgon2HashServiceWithParams(cheapArgon2)
	hash, err := old.Hash("9999")
	require.NoError(t, err)

	current := NewArgon2HashService()
	match, err := current.Verify("9999", hash)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestArgon2HashService_VerifyMalformed(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	tests := []string{
		"not-a-valid-hash",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	}
	for _, h := range tests {
		_, err := svc.Verify("1234", h)
		assert.ErrorIs(t, err, errMalformedHash, h)
	}
}
