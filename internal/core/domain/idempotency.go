package domain

import "strings"

// MaxIdempotencyKeyLength bounds client-supplied keys to the column width.
const MaxIdempotencyKeyLength = 255

// NormalizeIdempotencyKey trims surrounding whitespace so "abc" and " abc "
// replay the same transfer.
func NormalizeIdempotencyKey(key string) string {
	return strings.TrimSpace(key)
}

// BuildIdempotencyCacheKey is the key under which a completed transfer is cached.
func BuildIdempotencyCacheKey(key string) string {
	return "idem:" + key
}

// DeriveIdempotencyKey scopes a caller key to a feature and a parent entity,
// e.g. a split-bill settlement per participant.
func DeriveIdempotencyKey(kind TransactionKind, parent, key string) string {
	return string(kind) + ":" + parent + ":" + key
}
