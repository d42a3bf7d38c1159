// Package cryptox holds the hashing and comparison primitives used by the
// authentication core: one-way token digests, timing-safe comparison and
// argon2id password hashing.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// TokenHash derives the stored artifact of a refresh token: base64(SHA-256(secret || tokenID)).
// The token id provides per-token domain separation, not secrecy.
func TokenHash(secret, tokenID string) string {
	return base64.StdEncoding.EncodeToString(Hash([]byte(secret + tokenID)))
}

// ConstantTimeEqual reports whether a and b hold the same bytes. Only a length
// mismatch returns early; otherwise every position is XORed and ORed together
// before the single comparison against zero.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
