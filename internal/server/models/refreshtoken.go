package models

import "time"

// RefreshToken is the persisted record of an issued refresh token. Only the
// hash of the secret is stored; the plaintext exists once, at issue time.
type RefreshToken struct {
	ID        int64
	TokenID   string
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the token is unusable at now: either revoked
// explicitly or past its expiry.
func (t *RefreshToken) IsRevoked(now time.Time) bool {
	return t.RevokedAt != nil || !now.Before(t.ExpiresAt)
}
