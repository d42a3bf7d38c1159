// Package auth issues and verifies HS256 access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinKeyLength is the shortest signing secret NewIssuer accepts.
const MinKeyLength = 32

var (
	ErrKeyTooShort        = fmt.Errorf("signing key must be at least %d characters", MinKeyLength)
	ErrUnresolvedIdentity = errors.New("access token requested for an unresolved identity")
)

// Claims carried by an access token. Subject and NameID both hold the user id.
type Claims struct {
	jwt.RegisteredClaims
	NameID     string   `json:"nameid"`
	Email      string   `json:"email"`
	UniqueName string   `json:"unique_name,omitempty"`
	Roles      []string `json:"role,omitempty"`
}

// Issuer signs and parses access tokens with a process-wide key. It holds no
// mutable state and is safe for concurrent use.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	validity time.Duration
	now      func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer validates the signing secret and returns an Issuer.
func NewIssuer(secret, issuer, audience string, validity time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	i := &Issuer{
		key:      []byte(secret),
		issuer:   issuer,
		audience: audience,
		validity: validity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue mints an access token for user and returns it with its expiry (UTC).
func (i *Issuer) Issue(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, ErrUnresolvedIdentity
	}

	expiresAt := i.now().UTC().Add(i.validity)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		NameID:     user.ID,
		Email:      user.Email,
		UniqueName: user.DisplayName(),
		Roles:      user.Roles,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Parse verifies signature, algorithm, issuer, audience and expiry (no clock
// skew) and returns the claims. Every failure wraps common.ErrorUnauthorized.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrorUnauthorized
	}

	return claims, nil
}
