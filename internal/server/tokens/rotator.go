// Package tokens implements the refresh-token lifecycle: issue, single-use
// rotation, expiry sweeping and bulk revocation.
//
// A refresh token is presented as "<tokenID>.<secret>". Only
// base64(SHA-256(secret || tokenID)) is persisted, so the secret exists in
// plaintext exactly once, in the value returned to the caller.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/common"
	"github.com/dmitrijs2005/habittracker/internal/cryptox"
	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/logging"
	"github.com/dmitrijs2005/habittracker/internal/server/models"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/users"
)

// Stores vends the repositories the Rotator needs, bound to a handle.
// repomanager.RepositoryManager satisfies it.
type Stores interface {
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Users(db dbx.DBTX) users.Repository
}

// Issued is a freshly created token: the stored record and the plaintext
// that must be delivered to the client.
type Issued struct {
	Token     *models.RefreshToken
	Plaintext string
}

// Rotation is the result of a successful Rotate.
type Rotation struct {
	User *models.User
	Issued
}

// Rotator owns every state change of refresh tokens. It keeps no in-process
// state; the store's conditional writes settle concurrent rotations.
type Rotator struct {
	db     dbx.DBTX
	tx     dbx.Transactor
	stores Stores
	log    logging.Logger
	now    func() time.Time
}

// Option customises a Rotator.
type Option func(*Rotator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Rotator) { r.now = now }
}

// NewRotator builds a Rotator. db serves reads and single-statement writes;
// tx runs the revoke-and-replace step of Rotate atomically.
func NewRotator(db dbx.DBTX, tx dbx.Transactor, stores Stores, log logging.Logger, opts ...Option) *Rotator {
	r := &Rotator{
		db:     db,
		tx:     tx,
		stores: stores,
		log:    log.With("module", "tokens"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create sweeps the user's expired tokens and issues a new one valid for lifetime.
func (r *Rotator) Create(ctx context.Context, userID string, lifetime time.Duration) (*Issued, error) {
	if _, err := r.Sweep(ctx, userID); err != nil {
		return nil, err
	}
	return r.create(ctx, r.stores.RefreshTokens(r.db), userID, lifetime, r.now().UTC())
}

// Rotate exchanges a presented plaintext for a new token of the same user and
// burns the presented one. Any reason to reject the token yields
// common.ErrInvalidToken; other errors are store failures.
func (r *Rotator) Rotate(ctx context.Context, presented string, lifetime time.Duration) (*Rotation, error) {
	tokenID, secret, ok := ParseToken(presented)
	if !ok {
		return nil, common.ErrInvalidToken
	}

	now := r.now().UTC()

	stored, err := r.stores.RefreshTokens(r.db).FindActiveByTokenID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if stored.IsRevoked(now) {
		return nil, common.ErrInvalidToken
	}

	user, err := r.stores.Users(r.db).GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve token owner: %w", err)
	}

	if _, err := r.Sweep(ctx, user.ID); err != nil {
		return nil, err
	}
	if stored.IsRevoked(now) {
		return nil, common.ErrInvalidToken
	}

	expected := cryptox.TokenHash(secret, tokenID)
	if !cryptox.ConstantTimeEqual([]byte(expected), []byte(stored.TokenHash)) {
		return nil, common.ErrInvalidToken
	}

	var issued *Issued
	err = r.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.stores.RefreshTokens(tx)

		won, err := repo.RevokeIfActive(ctx, stored.ID, now)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if !won {
			return common.ErrInvalidToken
		}

		issued, err = r.create(ctx, repo, user.ID, lifetime, now)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			r.log.Warn(ctx, "refresh token already used", "user_id", user.ID)
		}
		return nil, err
	}

	r.log.Debug(ctx, "refresh token rotated", "user_id", user.ID)
	return &Rotation{User: user, Issued: *issued}, nil
}

// Sweep marks the user's expired but unrevoked tokens as revoked at their own
// expiry time. It is idempotent and returns the number of rows changed.
func (r *Rotator) Sweep(ctx context.Context, userID string) (int64, error) {
	n, err := r.stores.RefreshTokens(r.db).RevokeExpired(ctx, userID, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep refresh tokens: %w", err)
	}
	if n > 0 {
		r.log.Debug(ctx, "expired refresh tokens swept", "user_id", userID, "count", n)
	}
	return n, nil
}

// RevokeAll revokes every active token of userID at the current time.
func (r *Rotator) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := r.stores.RefreshTokens(r.db).RevokeActive(ctx, userID, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return n, nil
}

func (r *Rotator) create(ctx context.Context, repo refreshtokens.Repository, userID string, lifetime time.Duration, now time.Time) (*Issued, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	tokenID := newTokenID()

	t := &models.RefreshToken{
		TokenID:   tokenID,
		TokenHash: cryptox.TokenHash(secret, tokenID),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}

	id, err := repo.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	t.ID = id

	return &Issued{Token: t, Plaintext: FormatToken(tokenID, secret)}, nil
}
