// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/habittracker/internal/server/models"
)

// Repository persists refresh-token records. Records are never deleted here;
// revocation only ever sets revoked_at on rows where it is still NULL.
type Repository interface {
	// Create inserts t and returns its surrogate id.
	Create(ctx context.Context, t *models.RefreshToken) (int64, error)

	// FindActiveByTokenID returns the not-yet-revoked record with the given
	// token id, or common.ErrorNotFound.
	FindActiveByTokenID(ctx context.Context, tokenID string) (*models.RefreshToken, error)

	// RevokeIfActive sets revoked_at = at on the record with the given id only if
	// it is still unrevoked. It reports whether this call performed the revoke.
	RevokeIfActive(ctx context.Context, id int64, at time.Time) (bool, error)

	// RevokeExpired marks every unrevoked record of userID whose expiry is at or
	// before now as revoked at its own expiry time. It returns the row count.
	RevokeExpired(ctx context.Context, userID string, now time.Time) (int64, error)

	// RevokeActive marks every active record of userID as revoked at now and
	// returns the row count.
	RevokeActive(ctx context.Context, userID string, now time.Time) (int64, error)
}
