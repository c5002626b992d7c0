// Package refreshtokens declares the refresh token ledger: persisted refresh
// tokens with expiry and revocation state.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Insert stores a new ledger row and fills in its ID and CreatedAt.
	Insert(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)

	// FindByToken looks up a row by the raw token string. Returns
	// common.ErrorNotFound when absent.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks the row revoked if it is not already. The result reports
	// whether this call performed the transition, so of several concurrent
	// callers exactly one sees true.
	Revoke(ctx context.Context, id string) (bool, error)

	// DeleteExpiredOrRevoked removes rows that can never be used again and
	// returns how many were deleted.
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
}
