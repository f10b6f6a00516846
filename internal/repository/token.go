package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

type TokenRepository interface {
	// Create inserts a new row. Returns domain.ErrSelectorConflict when the
	// selector is already taken; the existing row is never touched.
	Create(ctx context.Context, t *domain.PersistentLogin) error

	// Find looks a token up by selector and owner. Expired rows are returned
	// as-is; the caller decides what expiry means.
	Find(ctx context.Context, selector, userID string) (*domain.PersistentLogin, error)

	// Extend moves expires_at forward (sliding renewal).
	Extend(ctx context.Context, selector string, expiresAt time.Time) error

	// Delete removes a token. Deleting a missing selector is not an error.
	Delete(ctx context.Context, selector string) error

	// DeleteExpired purges rows whose expires_at is before cutoff and returns how many went.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
