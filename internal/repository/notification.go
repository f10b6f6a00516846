package repository

import (
	"context"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, userID, title, message string, category domain.Category) (*domain.Notification, error)

	// ListForUser returns the newest notifications first.
	ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)

	// MarkRead is a single conditional update; it reports whether a row changed
	// so callers can log it, but a false result is not an error.
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}
