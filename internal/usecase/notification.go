package usecase

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type NotificationUsecase struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

func NewNotificationUsecase(repo repository.NotificationRepository, logger *slog.Logger) *NotificationUsecase {
	return &NotificationUsecase{repo: repo, logger: logger.With("component", "notifications")}
}

// List returns the user's newest notifications. limit is clamped to
// [1, MaxListLimit]; zero or less means DefaultListLimit.
func (u *NotificationUsecase) List(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return u.repo.ListForUser(ctx, userID, limit)
}

func (u *NotificationUsecase) UnreadCount(ctx context.Context, userID string) (int, error) {
	return u.repo.UnreadCount(ctx, userID)
}

// MarkRead never tells the caller whether the notification exists or whom it
// belongs to.
func (u *NotificationUsecase) MarkRead(ctx context.Context, id, userID string) error {
	changed, err := u.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !changed {
		u.logger.DebugContext(ctx, "mark read matched nothing", "notification_id", id, "user_id", userID)
	}
	return nil
}

func (u *NotificationUsecase) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return u.repo.MarkAllRead(ctx, userID)
}
