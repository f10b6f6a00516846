package postgres

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, userID, title, message string, category domain.Category) (*domain.Notification, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, title, message, category, is_read, created_at`,
		userID, title, message, string(category),
	)
	n, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("%w: create notification: %w", domain.ErrStore, err)
	}
	return n, nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, message, category, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list notifications: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list notifications: %w", domain.ErrStore, err)
	}
	return out, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: unread count: %w", domain.ErrStore, err)
	}
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	// Ownership and read state live in the WHERE clause so the check and the
	// write are one statement. id is compared as text: a garbage id from the
	// URL must behave exactly like someone else's id.
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET    is_read = TRUE
		WHERE  id::text = $1 AND user_id = $2 AND NOT is_read`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("%w: mark read: %w", domain.ErrStore, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: mark all read: %w", domain.ErrStore, err)
	}
	return int(tag.RowsAffected()), nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n        domain.Notification
		category string
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &category, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Category = domain.Category(category)
	return &n, nil
}
