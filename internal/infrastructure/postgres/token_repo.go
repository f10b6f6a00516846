package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/jackc/pgx/v5"
)

type TokenRepository struct {
	db DBTX
}

func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.PersistentLogin) error {
	// Plain INSERT: a selector collision must surface as 23505, never as an upsert.
	_, err := r.db.Exec(ctx, `
		INSERT INTO persistent_logins (selector, validator_hash, user_id, expires_at)
		VALUES ($1, $2, $3, $4)`,
		t.Selector, t.ValidatorHash, t.UserID, t.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSelectorConflict
		}
		return fmt.Errorf("insert persistent login: %w", err)
	}
	return nil
}

func (r *TokenRepository) Find(ctx context.Context, selector, userID string) (*domain.PersistentLogin, error) {
	row := r.db.QueryRow(ctx, `
		SELECT selector, validator_hash, user_id, expires_at, created_at
		FROM persistent_logins
		WHERE selector = $1 AND user_id::text = $2`,
		selector, userID,
	)

	var t domain.PersistentLogin
	err := row.Scan(&t.Selector, &t.ValidatorHash, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("scan persistent login: %w", err)
	}
	return &t, nil
}

func (r *TokenRepository) Extend(ctx context.Context, selector string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE persistent_logins SET expires_at = $2 WHERE selector = $1`,
		selector, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("extend persistent login: %w", err)
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, selector string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM persistent_logins WHERE selector = $1`, selector)
	if err != nil {
		return fmt.Errorf("delete persistent login: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM persistent_logins
		WHERE selector IN (
			SELECT selector FROM persistent_logins
			WHERE  expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
		)`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired persistent logins: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
