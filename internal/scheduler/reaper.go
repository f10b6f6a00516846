package scheduler

import (
	"context"
	"log/slog"
)

const reapBatch = 500

type tokenReaper interface {
	Reap(ctx context.Context, limit int) (int, error)
}

// Reaper removes expired remember-me tokens in batches so a large backlog
// never turns into one long-running delete.
type Reaper struct {
	tokens tokenReaper
	batch  int
	logger *slog.Logger
}

func NewReaper(tokens tokenReaper, logger *slog.Logger) *Reaper {
	return &Reaper{
		tokens: tokens,
		batch:  reapBatch,
		logger: logger.With("component", "reaper"),
	}
}

// WithBatch overrides the delete batch size. Used by tests.
func (r *Reaper) WithBatch(n int) *Reaper {
	r.batch = n
	return r
}

// Reap deletes batches until one comes back short. It has the JobFunc shape.
func (r *Reaper) Reap(ctx context.Context) error {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.tokens.Reap(ctx, r.batch)
		total += n
		if err != nil {
			r.logger.ErrorContext(ctx, "reap persistent logins", "deleted", total, "error", err)
			return err
		}
		if n < r.batch {
			break
		}
	}
	if total > 0 {
		r.logger.InfoContext(ctx, "reaped expired persistent logins", "count", total)
	}
	return nil
}
