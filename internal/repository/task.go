package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

type TaskRepository interface {
	// ListDueBetween returns tasks whose end date falls in [from, to] and whose
	// status is neither completed nor cancelled, each with its assignees.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.TaskDeadline, error)
}

type BugRepository interface {
	// ListOverdue returns bugs past their end date that are not resolved or
	// closed, joined with the owning task's creator.
	ListOverdue(ctx context.Context, now time.Time) ([]*domain.OverdueBug, error)
}
