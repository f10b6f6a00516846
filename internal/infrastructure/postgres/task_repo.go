package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.TaskDeadline, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.name, t.status, t.end_datetime, t.created_by,
		       COALESCE(array_agg(a.user_id::text ORDER BY a.user_id)
		                FILTER (WHERE a.user_id IS NOT NULL), '{}')
		FROM   tasks t
		LEFT JOIN task_assignees a ON a.task_id = t.id
		WHERE  t.end_datetime BETWEEN $1 AND $2
		  AND  t.status NOT IN ('completed', 'cancelled')
		GROUP BY t.id
		ORDER BY t.end_datetime ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.TaskDeadline
	for rows.Next() {
		var (
			t      domain.TaskDeadline
			status string
		)
		if err := rows.Scan(&t.TaskID, &t.Name, &status, &t.EndAt, &t.CreatorID, &t.AssigneeIDs); err != nil {
			return nil, fmt.Errorf("scan due task: %w", err)
		}
		t.Status = domain.TaskStatus(status)
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return tasks, nil
}

type BugRepository struct {
	db DBTX
}

func NewBugRepository(db DBTX) *BugRepository {
	return &BugRepository{db: db}
}

func (r *BugRepository) ListOverdue(ctx context.Context, now time.Time) ([]*domain.OverdueBug, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.id, b.name, b.status, b.end_datetime, t.id, t.name, t.created_by
		FROM   bugs b
		JOIN   tasks t ON t.id = b.task_id
		WHERE  b.end_datetime < $1
		  AND  b.status NOT IN ('resolved', 'closed')
		ORDER BY b.end_datetime ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue bugs: %w", err)
	}
	defer rows.Close()

	var bugs []*domain.OverdueBug
	for rows.Next() {
		var (
			b      domain.OverdueBug
			status string
		)
		if err := rows.Scan(&b.BugID, &b.Name, &status, &b.EndAt, &b.TaskID, &b.TaskName, &b.ManagerID); err != nil {
			return nil, fmt.Errorf("scan overdue bug: %w", err)
		}
		b.Status = domain.BugStatus(status)
		bugs = append(bugs, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list overdue bugs: %w", err)
	}
	return bugs, nil
}
