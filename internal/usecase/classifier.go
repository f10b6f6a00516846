package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
)

// Classify turns an event into one message per recipient. It is pure: the
// same event and evaluation time always give the same messages.
func Classify(ev domain.NotificationEvent, now time.Time) ([]domain.Message, error) {
	if err := checkEvent(ev); err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(ev.Recipients))
	seen := make(map[domain.Recipient]struct{}, len(ev.Recipients))
	for _, r := range ev.Recipients {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}

		title, body, category := phrase(ev, r.Role, now)
		msgs = append(msgs, domain.Message{
			UserID:   r.UserID,
			Title:    title,
			Body:     body,
			Category: category,
		})
	}
	return msgs, nil
}

func checkEvent(ev domain.NotificationEvent) error {
	needTask, needBug := false, false
	switch ev.Kind {
	case domain.EventDeadlineApproaching, domain.EventTaskAssigned,
		domain.EventTaskUpdated, domain.EventTaskStatusChanged:
		needTask = true
	case domain.EventBugOverdue:
		needBug = true
	case domain.EventBugReported, domain.EventBugUpdated, domain.EventBugStatusChanged:
		needTask, needBug = true, true
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownEventKind, ev.Kind)
	}
	if needTask && ev.Task == nil {
		return fmt.Errorf("%w: %s needs a task", domain.ErrInvalidEvent, ev.Kind)
	}
	if needBug && ev.Bug == nil {
		return fmt.Errorf("%w: %s needs a bug", domain.ErrInvalidEvent, ev.Kind)
	}
	return nil
}

func phrase(ev domain.NotificationEvent, role domain.Role, now time.Time) (title, body string, category domain.Category) {
	manager := role == domain.RoleManager
	actor := ev.Actor
	if actor == "" {
		actor = "a teammate"
	}

	switch ev.Kind {
	case domain.EventDeadlineApproaching:
		left := plural(wholeHours(ev.Task.EndAt.Sub(now)), "hour")
		if manager {
			return "Task Deadline Approaching",
				fmt.Sprintf("Task %q you created is due in %s.", ev.Task.Name, left),
				domain.CategoryDeadline
		}
		return "Task Deadline Approaching",
			fmt.Sprintf("Task %q assigned to you is due in %s.", ev.Task.Name, left),
			domain.CategoryDeadline

	case domain.EventBugOverdue:
		late := plural(wholeHours(now.Sub(ev.Bug.EndAt))/24, "day")
		if manager {
			on := ""
			if ev.Task != nil {
				on = fmt.Sprintf(" on task %q", ev.Task.Name)
			}
			return "Bug Overdue",
				fmt.Sprintf("Bug %q%s is %s overdue and still not resolved.", ev.Bug.Name, on, late),
				domain.CategoryOverdue
		}
		return "Bug Overdue",
			fmt.Sprintf("Bug %q you are working on is %s overdue.", ev.Bug.Name, late),
			domain.CategoryOverdue

	case domain.EventTaskAssigned:
		if manager {
			return "Task Assigned",
				fmt.Sprintf("Task %q has been assigned by %s.", ev.Task.Name, actor),
				domain.CategoryAssignment
		}
		return "New Task Assigned",
			fmt.Sprintf("You have been assigned to task %q by %s.", ev.Task.Name, actor),
			domain.CategoryAssignment

	case domain.EventTaskUpdated:
		if manager {
			return "Task Updated",
				fmt.Sprintf("%s updated task %q.", capitalize(actor), ev.Task.Name),
				domain.CategoryTaskUpdate
		}
		return "Task Updated",
			fmt.Sprintf("Task %q assigned to you was updated by %s.", ev.Task.Name, actor),
			domain.CategoryTaskUpdate

	case domain.EventTaskStatusChanged:
		change := statusChange(ev.OldStatus, ev.NewStatus)
		if manager {
			return "Task Status Changed",
				fmt.Sprintf("Task %q you created %s.", ev.Task.Name, change),
				domain.CategoryStatusUpdate
		}
		return "Task Status Changed",
			fmt.Sprintf("Task %q assigned to you %s.", ev.Task.Name, change),
			domain.CategoryStatusUpdate

	case domain.EventBugReported:
		if manager {
			return "New Bug Reported",
				fmt.Sprintf("%s reported bug %q on task %q.", capitalize(actor), ev.Bug.Name, ev.Task.Name),
				domain.CategoryBugReport
		}
		return "New Bug Reported",
			fmt.Sprintf("A new bug %q was reported on your task %q.", ev.Bug.Name, ev.Task.Name),
			domain.CategoryBugReport

	case domain.EventBugUpdated:
		if manager {
			return "Bug Updated",
				fmt.Sprintf("%s updated bug %q on task %q.", capitalize(actor), ev.Bug.Name, ev.Task.Name),
				domain.CategoryBugUpdate
		}
		return "Bug Updated",
			fmt.Sprintf("Bug %q on your task %q was updated by %s.", ev.Bug.Name, ev.Task.Name, actor),
			domain.CategoryBugUpdate

	default: // domain.EventBugStatusChanged
		change := statusChange(ev.OldStatus, ev.NewStatus)
		if manager {
			return "Bug Status Changed",
				fmt.Sprintf("Bug %q on task %q %s.", ev.Bug.Name, ev.Task.Name, change),
				domain.CategoryBugStatusUpdate
		}
		return "Bug Status Changed",
			fmt.Sprintf("Bug %q on your task %q %s.", ev.Bug.Name, ev.Task.Name, change),
			domain.CategoryBugStatusUpdate
	}
}

// wholeHours truncates toward zero and never goes negative.
func wholeHours(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Hour)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func statusChange(from, to string) string {
	if from == "" {
		return "is now " + humanStatus(to)
	}
	return fmt.Sprintf("changed from %s to %s", humanStatus(from), humanStatus(to))
}

func humanStatus(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
