package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/metrics"
	"github.com/ErlanBelekov/taskboard/internal/repository"
)

const DefaultDeadlineWarning = 8 * time.Hour

// SuppressionPolicy decides whether a scan should notify a user about an item
// again. Scans keep no memory of their own.
type SuppressionPolicy interface {
	ShouldNotify(ctx context.Context, kind domain.EventKind, itemID, userID string) bool
}

// AlwaysNotify re-sends on every run while the item still matches.
type AlwaysNotify struct{}

func (AlwaysNotify) ShouldNotify(context.Context, domain.EventKind, string, string) bool { return true }

// ScanReport is what one scan run did. Items is the number of tasks or bugs
// that matched; Delivery is summed over all of them.
type ScanReport struct {
	Items    int                `json:"items"`
	Delivery domain.BatchResult `json:"delivery"`
}

// Notifier raises domain events and runs the time-based scans.
type Notifier struct {
	tasks      repository.TaskRepository
	bugs       repository.BugRepository
	dispatcher *Dispatcher
	suppress   SuppressionPolicy
	warning    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewNotifier(
	tasks repository.TaskRepository,
	bugs repository.BugRepository,
	dispatcher *Dispatcher,
	warning time.Duration,
	logger *slog.Logger,
) *Notifier {
	if warning <= 0 {
		warning = DefaultDeadlineWarning
	}
	return &Notifier{
		tasks:      tasks,
		bugs:       bugs,
		dispatcher: dispatcher,
		suppress:   AlwaysNotify{},
		warning:    warning,
		now:        time.Now,
		logger:     logger.With("component", "notifier"),
	}
}

func (n *Notifier) WithSuppression(p SuppressionPolicy) *Notifier {
	n.suppress = p
	return n
}

// WithClock replaces the time source. Used by tests.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

// RaiseEvent classifies ev and delivers it. Only a malformed event is an
// error; delivery problems show up in the result.
func (n *Notifier) RaiseEvent(ctx context.Context, ev domain.NotificationEvent) (domain.BatchResult, error) {
	msgs, err := Classify(ev, n.now())
	if err != nil {
		return domain.BatchResult{}, err
	}
	res := n.dispatcher.Deliver(ctx, msgs)
	n.logger.InfoContext(ctx, "event delivered",
		"kind", ev.Kind,
		"created", res.Created,
		"store_failures", res.StoreFailures,
		"emails_attempted", res.EmailsAttempted,
		"email_failures", res.EmailFailures,
	)
	return res, nil
}

// RunDeadlineScan notifies assignees and creators of open tasks ending within
// the warning window.
func (n *Notifier) RunDeadlineScan(ctx context.Context) (ScanReport, error) {
	start := time.Now()
	now := n.now()

	tasks, err := n.tasks.ListDueBetween(ctx, now, now.Add(n.warning))
	if err != nil {
		return ScanReport{}, fmt.Errorf("deadline scan: %w", err)
	}

	var msgs []domain.Message
	for _, t := range tasks {
		ev := domain.NotificationEvent{
			Kind: domain.EventDeadlineApproaching,
			Task: &domain.TaskRef{ID: t.TaskID, Name: t.Name, EndAt: t.EndAt},
		}
		for _, uid := range t.AssigneeIDs {
			ev.Recipients = n.appendRecipient(ctx, ev.Recipients, ev.Kind, t.TaskID, uid, domain.RoleDeveloper)
		}
		ev.Recipients = n.appendRecipient(ctx, ev.Recipients, ev.Kind, t.TaskID, t.CreatorID, domain.RoleManager)

		m, err := Classify(ev, now)
		if err != nil {
			return ScanReport{}, fmt.Errorf("classify task %s: %w", t.TaskID, err)
		}
		msgs = append(msgs, m...)
	}

	return n.finishScan(ctx, "deadline", start, len(tasks), msgs), nil
}

// RunOverdueScan notifies the owning task's creator once per unresolved bug
// past its end date.
func (n *Notifier) RunOverdueScan(ctx context.Context) (ScanReport, error) {
	start := time.Now()
	now := n.now()

	bugs, err := n.bugs.ListOverdue(ctx, now)
	if err != nil {
		return ScanReport{}, fmt.Errorf("overdue scan: %w", err)
	}

	var msgs []domain.Message
	for _, b := range bugs {
		ev := domain.NotificationEvent{
			Kind: domain.EventBugOverdue,
			Bug:  &domain.BugRef{ID: b.BugID, Name: b.Name, EndAt: b.EndAt},
			Task: &domain.TaskRef{ID: b.TaskID, Name: b.TaskName},
		}
		ev.Recipients = n.appendRecipient(ctx, nil, ev.Kind, b.BugID, b.ManagerID, domain.RoleManager)

		m, err := Classify(ev, now)
		if err != nil {
			return ScanReport{}, fmt.Errorf("classify bug %s: %w", b.BugID, err)
		}
		msgs = append(msgs, m...)
	}

	return n.finishScan(ctx, "overdue", start, len(bugs), msgs), nil
}

func (n *Notifier) appendRecipient(ctx context.Context, rs []domain.Recipient, kind domain.EventKind, itemID, userID string, role domain.Role) []domain.Recipient {
	if userID == "" || !n.suppress.ShouldNotify(ctx, kind, itemID, userID) {
		return rs
	}
	return append(rs, domain.Recipient{UserID: userID, Role: role})
}

func (n *Notifier) finishScan(ctx context.Context, scan string, start time.Time, items int, msgs []domain.Message) ScanReport {
	report := ScanReport{Items: items, Delivery: n.dispatcher.Deliver(ctx, msgs)}

	metrics.ScanDuration.WithLabelValues(scan).Observe(time.Since(start).Seconds())
	metrics.ScanItemsTotal.WithLabelValues(scan).Add(float64(items))
	n.logger.InfoContext(ctx, "scan finished",
		"scan", scan,
		"items", items,
		"created", report.Delivery.Created,
		"store_failures", report.Delivery.StoreFailures,
		"emails_attempted", report.Delivery.EmailsAttempted,
		"email_failures", report.Delivery.EmailFailures,
		"duration", time.Since(start),
	)
	return report
}
