package domain

import "time"

type EventKind string

const (
	EventDeadlineApproaching EventKind = "deadline_approaching"
	EventBugOverdue          EventKind = "bug_overdue"
	EventTaskAssigned        EventKind = "task_assigned"
	EventTaskUpdated         EventKind = "task_updated"
	EventTaskStatusChanged   EventKind = "task_status_changed"
	EventBugReported         EventKind = "bug_reported"
	EventBugUpdated          EventKind = "bug_updated"
	EventBugStatusChanged    EventKind = "bug_status_changed"
)

// Recipient is one user an event is addressed to. Role selects the wording,
// it is not re-read from the user record.
type Recipient struct {
	UserID string
	Role   Role
}

type TaskRef struct {
	ID    string
	Name  string
	EndAt time.Time
}

type BugRef struct {
	ID    string
	Name  string
	EndAt time.Time
}

// NotificationEvent describes something that happened in the tracker. Which
// fields are meaningful depends on Kind:
//
//	deadline_approaching  Task
//	bug_overdue           Bug, Task (owning task name)
//	task_assigned         Task, Actor
//	task_updated          Task, Actor
//	task_status_changed   Task, OldStatus, NewStatus
//	bug_reported          Bug, Task, Actor
//	bug_updated           Bug, Task, Actor
//	bug_status_changed    Bug, Task, OldStatus, NewStatus
type NotificationEvent struct {
	Kind       EventKind
	Task       *TaskRef
	Bug        *BugRef
	Actor      string
	OldStatus  string
	NewStatus  string
	Recipients []Recipient
}
