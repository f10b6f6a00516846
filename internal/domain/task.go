package domain

import (
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

type BugStatus string

const (
	BugOpen       BugStatus = "open"
	BugInProgress BugStatus = "in_progress"
	BugResolved   BugStatus = "resolved"
	BugClosed     BugStatus = "closed"
)

// TaskDeadline is the read model the deadline scan works on: a task that is
// close to its end date, with everyone who should hear about it.
type TaskDeadline struct {
	TaskID      string
	Name        string
	Status      TaskStatus
	EndAt       time.Time
	CreatorID   string
	AssigneeIDs []string
}

// OverdueBug is the read model the overdue scan works on.
type OverdueBug struct {
	BugID     string
	Name      string
	Status    BugStatus
	EndAt     time.Time
	TaskID    string
	TaskName  string
	ManagerID string // creator of the owning task
}
