package domain

import (
	"errors"
	"time"
)

var (
	ErrStore                   = errors.New("datastore failure")
	ErrMailNotConfigured       = errors.New("mail transport is not configured")
	ErrMailDeliveryFailed      = errors.New("mail delivery failed")
	ErrInvalidRecipientAddress = errors.New("invalid recipient address")
	ErrUnknownEventKind        = errors.New("unknown notification event kind")
	ErrInvalidEvent            = errors.New("notification event is missing required fields")
)

type Category string

const (
	CategoryDeadline        Category = "deadline"
	CategoryAssignment      Category = "assignment"
	CategoryTaskUpdate      Category = "task_update"
	CategoryStatusUpdate    Category = "status_update"
	CategoryBugReport       Category = "bug_report"
	CategoryBugUpdate       Category = "bug_update"
	CategoryBugStatusUpdate Category = "bug_status_update"
	CategoryOverdue         Category = "overdue"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDeadline, CategoryAssignment, CategoryTaskUpdate, CategoryStatusUpdate,
		CategoryBugReport, CategoryBugUpdate, CategoryBugStatusUpdate, CategoryOverdue:
		return true
	}
	return false
}

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Category  Category
	IsRead    bool
	CreatedAt time.Time
}

// Message is one classified notification for one recipient, ready for delivery.
type Message struct {
	UserID   string
	Title    string
	Body     string
	Category Category
}

// BatchResult reports what the dispatcher managed to do for a batch of messages.
// Created + StoreFailures always equals the number of messages handed in.
type BatchResult struct {
	Created         int `json:"created"`
	StoreFailures   int `json:"store_failures"`
	EmailsAttempted int `json:"emails_attempted"`
	EmailFailures   int `json:"email_failures"`
}

func (r *BatchResult) Add(o BatchResult) {
	r.Created += o.Created
	r.StoreFailures += o.StoreFailures
	r.EmailsAttempted += o.EmailsAttempted
	r.EmailFailures += o.EmailFailures
}
