package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/scheduler"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
	"github.com/gin-gonic/gin"
)

type notifier interface {
	RaiseEvent(ctx context.Context, ev domain.NotificationEvent) (domain.BatchResult, error)
	RunDeadlineScan(ctx context.Context) (usecase.ScanReport, error)
	RunOverdueScan(ctx context.Context) (usecase.ScanReport, error)
}

// jobRunner keeps two scans of the same kind from running at once.
type jobRunner interface {
	Run(ctx context.Context, name string, run scheduler.JobFunc) error
}

// InternalHandler receives domain events from the CRUD side of the tracker
// and lets operators trigger scans on demand.
type InternalHandler struct {
	notifier notifier
	jobs     jobRunner
	logger   *slog.Logger
}

func NewInternalHandler(n notifier, jobs jobRunner, logger *slog.Logger) *InternalHandler {
	return &InternalHandler{notifier: n, jobs: jobs, logger: logger.With("component", "internal_handler")}
}

type refRequest struct {
	ID    string    `json:"id"     binding:"required"`
	Name  string    `json:"name"   binding:"required"`
	EndAt time.Time `json:"end_at"`
}

type recipientRequest struct {
	UserID string      `json:"user_id" binding:"required"`
	Role   domain.Role `json:"role"    binding:"required,oneof=manager developer"`
}

type eventRequest struct {
	Kind       domain.EventKind   `json:"kind"       binding:"required"`
	Task       *refRequest        `json:"task"`
	Bug        *refRequest        `json:"bug"`
	Actor      string             `json:"actor"`
	OldStatus  string             `json:"old_status"`
	NewStatus  string             `json:"new_status"`
	Recipients []recipientRequest `json:"recipients" binding:"required,min=1,dive"`
}

func (r eventRequest) toDomain() domain.NotificationEvent {
	ev := domain.NotificationEvent{
		Kind:      r.Kind,
		Actor:     r.Actor,
		OldStatus: r.OldStatus,
		NewStatus: r.NewStatus,
	}
	if r.Task != nil {
		ev.Task = &domain.TaskRef{ID: r.Task.ID, Name: r.Task.Name, EndAt: r.Task.EndAt}
	}
	if r.Bug != nil {
		ev.Bug = &domain.BugRef{ID: r.Bug.ID, Name: r.Bug.Name, EndAt: r.Bug.EndAt}
	}
	for _, rc := range r.Recipients {
		ev.Recipients = append(ev.Recipients, domain.Recipient{UserID: rc.UserID, Role: rc.Role})
	}
	return ev
}

type batchResponse struct {
	Created         int `json:"created"`
	StoreFailures   int `json:"store_failures"`
	EmailsAttempted int `json:"emails_attempted"`
	EmailFailures   int `json:"email_failures"`
}

func toBatchResponse(r domain.BatchResult) batchResponse {
	return batchResponse{
		Created:         r.Created,
		StoreFailures:   r.StoreFailures,
		EmailsAttempted: r.EmailsAttempted,
		EmailFailures:   r.EmailFailures,
	}
}

// POST /internal/events
func (h *InternalHandler) RaiseEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	res, err := h.notifier.RaiseEvent(c.Request.Context(), req.toDomain())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownEventKind):
			c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownEventKind})
		case errors.Is(err, domain.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidEvent})
		default:
			h.logger.ErrorContext(c.Request.Context(), "raise event", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}
	c.JSON(http.StatusAccepted, toBatchResponse(res))
}

// POST /internal/scans/deadline
func (h *InternalHandler) DeadlineScan(c *gin.Context) {
	h.runScan(c, scheduler.JobDeadlineScan, h.notifier.RunDeadlineScan)
}

// POST /internal/scans/overdue
func (h *InternalHandler) OverdueScan(c *gin.Context) {
	h.runScan(c, scheduler.JobOverdueScan, h.notifier.RunOverdueScan)
}

func (h *InternalHandler) runScan(c *gin.Context, name string, run func(context.Context) (usecase.ScanReport, error)) {
	var report usecase.ScanReport
	err := h.jobs.Run(c.Request.Context(), name, func(ctx context.Context) error {
		var err error
		report, err = run(ctx)
		return err
	})
	if errors.Is(err, scheduler.ErrJobRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": errScanRunning})
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "scan", "scan", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": report.Items, "delivery": toBatchResponse(report.Delivery)})
}
