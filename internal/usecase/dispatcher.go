package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/email"
	"github.com/ErlanBelekov/taskboard/internal/metrics"
	"github.com/ErlanBelekov/taskboard/internal/repository"
	"github.com/go-playground/validator/v10"
)

const (
	defaultMailConcurrency = 4
	defaultMailTimeout     = 15 * time.Second
)

// Dispatcher delivers classified messages on two independent channels: an
// in-app notification row and an email. Neither outcome affects the other.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	sender        email.Sender
	renderer      *email.Renderer
	validate      *validator.Validate
	logger        *slog.Logger
	concurrency   int
	sendTimeout   time.Duration
}

func NewDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	sender email.Sender,
	renderer *email.Renderer,
	logger *slog.Logger,
	concurrency int,
	sendTimeout time.Duration,
) *Dispatcher {
	if concurrency < 1 {
		concurrency = defaultMailConcurrency
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultMailTimeout
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		sender:        sender,
		renderer:      renderer,
		validate:      validator.New(),
		logger:        logger.With("component", "dispatcher"),
		concurrency:   concurrency,
		sendTimeout:   sendTimeout,
	}
}

// Deliver writes every in-app notification first, then attempts every email.
// Failures are counted in the result and logged, never returned.
func (d *Dispatcher) Deliver(ctx context.Context, msgs []domain.Message) domain.BatchResult {
	var res domain.BatchResult
	if len(msgs) == 0 {
		return res
	}

	for _, m := range msgs {
		if _, err := d.notifications.Create(ctx, m.UserID, m.Title, m.Body, m.Category); err != nil {
			res.StoreFailures++
			metrics.NotificationStoreFailuresTotal.Inc()
			d.logger.ErrorContext(ctx, "store notification", "user_id", m.UserID, "category", m.Category, "error", err)
			continue
		}
		res.Created++
		metrics.NotificationsCreatedTotal.WithLabelValues(string(m.Category)).Inc()
	}

	if _, off := d.sender.(email.UnconfiguredSender); off {
		d.logger.DebugContext(ctx, "mail not configured, skipping emails", "count", len(msgs))
		return res
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.concurrency)
	)
	for _, m := range msgs {
		sem <- struct{}{}
		wg.Add(1)
		go func(m domain.Message) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.sendOne(ctx, m)
			if errors.Is(err, domain.ErrMailNotConfigured) {
				return
			}

			mu.Lock()
			res.EmailsAttempted++
			if err != nil {
				res.EmailFailures++
			}
			mu.Unlock()

			if err != nil {
				metrics.EmailsTotal.WithLabelValues("failed").Inc()
				d.logger.WarnContext(ctx, "send notification email", "user_id", m.UserID, "category", m.Category, "error", err)
				return
			}
			metrics.EmailsTotal.WithLabelValues("sent").Inc()
		}(m)
	}
	wg.Wait()

	return res
}

func (d *Dispatcher) sendOne(ctx context.Context, m domain.Message) error {
	user, err := d.users.FindByID(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if err := d.validate.Var(user.Email, "required,email"); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRecipientAddress, user.Email)
	}

	subject, body, err := d.renderer.Render(m)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.sender.Send(sendCtx, user.Email, subject, body)
}
