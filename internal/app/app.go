// Package app wires the notification pipeline shared by the server, the
// scheduler and the one-shot scan command.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/taskboard/config"
	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/email"
	"github.com/ErlanBelekov/taskboard/internal/health"
	"github.com/ErlanBelekov/taskboard/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
)

type Notifications struct {
	Sender   email.Sender
	Notifier *usecase.Notifier
}

// NewNotifications loads the SMTP settings once and builds the sender,
// dispatcher and notifier. Missing SMTP settings are not an error: the
// sender falls back to one that reports mail as unconfigured.
func NewNotifications(ctx context.Context, cfg *config.Config, db postgres.DBTX, logger *slog.Logger) (*Notifications, error) {
	opts := email.Options{
		Transport:    cfg.MailTransport,
		ResendAPIKey: cfg.ResendAPIKey,
		ResendFrom:   cfg.ResendFrom,
	}

	if cfg.MailTransport == email.TransportSMTP {
		smtpCfg, err := email.LoadSMTPConfig(ctx, postgres.NewSettingsRepository(db))
		switch {
		case errors.Is(err, domain.ErrMailNotConfigured):
			// NewSender logs and falls back.
		case err != nil:
			return nil, fmt.Errorf("smtp settings: %w", err)
		default:
			opts.SMTP = smtpCfg
		}
	}

	sender := email.NewSender(opts, logger)
	users := postgres.NewUserRepository(db)

	dispatcher := usecase.NewDispatcher(
		postgres.NewNotificationRepository(db),
		users,
		sender,
		email.NewRenderer(cfg.AppBaseURL),
		logger,
		cfg.MailConcurrency,
		cfg.MailTimeout,
	)
	notifier := usecase.NewNotifier(
		postgres.NewTaskRepository(db),
		postgres.NewBugRepository(db),
		dispatcher,
		cfg.DeadlineWarning(),
		logger,
	)

	return &Notifications{Sender: sender, Notifier: notifier}, nil
}

// MailDependency reports mail as a non-critical readiness dependency: down
// while no transport is configured, up otherwise.
func MailDependency(sender email.Sender) health.Dependency {
	return health.Dependency{
		Name: "mail",
		Pinger: health.PingFunc(func(context.Context) error {
			if _, ok := sender.(email.UnconfiguredSender); ok {
				return domain.ErrMailNotConfigured
			}
			return nil
		}),
	}
}
