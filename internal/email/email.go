package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/resend/resend-go/v2"
)

// Sender delivers one HTML message to one address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

const (
	TransportLog    = "log"
	TransportSMTP   = "smtp"
	TransportResend = "resend"
)

// LogSender logs emails instead of sending them. Used for local development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "mail")}
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("email (log transport)", "to", to, "subject", subject)
	return nil
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("%w: resend: %w", domain.ErrMailDeliveryFailed, err)
	}
	return nil
}

// UnconfiguredSender is installed when the selected transport has no usable
// settings. Every send fails with domain.ErrMailNotConfigured.
type UnconfiguredSender struct{}

func (UnconfiguredSender) Send(context.Context, string, string, string) error {
	return domain.ErrMailNotConfigured
}

type Options struct {
	Transport    string
	ResendAPIKey string
	ResendFrom   string

	// SMTP is nil when the settings table holds no usable SMTP configuration.
	SMTP *SMTPConfig
}

// NewSender picks the transport named in opts.
func NewSender(opts Options, logger *slog.Logger) Sender {
	switch opts.Transport {
	case TransportSMTP:
		if opts.SMTP == nil {
			logger.Warn("smtp transport selected but not configured, emails will be skipped")
			return UnconfiguredSender{}
		}
		return NewSMTPSender(*opts.SMTP)
	case TransportResend:
		if opts.ResendAPIKey == "" || opts.ResendFrom == "" {
			logger.Warn("resend transport selected but not configured, emails will be skipped")
			return UnconfiguredSender{}
		}
		return NewResendSender(opts.ResendAPIKey, opts.ResendFrom)
	default:
		return NewLogSender(logger)
	}
}
