package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/wneessen/go-mail"
)

// Keys of the settings table that make up the SMTP configuration.
const (
	SettingHost       = "smtp_host"
	SettingUsername   = "smtp_username"
	SettingPassword   = "smtp_password"
	SettingPort       = "smtp_port"
	SettingEncryption = "smtp_encryption"
	SettingFromEmail  = "smtp_from_email"
	SettingFromName   = "smtp_from_name"
)

const (
	EncryptionSSL  = "ssl"
	EncryptionTLS  = "tls"
	EncryptionNone = "none"
)

type SMTPConfig struct {
	Host       string `validate:"required,hostname_rfc1123|ip"`
	Port       int    `validate:"required,min=1,max=65535"`
	Username   string
	Password   string `validate:"required_with=Username"`
	Encryption string `validate:"oneof=ssl tls none"`
	FromEmail  string `validate:"required,email"`
	FromName   string
}

// LoadSMTPConfig reads the SMTP settings once. A missing smtp_host means mail
// is simply not configured and yields domain.ErrMailNotConfigured; anything
// present but unusable is a hard error.
func LoadSMTPConfig(ctx context.Context, repo repository.SettingsRepository) (*SMTPConfig, error) {
	vals, err := repo.GetMany(ctx,
		SettingHost, SettingUsername, SettingPassword, SettingPort,
		SettingEncryption, SettingFromEmail, SettingFromName,
	)
	if err != nil {
		return nil, fmt.Errorf("load smtp settings: %w", err)
	}
	return ParseSMTPSettings(vals)
}

func ParseSMTPSettings(vals map[string]string) (*SMTPConfig, error) {
	if vals[SettingHost] == "" {
		return nil, domain.ErrMailNotConfigured
	}

	cfg := &SMTPConfig{
		Host:       vals[SettingHost],
		Username:   vals[SettingUsername],
		Encryption: vals[SettingEncryption],
		FromEmail:  vals[SettingFromEmail],
		FromName:   vals[SettingFromName],
	}
	if cfg.Encryption == "" {
		cfg.Encryption = EncryptionTLS
	}

	cfg.Port = 587
	if p := vals[SettingPort]; p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("smtp_port %q: %w", p, err)
		}
		cfg.Port = port
	}

	if enc := vals[SettingPassword]; enc != "" {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("decode smtp_password: %w", err)
		}
		cfg.Password = string(raw)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid smtp settings: %w", err)
	}
	return cfg, nil
}

// SMTPSender delivers through a mail server described by SMTPConfig. A new
// connection is dialed per message.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	switch s.cfg.Encryption {
	case EncryptionSSL:
		opts = append(opts, mail.WithSSL())
	case EncryptionNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("%w: from address: %w", domain.ErrMailDeliveryFailed, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRecipientAddress, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %w", domain.ErrMailDeliveryFailed, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: smtp send: %w", domain.ErrMailDeliveryFailed, err)
	}
	return nil
}
