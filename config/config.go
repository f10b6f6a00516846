package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string `env:"ENV"          envDefault:"local" validate:"required,oneof=local staging production"`
	Port        string `env:"PORT"         envDefault:"8080"  validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE"          envDefault:"false"`

	SessionSecret string        `env:"SESSION_SECRET,required" validate:"required,min=32"`
	SessionTTL    time.Duration `env:"SESSION_TTL"             envDefault:"2h" validate:"min=1m"`
	CookieSecure  bool          `env:"COOKIE_SECURE"           envDefault:"false"`

	LoginRateLimitPerMin int `env:"LOGIN_RATE_LIMIT_PER_MIN" envDefault:"10" validate:"min=1,max=1000"`

	DeadlineWarningHours int    `env:"DEADLINE_WARNING_HOURS" envDefault:"8"           validate:"min=1,max=168"`
	DeadlineScanCron     string `env:"DEADLINE_SCAN_CRON"     envDefault:"0 * * * *"   validate:"required"`
	OverdueScanCron      string `env:"OVERDUE_SCAN_CRON"      envDefault:"0 9 * * *"   validate:"required"`
	TokenReapCron        string `env:"TOKEN_REAP_CRON"        envDefault:"*/30 * * * *" validate:"required"`

	MailTransport   string        `env:"MAIL_TRANSPORT"   envDefault:"log" validate:"oneof=log smtp resend"`
	ResendAPIKey    string        `env:"RESEND_API_KEY"   validate:"required_if=MailTransport resend"`
	ResendFrom      string        `env:"RESEND_FROM"      validate:"required_if=MailTransport resend"`
	MailConcurrency int           `env:"MAIL_CONCURRENCY" envDefault:"4"   validate:"min=1,max=64"`
	MailTimeout     time.Duration `env:"MAIL_TIMEOUT"     envDefault:"15s"`

	AppBaseURL  string `env:"APP_BASE_URL" envDefault:"http://localhost:8080" validate:"omitempty,url"`
	IngestToken string `env:"INGEST_TOKEN" validate:"required_unless=Env local"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds the config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) DeadlineWarning() time.Duration {
	return time.Duration(c.DeadlineWarningHours) * time.Hour
}
