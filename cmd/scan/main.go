// scan runs one notification scan right away and prints what it did.
// Run: go run ./cmd/scan deadline|overdue
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/taskboard/config"
	"github.com/ErlanBelekov/taskboard/internal/app"
	"github.com/ErlanBelekov/taskboard/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/taskboard/internal/log"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
	"github.com/lmittmann/tint"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: scan deadline|overdue")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	notifications, err := app.NewNotifications(ctx, cfg, pool, logger)
	if err != nil {
		log.Fatalf("notifications: %v", err)
	}

	var run func(context.Context) (usecase.ScanReport, error)
	switch os.Args[1] {
	case "deadline":
		run = notifications.Notifier.RunDeadlineScan
	case "overdue":
		run = notifications.Notifier.RunOverdueScan
	default:
		fmt.Fprintf(os.Stderr, "unknown scan %q: want deadline or overdue\n", os.Args[1])
		os.Exit(2)
	}

	report, err := run(ctx)
	if err != nil {
		log.Fatalf("%s scan: %v", os.Args[1], err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

// Logs go to stderr so stdout carries only the report.
func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
