package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/taskboard/config"
	"github.com/ErlanBelekov/taskboard/internal/app"
	"github.com/ErlanBelekov/taskboard/internal/health"
	"github.com/ErlanBelekov/taskboard/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/taskboard/internal/log"
	"github.com/ErlanBelekov/taskboard/internal/metrics"
	"github.com/ErlanBelekov/taskboard/internal/scheduler"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

// A scan that runs longer than this is cut off; the next tick picks up what is left.
const scanTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	notifications, err := app.NewNotifications(ctx, cfg, pool, logger)
	if err != nil {
		stop()
		log.Fatalf("notifications: %v", err)
	}
	notifier := notifications.Notifier

	tokens := usecase.NewTokenManager(postgres.NewTokenRepository(pool), postgres.NewUserRepository(pool), logger)
	reaper := scheduler.NewReaper(tokens, logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool, Critical: true},
		app.MailDependency(notifications.Sender),
	)

	dispatcher := scheduler.NewDispatcher(logger)
	jobs := []struct {
		name, spec string
		timeout    time.Duration
		run        scheduler.JobFunc
	}{
		{scheduler.JobDeadlineScan, cfg.DeadlineScanCron, scanTimeout, func(ctx context.Context) error {
			_, err := notifier.RunDeadlineScan(ctx)
			return err
		}},
		{scheduler.JobOverdueScan, cfg.OverdueScanCron, scanTimeout, func(ctx context.Context) error {
			_, err := notifier.RunOverdueScan(ctx)
			return err
		}},
		{scheduler.JobTokenReap, cfg.TokenReapCron, time.Minute, reaper.Reap},
	}
	for _, j := range jobs {
		if err := dispatcher.Add(j.name, j.spec, j.timeout, j.run); err != nil {
			stop()
			log.Fatalf("schedule: %v", err)
		}
	}
	go dispatcher.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("scheduler shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
