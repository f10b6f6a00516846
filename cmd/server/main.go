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
	"github.com/ErlanBelekov/taskboard/internal/session"
	httptransport "github.com/ErlanBelekov/taskboard/internal/transport/http"
	"github.com/ErlanBelekov/taskboard/internal/transport/http/handler"
	"github.com/ErlanBelekov/taskboard/internal/transport/http/middleware"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const sessionPurgeInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	// Auth
	userRepo := postgres.NewUserRepository(pool)
	creds, err := usecase.NewCredentialStore(userRepo, bcrypt.DefaultCost)
	if err != nil {
		stop()
		log.Fatalf("credentials: %v", err)
	}
	tokens := usecase.NewTokenManager(postgres.NewTokenRepository(pool), userRepo, logger)
	authority := usecase.NewSessionAuthority(
		creds,
		tokens,
		session.NewMemoryStore(cfg.SessionTTL),
		session.NewCodec([]byte(cfg.SessionSecret)),
		logger,
	)
	authHandler := handler.NewAuthHandler(authority, logger)

	// Notifications
	notifications, err := app.NewNotifications(ctx, cfg, pool, logger)
	if err != nil {
		stop()
		log.Fatalf("notifications: %v", err)
	}
	notificationUsecase := usecase.NewNotificationUsecase(postgres.NewNotificationRepository(pool), logger)
	notificationHandler := handler.NewNotificationHandler(notificationUsecase, logger)
	// Never started: it only guards on-demand scans against overlapping.
	scans := scheduler.NewDispatcher(logger)
	internalHandler := handler.NewInternalHandler(notifications.Notifier, scans, logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool, Critical: true},
		app.MailDependency(notifications.Sender),
	)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimitPerMin)
	go purgeLoop(ctx, authority, loginLimiter, logger)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authority, authHandler, notificationHandler, internalHandler,
			httptransport.RouterConfig{
				SecureCookies:  cfg.CookieSecure,
				LoginRateLimit: loginLimiter,
				IngestToken:    cfg.IngestToken,
			}),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

// purgeLoop drops expired in-memory sessions and stale rate limiter windows.
func purgeLoop(ctx context.Context, authority *usecase.SessionAuthority, limiter *middleware.RateLimiter, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := authority.PurgeSessions(); n > 0 {
				logger.Debug("expired sessions purged", "count", n)
			}
			limiter.Sweep()
		}
	}
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
