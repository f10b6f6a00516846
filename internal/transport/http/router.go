package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/transport/http/handler"
	"github.com/ErlanBelekov/taskboard/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	SecureCookies  bool
	LoginRateLimit *middleware.RateLimiter
	IngestToken    string
}

func NewRouter(
	logger *slog.Logger,
	auth middleware.Authority,
	authHandler *handler.AuthHandler,
	notificationHandler *handler.NotificationHandler,
	internalHandler *handler.InternalHandler,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Machine-to-machine routes: no session, shared token.
	internal := r.Group("/internal", middleware.IngestToken(cfg.IngestToken))
	internal.POST("/events", internalHandler.RaiseEvent)
	internal.POST("/scans/deadline", internalHandler.DeadlineScan)
	internal.POST("/scans/overdue", internalHandler.OverdueScan)

	web := r.Group("", middleware.Session(auth, cfg.SecureCookies))

	authGroup := web.Group("/auth")
	if cfg.LoginRateLimit != nil {
		authGroup.POST("/login", cfg.LoginRateLimit.Middleware(), authHandler.Login)
	} else {
		authGroup.POST("/login", authHandler.Login)
	}
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", middleware.RequireAuth(auth), authHandler.Me)

	notifications := web.Group("/notifications", middleware.RequireAuth(auth))
	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	manager := web.Group("/manager", middleware.RequireRole(auth, domain.RoleManager))
	manager.GET("/ping", authHandler.ManagerPing)

	return r
}
