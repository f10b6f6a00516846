package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/session"
	"github.com/ErlanBelekov/taskboard/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

// sessionAuthority is the subset of SessionAuthority the handler needs.
// Defined here (point of use) so tests can inject a fake.
type sessionAuthority interface {
	Login(ctx context.Context, sc *session.Context, email, password string, remember bool) (domain.Identity, error)
	Logout(ctx context.Context, sc *session.Context) error
}

type AuthHandler struct {
	auth   sessionAuthority
	logger *slog.Logger
}

func NewAuthHandler(auth sessionAuthority, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger.With("component", "auth_handler"),
	}
}

type loginRequest struct {
	Email    string `json:"email"       form:"email"       binding:"required,max=254"`
	Password string `json:"password"    form:"password"    binding:"required,max=72"`
	Remember bool   `json:"remember_me" form:"remember_me"`
}

type identityResponse struct {
	ID     string      `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	Avatar string      `json:"avatar,omitempty"`
}

func toIdentityResponse(id domain.Identity) identityResponse {
	return identityResponse{ID: id.UserID, Email: id.Email, Name: id.Name, Role: id.Role, Avatar: id.Avatar}
}

// POST /auth/login
// The same 401 body is returned for every credential failure.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	sc := middleware.SessionContext(c)
	id, err := h.auth.Login(c.Request.Context(), sc, req.Email, req.Password, req.Remember)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	middleware.FlushCookies(c)
	c.JSON(http.StatusOK, gin.H{"user": toIdentityResponse(id)})
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sc := middleware.SessionContext(c)
	if err := h.auth.Logout(c.Request.Context(), sc); err != nil {
		// The session is gone regardless; a stale token row is reaped later.
		h.logger.WarnContext(c.Request.Context(), "logout revoke", "error", err)
	}
	middleware.FlushCookies(c)

	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, sc.Redirect())
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": sc.Redirect()})
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := middleware.SessionContext(c).Identity()
	c.JSON(http.StatusOK, gin.H{"user": toIdentityResponse(id)})
}

// GET /manager/ping
func (h *AuthHandler) ManagerPing(c *gin.Context) {
	id, _ := middleware.SessionContext(c).Identity()
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": id.Role})
}
