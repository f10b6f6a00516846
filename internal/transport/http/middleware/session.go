package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	ctxlog "github.com/ErlanBelekov/taskboard/internal/log"
	"github.com/ErlanBelekov/taskboard/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey      = "session"
	cookieSecureKey = "cookieSecure"

	errUnauthorized = "Unauthorized"
	errForbidden    = "Forbidden"
)

// Authority is the part of the session authority the middleware needs.
type Authority interface {
	Resume(ctx context.Context, sc *session.Context) bool
	RequireAuth(sc *session.Context) error
	RequireRole(sc *session.Context, roles ...domain.Role) error
}

// Session builds the per-request session.Context from the cookies, resumes
// the session (silently logging in from remember_me when needed) and writes
// any resulting cookie changes right away.
func Session(auth Authority, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, _ := c.Cookie(session.CookieName)
		remember, _ := c.Cookie(session.RememberCookie)

		sc := session.NewContext(sessionToken, remember)
		c.Set(sessionKey, sc)
		c.Set(cookieSecureKey, secureCookies)

		if auth.Resume(c.Request.Context(), sc) {
			id, _ := sc.Identity()
			c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), id.UserID))
		}
		FlushCookies(c)
		c.Next()
	}
}

// SessionContext returns the session.Context built by Session. It panics if
// the middleware is not installed.
func SessionContext(c *gin.Context) *session.Context {
	return c.MustGet(sessionKey).(*session.Context)
}

// FlushCookies writes every pending cookie instruction as a Set-Cookie header.
func FlushCookies(c *gin.Context) {
	sc := SessionContext(c)
	secure := c.GetBool(cookieSecureKey)

	c.SetSameSite(http.SameSiteLaxMode)
	for _, ck := range sc.TakeCookies() {
		c.SetCookie(ck.Name, ck.Value, ck.MaxAge, ck.Path, "", secure, ck.HTTPOnly)
	}
}

func RequireAuth(auth Authority) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := SessionContext(c)
		if err := auth.RequireAuth(sc); err != nil {
			Deny(c, sc, err)
			return
		}
		c.Next()
	}
}

func RequireRole(auth Authority, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := SessionContext(c)
		if err := auth.RequireRole(sc, roles...); err != nil {
			Deny(c, sc, err)
			return
		}
		c.Next()
	}
}

// Deny answers an auth failure: browsers are redirected to the surface the
// authority picked, API clients get 401 or 403.
func Deny(c *gin.Context, sc *session.Context, err error) {
	FlushCookies(c)

	if WantsHTML(c) && sc.Redirect() != "" {
		c.Redirect(http.StatusSeeOther, sc.Redirect())
		c.Abort()
		return
	}

	status, msg := http.StatusUnauthorized, errUnauthorized
	if errors.Is(err, domain.ErrForbidden) {
		status, msg = http.StatusForbidden, errForbidden
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func WantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
