package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/session"
	"github.com/ErlanBelekov/taskboard/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuthority resumes a fixed identity when the session cookie equals "good".
type fakeAuthority struct {
	identity domain.Identity
}

func (f *fakeAuthority) Resume(_ context.Context, sc *session.Context) bool {
	if sc.SessionToken == "good" {
		sc.Session = &domain.Session{ID: "s-1", Identity: f.identity}
		return true
	}
	if sc.RememberMe != "" {
		sc.ClearCookie(session.RememberCookie)
	}
	return false
}

func (f *fakeAuthority) RequireAuth(sc *session.Context) error {
	if sc.Session == nil {
		sc.RedirectTo(session.LoginPath)
		return domain.ErrUnauthenticated
	}
	return nil
}

func (f *fakeAuthority) RequireRole(sc *session.Context, roles ...domain.Role) error {
	if err := f.RequireAuth(sc); err != nil {
		return err
	}
	for _, r := range roles {
		if sc.Session.Identity.Role == r {
			return nil
		}
	}
	sc.RedirectTo(session.UnauthorizedPath)
	return domain.ErrForbidden
}

func newSessionEngine(auth *fakeAuthority) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Session(auth, true))
	r.GET("/private", middleware.RequireAuth(auth), func(c *gin.Context) {
		id, _ := middleware.SessionContext(c).Identity()
		c.String(http.StatusOK, id.UserID)
	})
	r.GET("/managers", middleware.RequireRole(auth, domain.RoleManager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_JSONClientGets401(t *testing.T) {
	w := do(newSessionEngine(&fakeAuthority{}), httptest.NewRequest(http.MethodGet, "/private", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuth_BrowserIsRedirectedToLogin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := do(newSessionEngine(&fakeAuthority{}), req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != session.LoginPath {
		t.Fatalf("Location = %q, want %q", loc, session.LoginPath)
	}
}

func TestRequireAuth_ResumedSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "good"})
	w := do(newSessionEngine(&fakeAuthority{identity: domain.Identity{UserID: "u-1"}}), req)

	if w.Code != http.StatusOK || w.Body.String() != "u-1" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	dev := &fakeAuthority{identity: domain.Identity{UserID: "u-1", Role: domain.RoleDeveloper}}

	req := httptest.NewRequest(http.MethodGet, "/managers", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "good"})
	if w := do(newSessionEngine(dev), req); w.Code != http.StatusForbidden {
		t.Fatalf("developer: status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/managers", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "good"})
	w := do(newSessionEngine(dev), req)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != session.UnauthorizedPath {
		t.Fatalf("developer browser: got %d to %q", w.Code, w.Header().Get("Location"))
	}

	mgr := &fakeAuthority{identity: domain.Identity{UserID: "m-1", Role: domain.RoleManager}}
	req = httptest.NewRequest(http.MethodGet, "/managers", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "good"})
	if w := do(newSessionEngine(mgr), req); w.Code != http.StatusOK {
		t.Fatalf("manager: status = %d, want 200", w.Code)
	}
}

func TestSession_FailedSilentLoginClearsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: session.RememberCookie, Value: "u-1:stale"})
	w := do(newSessionEngine(&fakeAuthority{}), req)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == session.RememberCookie && c.MaxAge < 0 {
			cleared = true
			if !c.HttpOnly || !c.Secure || c.Path != "/" {
				t.Fatalf("unexpected cookie attributes %+v", c)
			}
		}
	}
	if !cleared {
		t.Fatal("expected remember_me to be cleared")
	}
}

func TestIngestToken(t *testing.T) {
	r := gin.New()
	r.POST("/internal", middleware.IngestToken("s3cret-ingest-token"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/internal", nil)
	if w := do(r, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set(middleware.IngestTokenHeader, "wrong")
	if w := do(r, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set(middleware.IngestTokenHeader, "s3cret-ingest-token")
	if w := do(r, req); w.Code != http.StatusNoContent {
		t.Fatalf("right token: status = %d, want 204", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := middleware.NewRateLimiter(2).WithClock(func() time.Time { return now })

	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		return do(r, req)
	}

	for i := range 2 {
		if w := post(); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}
	w := post()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After")
	}

	now = now.Add(61 * time.Second)
	if w := post(); w.Code != http.StatusOK {
		t.Fatalf("after window: status = %d, want 200", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	if got := do(r, req).Header().Get("X-Request-ID"); got != "upstream-42" {
		t.Fatalf("expected upstream id preserved, got %q", got)
	}

	got := do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get("X-Request-ID")
	if len(got) != 36 || strings.Count(got, "-") != 4 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}
