package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/session"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// stubAuthority lets every handler test run behind the real Session middleware.
type stubAuthority struct {
	identity *domain.Identity
}

func (s *stubAuthority) Resume(_ context.Context, sc *session.Context) bool {
	if s.identity == nil {
		return false
	}
	sc.Session = &domain.Session{ID: "s-1", Identity: *s.identity}
	return true
}

func (s *stubAuthority) RequireAuth(sc *session.Context) error {
	if sc.Session == nil {
		return domain.ErrUnauthenticated
	}
	return nil
}

func (s *stubAuthority) RequireRole(sc *session.Context, _ ...domain.Role) error {
	return s.RequireAuth(sc)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var errBoom = errors.New("boom")
