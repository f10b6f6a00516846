package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/session"
	"github.com/ErlanBelekov/taskboard/internal/usecase"
)

const testSessionKey = "test-session-secret-at-least-32-chars!"

type authFixture struct {
	auth   *usecase.SessionAuthority
	tokens *memTokens
	store  *session.MemoryStore
	clock  *testClock
}

func newAuthority(t *testing.T, users ...*domain.User) *authFixture {
	t.Helper()
	repo := newUsers(users...)
	tokens := newTokens()
	tm, clk := newTokenManager(tokens, repo)
	store := session.NewMemoryStore(2 * time.Hour).WithClock(clk.Now)
	codec := session.NewCodec([]byte(testSessionKey)).WithClock(clk.Now)
	return &authFixture{
		auth:   usecase.NewSessionAuthority(newCredentials(t, repo), tm, store, codec, discard),
		tokens: tokens,
		store:  store,
		clock:  clk,
	}
}

func cookieNamed(sc *session.Context, name string) (session.Cookie, bool) {
	var found session.Cookie
	ok := false
	for _, c := range sc.Cookies() {
		if c.Name == name {
			found, ok = c, true
		}
	}
	return found, ok
}

func TestLogin_WithoutRemember(t *testing.T) {
	f := newAuthority(t, devA)
	sc := session.NewContext("", "")

	id, err := f.auth.Login(context.Background(), sc, devA.Email, "dev-pass", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.UserID != devA.ID || sc.Session == nil {
		t.Fatal("expected an established session")
	}
	if _, ok := cookieNamed(sc, session.CookieName); !ok {
		t.Fatal("expected a session cookie")
	}
	if _, ok := cookieNamed(sc, session.RememberCookie); ok {
		t.Fatal("remember_me must not be set without remember")
	}
	if f.tokens.count() != 0 {
		t.Fatal("no persistent token expected")
	}
}

func TestLogin_RememberSetsCookie(t *testing.T) {
	f := newAuthority(t, devA)
	sc := session.NewContext("", "")

	if _, err := f.auth.Login(context.Background(), sc, devA.Email, "dev-pass", true); err != nil {
		t.Fatalf("login: %v", err)
	}
	c, ok := cookieNamed(sc, session.RememberCookie)
	if !ok {
		t.Fatal("expected remember_me cookie")
	}
	if c.MaxAge != 30*24*60*60 || !c.HTTPOnly || c.Path != "/" {
		t.Fatalf("unexpected cookie attributes %+v", c)
	}
	if !cookieShape.MatchString(c.Value) {
		t.Fatalf("unexpected cookie value %q", c.Value)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newAuthority(t, devA)
	sc := session.NewContext("", "")

	_, err := f.auth.Login(context.Background(), sc, devA.Email, "wrong", true)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if sc.Session != nil || len(sc.Cookies()) != 0 {
		t.Fatal("failed login must not touch the session or cookies")
	}
}

func TestResume_FromSessionCookie(t *testing.T) {
	f := newAuthority(t, devA)
	first := session.NewContext("", "")
	if _, err := f.auth.Login(context.Background(), first, devA.Email, "dev-pass", false); err != nil {
		t.Fatal(err)
	}
	c, _ := cookieNamed(first, session.CookieName)

	next := session.NewContext(c.Value, "")
	if !f.auth.Resume(context.Background(), next) {
		t.Fatal("expected session to resume")
	}
	if next.Session.Identity.UserID != devA.ID {
		t.Fatalf("resumed wrong identity %+v", next.Session.Identity)
	}
}

func TestResume_FallsBackToRememberMe(t *testing.T) {
	f := newAuthority(t, devA)
	first := session.NewContext("", "")
	if _, err := f.auth.Login(context.Background(), first, devA.Email, "dev-pass", true); err != nil {
		t.Fatal(err)
	}
	sess, _ := cookieNamed(first, session.CookieName)
	remember, _ := cookieNamed(first, session.RememberCookie)

	// The in-memory session has expired; the token has not.
	f.clock.Advance(3 * time.Hour)

	next := session.NewContext(sess.Value, remember.Value)
	if !f.auth.Resume(context.Background(), next) {
		t.Fatal("expected silent login from remember_me")
	}
	if _, ok := cookieNamed(next, session.CookieName); !ok {
		t.Fatal("expected a fresh session cookie")
	}
}

func TestLoginWithToken_FailureClearsCookie(t *testing.T) {
	f := newAuthority(t, devA)
	sc := session.NewContext("", "d-1:garbage")

	_, err := f.auth.LoginWithToken(context.Background(), sc)
	if !errors.Is(err, domain.ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
	c, ok := cookieNamed(sc, session.RememberCookie)
	if !ok || c.MaxAge >= 0 {
		t.Fatalf("expected remember_me to be cleared, got %+v", c)
	}
	if sc.Session != nil {
		t.Fatal("no session expected")
	}
}

func TestLogout_RevokesAndClears(t *testing.T) {
	f := newAuthority(t, devA)
	login := session.NewContext("", "")
	if _, err := f.auth.Login(context.Background(), login, devA.Email, "dev-pass", true); err != nil {
		t.Fatal(err)
	}
	sess, _ := cookieNamed(login, session.CookieName)
	remember, _ := cookieNamed(login, session.RememberCookie)

	sc := session.NewContext(sess.Value, remember.Value)
	f.auth.Resume(context.Background(), sc)
	if err := f.auth.Logout(context.Background(), sc); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if f.tokens.count() != 0 {
		t.Fatal("persistent token should be revoked")
	}
	if f.store.Len() != 0 {
		t.Fatal("session should be destroyed")
	}
	for _, name := range []string{session.CookieName, session.RememberCookie} {
		if c, ok := cookieNamed(sc, name); !ok || c.MaxAge >= 0 {
			t.Fatalf("expected %s cleared, got %+v", name, c)
		}
	}
	if sc.Redirect() != session.LoginPath {
		t.Fatalf("expected redirect to login, got %q", sc.Redirect())
	}

	// The old cookies are now worthless.
	again := session.NewContext(sess.Value, remember.Value)
	if f.auth.Resume(context.Background(), again) {
		t.Fatal("resumed after logout")
	}
}

func TestRequireAuthAndRole(t *testing.T) {
	f := newAuthority(t, manager, devA)

	anon := session.NewContext("", "")
	if err := f.auth.RequireAuth(anon); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if anon.Redirect() != session.LoginPath {
		t.Fatalf("expected login redirect, got %q", anon.Redirect())
	}
	if err := f.auth.RequireRole(anon, domain.RoleManager); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("role check without session: expected ErrUnauthenticated, got %v", err)
	}

	dev := session.NewContext("", "")
	if _, err := f.auth.Login(context.Background(), dev, devA.Email, "dev-pass", false); err != nil {
		t.Fatal(err)
	}
	if err := f.auth.RequireRole(dev, domain.RoleManager); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if dev.Redirect() != session.UnauthorizedPath {
		t.Fatalf("expected unauthorized redirect, got %q", dev.Redirect())
	}
	if err := f.auth.RequireRole(dev, domain.RoleManager, domain.RoleDeveloper); err != nil {
		t.Fatalf("developer should pass a mixed gate: %v", err)
	}

	mgr := session.NewContext("", "")
	if _, err := f.auth.Login(context.Background(), mgr, manager.Email, "manager-pass", false); err != nil {
		t.Fatal(err)
	}
	if err := f.auth.RequireRole(mgr, domain.RoleManager); err != nil {
		t.Fatalf("manager gate: %v", err)
	}
}
