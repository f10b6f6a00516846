package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/metrics"
	"github.com/ErlanBelekov/taskboard/internal/session"
)

// SessionAuthority owns the short-lived session. It composes credential
// checks and remember-me tokens, and never touches HTTP directly: every
// effect on the client is recorded on the session.Context.
type SessionAuthority struct {
	creds  *CredentialStore
	tokens *TokenManager
	store  session.Store
	codec  *session.Codec
	logger *slog.Logger
}

func NewSessionAuthority(
	creds *CredentialStore,
	tokens *TokenManager,
	store session.Store,
	codec *session.Codec,
	logger *slog.Logger,
) *SessionAuthority {
	return &SessionAuthority{
		creds:  creds,
		tokens: tokens,
		store:  store,
		codec:  codec,
		logger: logger.With("component", "session"),
	}
}

// Login verifies credentials and establishes a session. With remember set, a
// persistent login token is issued as well; failing to issue one does not
// fail the login.
func (a *SessionAuthority) Login(ctx context.Context, sc *session.Context, email, password string, remember bool) (domain.Identity, error) {
	id, err := a.creds.Verify(ctx, email, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("password", loginOutcome(err)).Inc()
		return domain.Identity{}, err
	}

	if err := a.establish(sc, id); err != nil {
		return domain.Identity{}, err
	}
	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
	a.logger.InfoContext(ctx, "user logged in", "user_id", id.UserID, "remember", remember)

	if remember {
		cookie, err := a.tokens.Issue(ctx, id.UserID)
		if err != nil {
			a.logger.ErrorContext(ctx, "issue persistent login", "user_id", id.UserID, "error", err)
			return id, nil
		}
		sc.SetCookie(session.RememberCookie, cookie, session.RememberMaxAge)
	}
	return id, nil
}

// LoginWithToken signs the user in from the remember_me cookie. Any failure
// tells the client to drop the cookie.
func (a *SessionAuthority) LoginWithToken(ctx context.Context, sc *session.Context) (domain.Identity, error) {
	if sc.RememberMe == "" {
		return domain.Identity{}, domain.ErrTokenNotFound
	}

	id, err := a.tokens.Validate(ctx, sc.RememberMe)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("token", loginOutcome(err)).Inc()
		sc.ClearCookie(session.RememberCookie)
		return domain.Identity{}, err
	}

	if err := a.establish(sc, id); err != nil {
		return domain.Identity{}, err
	}
	metrics.LoginsTotal.WithLabelValues("token", "success").Inc()
	a.logger.InfoContext(ctx, "user logged in from persistent token", "user_id", id.UserID)
	return id, nil
}

// Resume attaches the session named by the session cookie, falling back to a
// silent remember_me login. It reports whether sc ends up authenticated.
func (a *SessionAuthority) Resume(ctx context.Context, sc *session.Context) bool {
	if sc.SessionToken != "" {
		sid, err := a.codec.Decode(sc.SessionToken)
		if err == nil {
			if sess, ok := a.store.Get(sid); ok {
				sc.Session = sess
				return true
			}
		}
		sc.ClearCookie(session.CookieName)
	}

	if sc.RememberMe == "" {
		return false
	}
	_, err := a.LoginWithToken(ctx, sc)
	if err != nil && !isTokenRejection(err) {
		a.logger.ErrorContext(ctx, "silent login", "error", err)
	}
	return err == nil
}

// Logout revokes the persistent token if one was presented, destroys the
// session and sends the client to the login surface.
func (a *SessionAuthority) Logout(ctx context.Context, sc *session.Context) error {
	var revokeErr error
	if sc.RememberMe != "" {
		if _, selector, _, err := ParseCookie(sc.RememberMe); err == nil {
			revokeErr = a.tokens.Revoke(ctx, selector)
		}
	}

	switch {
	case sc.Session != nil:
		a.store.Delete(sc.Session.ID)
	case sc.SessionToken != "":
		if sid, err := a.codec.Decode(sc.SessionToken); err == nil {
			a.store.Delete(sid)
		}
	}
	if sc.Session != nil {
		a.logger.InfoContext(ctx, "user logged out", "user_id", sc.Session.Identity.UserID)
	}
	sc.Session = nil

	sc.ClearCookie(session.CookieName)
	sc.ClearCookie(session.RememberCookie)
	sc.RedirectTo(session.LoginPath)
	return revokeErr
}

func (a *SessionAuthority) RequireAuth(sc *session.Context) error {
	if sc.Session == nil {
		sc.RedirectTo(session.LoginPath)
		return domain.ErrUnauthenticated
	}
	return nil
}

func (a *SessionAuthority) RequireRole(sc *session.Context, roles ...domain.Role) error {
	if err := a.RequireAuth(sc); err != nil {
		return err
	}
	if !slices.Contains(roles, sc.Session.Identity.Role) {
		sc.RedirectTo(session.UnauthorizedPath)
		return domain.ErrForbidden
	}
	return nil
}

// PurgeSessions drops expired sessions and returns how many went.
func (a *SessionAuthority) PurgeSessions() int {
	n := a.store.Purge()
	if ms, ok := a.store.(*session.MemoryStore); ok {
		metrics.ActiveSessions.Set(float64(ms.Len()))
	}
	return n
}

// establish replaces whatever session sc had with a fresh one.
func (a *SessionAuthority) establish(sc *session.Context, id domain.Identity) error {
	if sc.Session != nil {
		a.store.Delete(sc.Session.ID)
	}

	sess := a.store.Create(id)
	token, err := a.codec.Encode(sess.ID, sess.ExpiresAt)
	if err != nil {
		a.store.Delete(sess.ID)
		return fmt.Errorf("encode session: %w", err)
	}
	sc.Session = sess
	sc.SetCookie(session.CookieName, token, 0)
	return nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, domain.ErrMalformedToken) ||
		errors.Is(err, domain.ErrTokenNotFound) ||
		errors.Is(err, domain.ErrTokenInvalid)
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case isTokenRejection(err):
		return "token_rejected"
	default:
		return "error"
	}
}
