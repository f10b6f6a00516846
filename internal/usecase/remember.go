package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/ErlanBelekov/taskboard/internal/metrics"
	"github.com/ErlanBelekov/taskboard/internal/repository"
)

const (
	PersistentLoginTTL = 30 * 24 * time.Hour

	selectorBytes    = 12
	validatorBytes   = 32
	selectorLen      = selectorBytes * 2
	maxIssueAttempts = 3
)

// TokenManager issues and checks "remember me" tokens. The cookie value is
// userID ":" selector validator, where the selector is a 24 char hex lookup
// key and the validator is a secret whose SHA-256 is all the database sees.
type TokenManager struct {
	tokens repository.TokenRepository
	users  repository.UserRepository
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
	rand   io.Reader
}

func NewTokenManager(tokens repository.TokenRepository, users repository.UserRepository, logger *slog.Logger) *TokenManager {
	return &TokenManager{
		tokens: tokens,
		users:  users,
		logger: logger.With("component", "persistent_login"),
		ttl:    PersistentLoginTTL,
		now:    time.Now,
		rand:   rand.Reader,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Issue stores a new token for userID and returns the cookie value.
func (m *TokenManager) Issue(ctx context.Context, userID string) (string, error) {
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		selector, err := m.randomHex(selectorBytes)
		if err != nil {
			return "", err
		}
		validator, err := m.randomHex(validatorBytes)
		if err != nil {
			return "", err
		}

		err = m.tokens.Create(ctx, &domain.PersistentLogin{
			Selector:      selector,
			ValidatorHash: hashValidator(validator),
			UserID:        userID,
			ExpiresAt:     m.now().Add(m.ttl),
		})
		if errors.Is(err, domain.ErrSelectorConflict) {
			m.logger.Warn("selector collision, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store persistent login: %w", err)
		}
		return userID + ":" + selector + validator, nil
	}
	return "", fmt.Errorf("issue persistent login: %w", domain.ErrSelectorConflict)
}

// Validate checks a cookie value and, on success, slides its expiry forward.
// A wrong validator or an inactive owner burns the token.
func (m *TokenManager) Validate(ctx context.Context, cookie string) (domain.Identity, error) {
	id, err := m.validate(ctx, cookie)
	metrics.TokenValidationsTotal.WithLabelValues(validationOutcome(err)).Inc()
	return id, err
}

func (m *TokenManager) validate(ctx context.Context, cookie string) (domain.Identity, error) {
	userID, selector, validator, err := ParseCookie(cookie)
	if err != nil {
		return domain.Identity{}, err
	}

	tok, err := m.tokens.Find(ctx, selector, userID)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, fmt.Errorf("find persistent login: %w", err)
	}

	now := m.now()
	if tok.Expired(now) {
		m.burn(ctx, selector, "expired")
		return domain.Identity{}, domain.ErrTokenNotFound
	}

	if subtle.ConstantTimeCompare([]byte(hashValidator(validator)), []byte(tok.ValidatorHash)) != 1 {
		m.burn(ctx, selector, "validator mismatch")
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	user, err := m.users.FindByID(ctx, tok.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return domain.Identity{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.Active() {
		m.burn(ctx, selector, "owner not active")
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	// Renewal is best effort: the user has proven who they are either way.
	if err := m.tokens.Extend(ctx, selector, now.Add(m.ttl)); err != nil {
		m.logger.Warn("extend persistent login", "user_id", user.ID, "error", err)
	}
	return user.Identity(), nil
}

// Revoke deletes the token. An unknown selector is not an error.
func (m *TokenManager) Revoke(ctx context.Context, selector string) error {
	if err := m.tokens.Delete(ctx, selector); err != nil {
		return fmt.Errorf("revoke persistent login: %w", err)
	}
	return nil
}

// Reap removes up to limit expired tokens.
func (m *TokenManager) Reap(ctx context.Context, limit int) (int, error) {
	n, err := m.tokens.DeleteExpired(ctx, m.now(), limit)
	if err != nil {
		return 0, err
	}
	metrics.TokensReapedTotal.Add(float64(n))
	return n, nil
}

func (m *TokenManager) burn(ctx context.Context, selector, reason string) {
	if err := m.tokens.Delete(ctx, selector); err != nil {
		m.logger.Error("delete persistent login", "reason", reason, "error", err)
		return
	}
	m.logger.Info("persistent login deleted", "reason", reason)
}

func (m *TokenManager) randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(m.rand, b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ParseCookie splits a remember_me value into its parts. Only the shape is
// checked; whether the parts mean anything is up to the store.
func ParseCookie(cookie string) (userID, selector, validator string, err error) {
	userID, rest, ok := strings.Cut(cookie, ":")
	if !ok || userID == "" || len(rest) <= selectorLen || strings.Contains(rest, ":") || !isHex(rest) {
		return "", "", "", domain.ErrMalformedToken
	}
	return userID, rest[:selectorLen], rest[selectorLen:], nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func hashValidator(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

func validationOutcome(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTokenInvalid):
		return "invalid"
	default:
		return "error"
	}
}
