package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// ---- users ----

type memUsers struct {
	byID map[string]*domain.User
	err  error
}

func newUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func mustHash(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

var (
	manager = &domain.User{
		ID: "m-1", Email: "manager@example.com", Name: "Mia", Role: domain.RoleManager,
		Status: domain.UserActive, PasswordHash: mustHash("manager-pass"),
	}
	devA = &domain.User{
		ID: "d-1", Email: "dev.a@example.com", Name: "Dan", Role: domain.RoleDeveloper,
		Status: domain.UserActive, PasswordHash: mustHash("dev-pass"),
	}
	devB = &domain.User{
		ID: "d-2", Email: "dev.b@example.com", Name: "Dora", Role: domain.RoleDeveloper,
		Status: domain.UserActive, PasswordHash: mustHash("dev-pass"),
	}
	retired = &domain.User{
		ID: "r-1", Email: "retired@example.com", Name: "Rex", Role: domain.RoleDeveloper,
		Status: domain.UserInactive, PasswordHash: mustHash("old-pass"),
	}
)

// ---- persistent logins ----

type memTokens struct {
	mu       sync.Mutex
	rows     map[string]domain.PersistentLogin
	conflict int // number of Create calls to reject with ErrSelectorConflict
	creates  int
}

func newTokens() *memTokens {
	return &memTokens{rows: map[string]domain.PersistentLogin{}}
}

func (m *memTokens) Create(_ context.Context, t *domain.PersistentLogin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.conflict > 0 {
		m.conflict--
		return domain.ErrSelectorConflict
	}
	if _, ok := m.rows[t.Selector]; ok {
		return domain.ErrSelectorConflict
	}
	m.rows[t.Selector] = *t
	return nil
}

func (m *memTokens) Find(_ context.Context, selector, userID string) (*domain.PersistentLogin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[selector]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTokenNotFound
	}
	return &t, nil
}

func (m *memTokens) Extend(_ context.Context, selector string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.rows[selector]; ok {
		t.ExpiresAt = expiresAt
		m.rows[selector] = t
	}
	return nil
}

func (m *memTokens) Delete(_ context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, selector)
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sel, t := range m.rows {
		if n == limit {
			break
		}
		if t.ExpiresAt.Before(cutoff) {
			delete(m.rows, sel)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memTokens) only() domain.PersistentLogin {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		return t
	}
	panic("no tokens")
}

// ---- notifications ----

type memNotifications struct {
	mu      sync.Mutex
	rows    []*domain.Notification
	users   *memUsers
	failFor map[string]bool
	seq     int
}

func newNotifications(users *memUsers) *memNotifications {
	return &memNotifications{users: users, failFor: map[string]bool{}}
}

func (m *memNotifications) Create(_ context.Context, userID, title, message string, category domain.Category) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[userID] {
		return nil, fmt.Errorf("%w: injected", domain.ErrStore)
	}
	if _, ok := m.users.byID[userID]; !ok {
		return nil, fmt.Errorf("%w: unknown user %s", domain.ErrStore, userID)
	}
	m.seq++
	n := &domain.Notification{
		ID:        fmt.Sprintf("n-%d", m.seq),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: time.Unix(int64(m.seq), 0),
	}
	m.rows = append(m.rows, n)
	return n, nil
}

func (m *memNotifications) ListForUser(_ context.Context, userID string, limit int) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) UnreadCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := 0
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.ID == id && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := 0
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

func (m *memNotifications) forUser(userID string) []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memNotifications) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---- mail ----

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
	send    func(ctx context.Context, to string) error
}

func (s *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if s.send != nil {
		if err := s.send(ctx, to); err != nil {
			return err
		}
	}
	if s.failFor[to] {
		return fmt.Errorf("%w: mailbox unavailable", domain.ErrMailDeliveryFailed)
	}
	s.mu.Lock()
	s.sent = append(s.sent, sentMail{to, subject, body})
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// ---- scans ----

type fakeTasks struct {
	listDueBetween func(ctx context.Context, from, to time.Time) ([]*domain.TaskDeadline, error)
}

func (f *fakeTasks) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.TaskDeadline, error) {
	return f.listDueBetween(ctx, from, to)
}

type fakeBugs struct {
	listOverdue func(ctx context.Context, now time.Time) ([]*domain.OverdueBug, error)
}

func (f *fakeBugs) ListOverdue(ctx context.Context, now time.Time) ([]*domain.OverdueBug, error) {
	return f.listOverdue(ctx, now)
}

var errBoom = errors.New("boom")
