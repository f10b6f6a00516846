package session

import (
	"sync"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/domain"
	"github.com/google/uuid"
)

// Store holds live sessions. Implementations must be safe for concurrent use.
type Store interface {
	Create(id domain.Identity) *domain.Session
	Get(sessionID string) (*domain.Session, bool)
	Delete(sessionID string)
	Purge() int
}

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart; users holding a remember_me cookie are signed back in silently.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Create(id domain.Identity) *domain.Session {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Identity:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *MemoryStore) Get(sessionID string) (*domain.Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.Delete(sessionID)
		return nil, false
	}
	return sess, true
}

func (s *MemoryStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Purge drops expired sessions and returns how many were removed.
func (s *MemoryStore) Purge() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
