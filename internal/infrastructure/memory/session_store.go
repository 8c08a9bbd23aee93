package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/outbound-service/internal/application"
	"github.com/wms-platform/outbound-service/internal/domain"
)

// SessionStore is an in-process store for live dispatch sessions. Sessions
// are ephemeral workflow state derived entirely from backend data, so losing
// them on restart is acceptable; a worker just reopens the pick list.
//
// Each session carries its own lock. Update holds it for the duration of the
// mutation, which serializes concurrent dispatch attempts on the same session
// without blocking unrelated sessions.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

type entry struct {
	mu      sync.Mutex
	session *domain.DispatchSession
}

// DefaultSessionTTL bounds how long an untouched session survives
const DefaultSessionTTL = 4 * time.Hour

// NewSessionStore creates an empty session store. A non-positive ttl
// disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Create stores a new session
func (s *SessionStore) Create(_ context.Context, session *domain.DispatchSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.ID] = &entry{session: session}
	return nil
}

// Get returns a snapshot of the session for an id. The live session never
// leaves the entry lock, so callers can read the snapshot freely while
// concurrent updates proceed.
func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.DispatchSession, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Update applies fn to the session under its lock. The mutation is atomic
// with respect to other Update calls on the same session; the returned
// session is a post-mutation snapshot.
func (s *SessionStore) Update(_ context.Context, sessionID string, fn func(*domain.DispatchSession) error) (*domain.DispatchSession, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.session); err != nil {
		return nil, err
	}
	return e.session.Clone(), nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// PurgeExpired drops sessions whose last update is older than the ttl and
// returns how many were removed. Intended to run on a ticker.
func (s *SessionStore) PurgeExpired(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, e := range s.entries {
		e.mu.Lock()
		stale := now.Sub(e.session.UpdatedAt) > s.ttl
		e.mu.Unlock()
		if stale {
			delete(s.entries, id)
			purged++
		}
	}
	return purged
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *SessionStore) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return nil, application.ErrSessionNotFound
	}
	return e, nil
}

var _ application.SessionStore = (*SessionStore)(nil)
