package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the process-wide session registry. All access goes through the
// store's lock; sessions idle past the TTL are evicted by Sweep.
//
// Per-session mutation is a read-modify-write under the lock (Update), so
// two concurrent Updates on the same id serialize. Lost updates between
// separate Get/Update round-trips are accepted: single-writer-per-session
// is assumed at the request level, not enforced here.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
}

func NewStore(idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	return &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
	}
}

// Create registers a fresh session and returns it.
func (s *Store) Create() *Session {
	now := time.Now()
	session := &Session{
		ID:             uuid.New().String(),
		IndexStatus:    IndexNotCreated,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get returns the session and refreshes its last-access time.
// A missing id yields (nil, false), never an error.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.sessions[id]
	if !found {
		return nil, false
	}
	session.LastAccessedAt = time.Now()
	return session, true
}

// Update applies fn to the session under the store lock.
// Returns false if the session does not exist.
func (s *Store) Update(id string, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.sessions[id]
	if !found {
		return false
	}
	fn(session)
	session.LastAccessedAt = time.Now()
	return true
}

// Reset clears all document-derived state but keeps the id valid.
// Idempotent on an already-empty session.
func (s *Store) Reset(id string) bool {
	return s.Update(id, func(session *Session) {
		session.DocumentName = ""
		session.Chunks = nil
		session.Index = nil
		session.IndexStatus = IndexNotCreated
		session.IndexedChunks = 0
		session.IndexComplete = false
		session.Errors = nil
	})
}

// Delete removes the session entirely.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.sessions[id]; !found {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Sweep evicts sessions idle past the TTL and returns how many were removed.
// The candidate scan happens on a snapshot of ids so concurrent inserts
// during the sweep are left alone.
func (s *Store) Sweep() int {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.RLock()
	stale := make([]string, 0)
	for id, session := range s.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	s.mu.Lock()
	for _, id := range stale {
		// Re-check: the session may have been touched between the scan
		// and this lock acquisition.
		if session, ok := s.sessions[id]; ok && session.LastAccessedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	return removed
}

// Len returns the current session count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
