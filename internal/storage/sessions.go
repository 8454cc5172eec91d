package storage

import (
	"sync"

	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/round"
)

// Session bundles the per-user state the trainer works with: the
// profile the user syncs under, their progress store and their round
// machine.
type Session struct {
	ProfileID string
	Store     *progress.Store
	Machine   *round.Machine
}

// SessionStorage provides in-memory storage for user sessions by
// Telegram user id.
type SessionStorage struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionStorage creates a new SessionStorage.
func NewSessionStorage() *SessionStorage {
	return &SessionStorage{
		sessions: make(map[int64]*Session),
	}
}

// Store saves a session for a given user id.
func (s *SessionStorage) Store(userID int64, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

// Get retrieves the session for a given user id.
func (s *SessionStorage) Get(userID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// Delete removes the session for a given user id.
func (s *SessionStorage) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// All returns a snapshot of all sessions keyed by user id.
func (s *SessionStorage) All() map[int64]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*Session, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = sess
	}
	return out
}
