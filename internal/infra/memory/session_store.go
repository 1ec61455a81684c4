package memory

import (
	"sync"

	"live-poll-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	opts     []app.SessionOption
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// NewSessionStore creates sessions with opts applied.
func NewSessionStore(opts ...app.SessionOption) *SessionStore {
	return &SessionStore{
		opts:     opts,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(sessionID, s.opts...)
	s.sessions[sessionID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// DeleteIfEmpty drops the session once it retires. A retired session refuses
// new participants, so anyone still holding it retries on a fresh one.
func (s *SessionStore) DeleteIfEmpty(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.RetireIfEmpty() {
		delete(s.sessions, sessionID)
	}
}
