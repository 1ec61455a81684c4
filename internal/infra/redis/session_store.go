package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-poll-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions live in process; the coordinator stays the single point of
//     ordering and Redis never holds answers or history.
//   - Redis carries a liveness marker per session so operators and other
//     instances can see which classroom is running.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	opts     []app.SessionOption
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, opts ...app.SessionOption) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		opts:     opts,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
		return session
	}
	session := app.NewSession(sessionID, s.opts...)
	s.sessions[sessionID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), session.CreatedAt().UTC().Format(time.RFC3339), s.ttl).Err()
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if ok {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.RetireIfEmpty() {
		delete(s.sessions, sessionID)
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "poll:session:" + sessionID
}
