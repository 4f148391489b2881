package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-game-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in process (they own timers and a socket); Redis only carries a
// liveness marker per session so other instances and operators can count
// active games.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.State().String(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Touch refreshes the liveness marker with the session's current state.
func (s *SessionStore) Touch(ctx context.Context, sessionID string, state app.State) error {
	return s.client.Set(ctx, s.key(sessionID), state.String(), s.ttl).Err()
}

// Active counts sessions with a live marker across all instances.
func (s *SessionStore) Active(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

const sessionKeyPrefix = "trivia:session:"

func (s *SessionStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
