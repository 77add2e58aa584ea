package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrInvalidSession is returned when a request carries no valid session.
var ErrInvalidSession = errors.New("session id is missing or invalid")

const sessionCookie = "session_id"

// Session is an authenticated bidder identity.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"-"`
}

// SessionManager issues opaque session ids and expires idle ones.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	log      logrus.FieldLogger
}

// NewSessionManager creates a session manager with the given idle TTL.
func NewSessionManager(ttl time.Duration, log logrus.FieldLogger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session, 32),
		ttl:      ttl,
		log:      log.WithField("component", "sessions"),
	}
}

// Create issues a new session.
func (m *SessionManager) Create(now time.Time) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s
}

// Validate checks the session id and refreshes its idle timer.
func (m *SessionManager) Validate(id string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}

	if now.Sub(s.LastSeen) > m.ttl {
		delete(m.sessions, id)
		return false
	}

	s.LastSeen = now

	return true
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// CleanupExpired removes idle sessions and returns their ids.
func (m *SessionManager) CleanupExpired(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string

	for id, s := range m.sessions {
		if now.Sub(s.LastSeen) > m.ttl {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		m.log.WithField("count", len(removed)).Info("Expired sessions cleaned up")
	}

	return removed
}

// sessionFromRequest resolves the session id from the cookie or an explicit
// request field, preferring the cookie.
func (s *Server) sessionFromRequest(r *http.Request, explicit string) (string, error) {
	id := explicit

	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		id = cookie.Value
	}

	if id == "" || !s.sessions.Validate(id, s.clk.Now()) {
		return "", ErrInvalidSession
	}

	return id, nil
}
