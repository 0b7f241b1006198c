package services

import (
	"sync"
	"time"

	"dice-game-server/internal/models"
)

// Session binds an opaque token to an authenticated user.
type Session struct {
	Token        string
	UserID       int64
	CreatedAt    time.Time
	LastActivity time.Time
}

// SessionStore holds live sessions. At most one session exists per user;
// a fresh login replaces and invalidates the previous token.
type SessionStore struct {
	mu       sync.Mutex
	byToken  map[string]*Session
	byUserID map[int64]*Session
	timeout  time.Duration
}

func NewSessionStore(timeout time.Duration) *SessionStore {
	return &SessionStore{
		byToken:  make(map[string]*Session),
		byUserID: make(map[int64]*Session),
		timeout:  timeout,
	}
}

// Create mints a session for the user, invalidating any existing one.
func (s *SessionStore) Create(userID int64) (*Session, error) {
	token, err := models.NewSessionToken()
	if err != nil {
		return nil, NewServerError("failed to mint session token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byUserID[userID]; ok {
		delete(s.byToken, prev.Token)
	}

	now := time.Now()
	session := &Session{
		Token:        token,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.byToken[token] = session
	s.byUserID[userID] = session
	return session, nil
}

// Validate resolves a token to its user id, rejecting unknown or expired
// tokens. A successful lookup refreshes the idle clock.
func (s *SessionStore) Validate(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byToken[token]
	if !ok {
		return 0, NewAuthError("authentication required")
	}
	if time.Since(session.LastActivity) > s.timeout {
		delete(s.byToken, session.Token)
		delete(s.byUserID, session.UserID)
		return 0, NewAuthError("session expired")
	}

	session.LastActivity = time.Now()
	return session.UserID, nil
}

// Invalidate removes a session by token and reports whether it was still
// live. Safe to call repeatedly.
func (s *SessionStore) Invalidate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byToken[token]
	if !ok {
		return false
	}
	delete(s.byToken, session.Token)
	delete(s.byUserID, session.UserID)
	return true
}

// InvalidateUser removes whatever session the user holds.
func (s *SessionStore) InvalidateUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.byUserID[userID]; ok {
		delete(s.byToken, session.Token)
		delete(s.byUserID, userID)
	}
}

// SweepExpired drops sessions idle past the timeout and reports how many
// were removed. Only already-dead entries are touched, so the sweep is
// safe alongside concurrent validation.
func (s *SessionStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.byToken {
		if time.Since(session.LastActivity) > s.timeout {
			delete(s.byToken, token)
			delete(s.byUserID, session.UserID)
			removed++
		}
	}
	return removed
}

// Count reports the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}
