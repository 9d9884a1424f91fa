package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "intake_session"

const sessionTokenLen = 16 // bytes of entropy; doubled by hex encoding

// Session is the server-held state behind a session cookie. Anonymous
// sessions exist only to carry a one-shot flash message between
// redirects; LoggedIn marks an authenticated one.
type Session struct {
	Token     string
	UserID    uint64
	Login     string
	LoggedIn  bool
	flash     string
	expiresAt time.Time
}

// Sessions is an in-memory session store keyed by opaque cookie tokens.
// Sessions expire after the configured idle lifetime; expiry slides on
// access.
type Sessions struct {
	ttl time.Duration

	mu      sync.Mutex
	byToken map[string]*Session
}

// NewSessions creates a session store with the given idle lifetime.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:     ttl,
		byToken: make(map[string]*Session),
	}
}

// Issue creates a new anonymous session and returns a snapshot of it.
func (s *Sessions) Issue() (Session, error) {
	buf := make([]byte, sessionTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	sess := &Session{
		Token:     token,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.byToken[token] = sess
	return *sess, nil
}

// Get returns a snapshot of the session behind token, refreshing its
// expiry. Unknown and expired tokens report false.
func (s *Sessions) Get(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.liveLocked(token)
	if !ok {
		return Session{}, false
	}
	sess.expiresAt = time.Now().Add(s.ttl)
	return *sess, true
}

// MarkLoggedIn promotes the session to an authenticated one.
func (s *Sessions) MarkLoggedIn(token string, userID uint64, login string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.liveLocked(token)
	if !ok {
		return false
	}
	sess.LoggedIn = true
	sess.UserID = userID
	sess.Login = login
	sess.expiresAt = time.Now().Add(s.ttl)
	return true
}

// Destroy removes the session behind token, if any.
func (s *Sessions) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
}

// SetFlash stores a one-shot message on the session.
func (s *Sessions) SetFlash(token, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.liveLocked(token); ok {
		sess.flash = message
	}
}

// PopFlash returns and clears the session's one-shot message.
func (s *Sessions) PopFlash(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.liveLocked(token)
	if !ok {
		return ""
	}
	msg := sess.flash
	sess.flash = ""
	return msg
}

func (s *Sessions) liveLocked(token string) (*Session, bool) {
	sess, ok := s.byToken[token]
	if !ok {
		return nil, false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.byToken, token)
		return nil, false
	}
	return sess, true
}

// sweepLocked drops expired sessions. Called on Issue so the map cannot
// grow unbounded from abandoned anonymous sessions.
func (s *Sessions) sweepLocked() {
	now := time.Now()
	for token, sess := range s.byToken {
		if now.After(sess.expiresAt) {
			delete(s.byToken, token)
		}
	}
}
