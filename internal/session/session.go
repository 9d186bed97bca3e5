// Package session models the authenticated session against the QubicBall
// API. A Session is created at login, injected into the client, and cleared
// on logout or when the server answers 401. It is never ambient state.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

// Session holds the bearer credential and the user it belongs to.
// It is safe for concurrent use; the transport reads it on every request
// while a 401 handler may clear it.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      models.User
	expiresAt time.Time
}

// New builds a session from a login response. The token's exp claim, when
// present, is read without signature verification: the server is the
// authority on validity, the client only uses exp to know when to re-login.
func New(token string, user models.User) *Session {
	s := &Session{token: token, user: user}
	if exp, ok := tokenExpiry(token); ok {
		s.expiresAt = exp
	}
	return s
}

// Token returns the bearer credential, or "" if the session was cleared.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the authenticated user. Zero value after Clear.
func (s *Session) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Role is a shortcut for User().Role.
func (s *Session) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Role
}

// Active reports whether the session holds a credential that has not
// visibly expired. A true result is advisory only; the server still
// decides.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return false
	}
	return true
}

// ExpiresAt returns the credential expiry, zero if the token carried none.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Clear drops the credential and user. Called on logout and on any 401.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = models.User{}
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// tokenExpiry extracts the exp claim from a JWT without verifying it.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
