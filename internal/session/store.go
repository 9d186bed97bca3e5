package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// Browser is one browser session in qubicweb: the cookie-addressed handle
// that maps back to an API Session.
type Browser struct {
	ID        string
	API       *Session
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store keeps browser sessions in memory. Each qubicweb process owns its
// sessions; the API credential inside survives only as long as the cookie.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Browser
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store whose sessions expire after ttl.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Browser),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Create registers a new browser session wrapping the given API session.
func (s *Store) Create(api *Session) (*Browser, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	b := &Browser{
		ID:        id,
		API:       api,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[id] = b
	s.mu.Unlock()
	return b, nil
}

// Get returns the browser session for id. Expired sessions, and sessions
// whose API credential has been cleared by a 401, read as absent.
func (s *Store) Get(id string) (*Browser, bool) {
	s.mu.RLock()
	b, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(b.ExpiresAt) {
		return nil, false
	}
	if !b.API.Active() {
		s.Delete(id)
		return nil, false
	}
	return b, true
}

// Delete removes the browser session for id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, b := range s.sessions {
				if now.After(b.ExpiresAt) || !b.API.Active() {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
