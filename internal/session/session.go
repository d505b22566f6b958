package session

import (
	"sync"
	"time"

	"github.com/pot-code/learnhub/internal/cache"
)

// Identity the authenticated user of a session
type Identity struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session last known identity of one session
type Session struct {
	ID string

	mu       sync.RWMutex
	identity *Identity
}

func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) Set(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &identity
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
}

// Directory sessions by id, a session not touched within ttl is dropped
type Directory struct {
	mu       sync.Mutex
	sessions *cache.Manager
}

func NewDirectory(ttl time.Duration, options ...cache.Option) *Directory {
	options = append([]cache.Option{cache.WithTTL(ttl)}, options...)
	return &Directory{sessions: cache.NewManager(options...)}
}

func sessionKey(id string) string {
	return cache.Key("session", id)
}

// Session get or create the session with id
func (d *Directory) Session(id string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := sessionKey(id)
	s, ok := d.sessions.Get(key)
	if !ok {
		s = &Session{ID: id}
	}
	d.sessions.Set(key, s)
	return s.(*Session)
}

// Lookup returns the session with id if it is still alive
func (d *Directory) Lookup(id string) (*Session, bool) {
	s, ok := d.sessions.Get(sessionKey(id))
	if !ok {
		return nil, false
	}
	return s.(*Session), true
}

// Forget drop the session with id
func (d *Directory) Forget(id string) {
	d.sessions.Delete(sessionKey(id))
}

// Reset drop every session
func (d *Directory) Reset() {
	d.sessions.ClearAll()
}
