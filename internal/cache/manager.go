package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL entry lifetime used when WithTTL is absent
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     interface{}
	timestamp time.Time
}

// Manager keyed in-memory cache with a fixed TTL for every entry.
//
// Expired entries are purged on every read and write, there is no background timer.
type Manager struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithTTL set entry lifetime
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replace time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager create an empty Manager
func NewManager(options ...Option) *Manager {
	m := &Manager{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// TTL entry lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// caller must hold mu
func (m *Manager) purge() {
	now := m.now()
	for k, e := range m.entries {
		if now.Sub(e.timestamp) >= m.ttl {
			delete(m.entries, k)
		}
	}
}

// Set store data under key, replacing any previous entry
func (m *Manager) Set(key string, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purge()
	m.entries[key] = entry{value: data, timestamp: m.now()}
}

// Get returns the value stored under key, ok is false when absent or expired
func (m *Manager) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purge()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Has reports whether a live entry exists under key
func (m *Manager) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purge()
	_, ok := m.entries[key]
	return ok
}

// Delete remove a single key
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}

// ClearPattern remove every key containing substr, returns the number of removed entries
func (m *Manager) ClearPattern(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for k := range m.entries {
		if strings.Contains(k, substr) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// ClearAll reset the cache
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]entry)
}

// Len number of live entries
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purge()
	return len(m.entries)
}
