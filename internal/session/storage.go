package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pot-code/learnhub/internal/infrastructure/driver"
)

// ErrItemNotFound no item stored under the key
var ErrItemNotFound = errors.New("session item not found")

// Storage session scoped string storage
type Storage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key string, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Provider hands out the Storage of one session
type Provider interface {
	Scope(sessionID string) Storage
}

// KVStorage Storage backed by a KeyValueDB, keys are namespaced by session id
type KVStorage struct {
	kv        driver.KeyValueDB
	sessionID string
	ttl       time.Duration
}

var _ Storage = &KVStorage{}

// NewKVStorage items live no longer than ttl, which should match the session lifetime
func NewKVStorage(kv driver.KeyValueDB, sessionID string, ttl time.Duration) *KVStorage {
	return &KVStorage{kv, sessionID, ttl}
}

func (ks *KVStorage) key(k string) string {
	return fmt.Sprintf("session:%s:%s", ks.sessionID, k)
}

func (ks *KVStorage) GetItem(ctx context.Context, key string) (string, error) {
	v, err := ks.kv.Get(ctx, ks.key(key))
	if errors.Is(err, driver.ErrKeyNotFound) {
		return "", ErrItemNotFound
	}
	return v, err
}

func (ks *KVStorage) SetItem(ctx context.Context, key string, value string) error {
	return ks.kv.SetEX(ctx, ks.key(key), value, ks.ttl)
}

func (ks *KVStorage) RemoveItem(ctx context.Context, key string) error {
	return ks.kv.Delete(ctx, ks.key(key))
}

// KVProvider Provider over a shared KeyValueDB
type KVProvider struct {
	KV  driver.KeyValueDB
	TTL time.Duration
}

var _ Provider = &KVProvider{}

func (kp *KVProvider) Scope(sessionID string) Storage {
	return NewKVStorage(kp.KV, sessionID, kp.TTL)
}

// MemoryStorage process local Storage
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

var _ Storage = &MemoryStorage{}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (ms *MemoryStorage) GetItem(ctx context.Context, key string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	v, ok := ms.items[key]
	if !ok {
		return "", ErrItemNotFound
	}
	return v, nil
}

func (ms *MemoryStorage) SetItem(ctx context.Context, key string, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.items[key] = value
	return nil
}

func (ms *MemoryStorage) RemoveItem(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.items, key)
	return nil
}

// MemoryProvider keeps one MemoryStorage per session id
type MemoryProvider struct {
	mu     sync.Mutex
	scopes map[string]*MemoryStorage
}

var _ Provider = &MemoryProvider{}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{scopes: make(map[string]*MemoryStorage)}
}

func (mp *MemoryProvider) Scope(sessionID string) Storage {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	s, ok := mp.scopes[sessionID]
	if !ok {
		s = NewMemoryStorage()
		mp.scopes[sessionID] = s
	}
	return s
}
