// Package prefs holds the small persisted UI preferences (theme choice,
// sidebar visibility) as explicit store handles with a read/set/subscribe
// contract. Stores are injected where needed; nothing reads them through
// package-level state.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidValue is returned by Set when the value is outside the
// store's accepted set.
var ErrInvalidValue = errors.New("value not accepted by preference store")

// Theme values mirror what the storefront offers.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Storage names match the keys the storefront persists under.
const (
	ThemeStorageName   = "theme-storage"
	SidebarStorageName = "ui-storage"
)

// Subscriber is notified after every successful mutation.
type Subscriber func(sessionID, value string)

// Store is a per-session string preference with a declared default and a
// closed set of accepted values.
type Store interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, value string) error
	Subscribe(fn Subscriber) (cancel func())
}

// NewThemeStore builds the persisted theme preference store.
func NewThemeStore(rdb *redis.Client) Store {
	return NewRedisStore(rdb, ThemeStorageName, ThemeSystem, []string{ThemeLight, ThemeDark, ThemeSystem})
}

// NewSidebarStore builds the persisted sidebar visibility store.
func NewSidebarStore(rdb *redis.Client) Store {
	return NewRedisStore(rdb, SidebarStorageName, "false", []string{"true", "false"})
}

// subscribers is the shared fan-out bookkeeping for store implementations.
type subscribers struct {
	mu   sync.Mutex
	next int
	subs map[int]Subscriber
}

func (s *subscribers) add(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = map[int]Subscriber{}
	}
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *subscribers) notify(sessionID, value string) {
	s.mu.Lock()
	fns := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sessionID, value)
	}
}

// RedisStore persists one preference per session under
// "<storage name>:<session id>". Values survive across sessions of the
// same visitor for as long as the key is retained.
type RedisStore struct {
	rdb     *redis.Client
	name    string
	def     string
	allowed map[string]bool
	subs    subscribers
}

// NewRedisStore creates a store with the given storage name, default, and
// accepted values.
func NewRedisStore(rdb *redis.Client, name, def string, allowed []string) *RedisStore {
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[v] = true
	}
	return &RedisStore{rdb: rdb, name: name, def: def, allowed: set}
}

func (s *RedisStore) key(sessionID string) string {
	return s.name + ":" + sessionID
}

// Get returns the stored value, or the default when nothing is stored.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(sessionID)).Result()
	if err == redis.Nil {
		return s.def, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", s.name, err)
	}
	if !s.allowed[v] {
		// A stored value outside today's accepted set degrades to the default.
		return s.def, nil
	}
	return v, nil
}

// Set persists the value and notifies subscribers.
func (s *RedisStore) Set(ctx context.Context, sessionID, value string) error {
	if !s.allowed[value] {
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, s.name, value)
	}
	if err := s.rdb.Set(ctx, s.key(sessionID), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist preference %s: %w", s.name, err)
	}
	s.subs.notify(sessionID, value)
	return nil
}

// Subscribe registers fn for future mutations.
func (s *RedisStore) Subscribe(fn Subscriber) (cancel func()) {
	return s.subs.add(fn)
}

// MemoryStore is the in-process implementation used by tests and by
// deployments without Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	def     string
	allowed map[string]bool
	subs    subscribers
}

// NewMemoryStore mirrors NewRedisStore without persistence.
func NewMemoryStore(def string, allowed []string) *MemoryStore {
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[v] = true
	}
	return &MemoryStore{values: map[string]string{}, def: def, allowed: set}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[sessionID]; ok {
		return v, nil
	}
	return s.def, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, value string) error {
	if !s.allowed[value] {
		return fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	s.mu.Lock()
	s.values[sessionID] = value
	s.mu.Unlock()
	s.subs.notify(sessionID, value)
	return nil
}

func (s *MemoryStore) Subscribe(fn Subscriber) (cancel func()) {
	return s.subs.add(fn)
}
