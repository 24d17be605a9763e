package tx

import (
	"context"
	"sync"
)

// Manager serializes work that shares a key, such as every mutation of one
// pack directory.
type Manager interface {
	Within(ctx context.Context, key string, fn func(context.Context) error) error
}

type NoopManager struct{}

func (NoopManager) Within(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// KeyedManager runs at most one fn per key at a time. Waiting for the key
// is abandoned when ctx is done.
type KeyedManager struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func NewKeyedManager() *KeyedManager {
	return &KeyedManager{slots: map[string]*slot{}}
}

func (m *KeyedManager) Within(ctx context.Context, key string, fn func(context.Context) error) error {
	s := m.acquire(key)
	defer m.release(key, s)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()
	return fn(ctx)
}

func (m *KeyedManager) acquire(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedManager) release(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}
