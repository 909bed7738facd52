package session

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu  sync.RWMutex
	cur *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	s, err := normalize(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cur = &s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return Session{}, false
	}
	return *m.cur, true
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.cur = nil
	m.mu.Unlock()
	return nil
}

// MemoryKeyspace keeps one MemoryStore per session id. Entries live for the
// life of the process.
type MemoryKeyspace struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryKeyspace() *MemoryKeyspace {
	return &MemoryKeyspace{stores: make(map[string]*MemoryStore)}
}

func (k *MemoryKeyspace) For(sessionID string) Store {
	k.mu.Lock()
	defer k.mu.Unlock()
	st, ok := k.stores[sessionID]
	if !ok {
		st = NewMemoryStore()
		k.stores[sessionID] = st
	}
	return st
}
