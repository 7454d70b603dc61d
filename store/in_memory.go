package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/planmesh/core"
)

// InMemoryStore is a volatile core.Store implementation keeping records in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo deployments. Values are copied on read and write
// to prevent external mutation of internal state.
type InMemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{namespaces: make(map[string]map[string][]byte)}
}

// Get returns a copy of the value for key, if present.
func (s *InMemoryStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, false, nil
	}
	value, ok := ns[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of the value under key.
func (s *InMemoryStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.namespaces[namespace] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the value for key; absent keys are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.namespaces[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

// ListAll returns every value in the namespace, ordered by key.
func (s *InMemoryStore) ListAll(ctx context.Context, namespace string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		values = append(values, append([]byte(nil), ns[k]...))
	}
	return values, nil
}

var _ core.Store = (*InMemoryStore)(nil)
