package tokenstore

import (
	"context"
	"sync"
)

// MemoryKeyValueStore keeps values in process memory. Intended for tests and one-shot sessions.
type MemoryKeyValueStore struct {
	mutex  sync.RWMutex
	values map[string]string
}

// NewMemoryKeyValueStore creates an empty in-memory store.
func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (store *MemoryKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	value, ok := store.values[key]
	return value, ok, nil
}

// Set stores value under key.
func (store *MemoryKeyValueStore) Set(ctx context.Context, key string, value string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.values[key] = value
	return nil
}

// Remove deletes key; a missing key is not an error.
func (store *MemoryKeyValueStore) Remove(ctx context.Context, key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.values, key)
	return nil
}
