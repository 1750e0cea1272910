package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var errFileEmptyPath = errors.New("tokenstore.file.empty_path")

// FileKeyValueStore persists values as a JSON object in a single file.
// Every write rewrites the snapshot through a temporary file and rename.
type FileKeyValueStore struct {
	mutex  sync.Mutex
	path   string
	values map[string]string
}

type fileSnapshot struct {
	Values map[string]string `json:"values"`
}

// NewFileKeyValueStore loads the snapshot at path, starting empty when the file does not exist yet.
func NewFileKeyValueStore(path string) (*FileKeyValueStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errFileEmptyPath
	}
	store := &FileKeyValueStore{path: path, values: make(map[string]string)}
	if err := store.load(); err != nil {
		return nil, fmt.Errorf("tokenstore.file.load: %w", err)
	}
	return store, nil
}

// Path returns the snapshot location.
func (store *FileKeyValueStore) Path() string {
	return store.path
}

// Get returns the value loaded or written under key.
func (store *FileKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	value, ok := store.values[key]
	return value, ok, nil
}

// Set stores value under key and rewrites the snapshot.
func (store *FileKeyValueStore) Set(ctx context.Context, key string, value string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.values[key] = value
	return store.saveLocked()
}

// Remove deletes key and rewrites the snapshot when the key existed.
func (store *FileKeyValueStore) Remove(ctx context.Context, key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, ok := store.values[key]; !ok {
		return nil
	}
	delete(store.values, key)
	return store.saveLocked()
}

func (store *FileKeyValueStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore.file.mkdir: %w", err)
	}
	data, err := json.MarshalIndent(fileSnapshot{Values: store.values}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore.file.encode: %w", err)
	}
	tmp := store.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("tokenstore.file.write: %w", err)
	}
	if err = os.Rename(tmp, store.path); err != nil {
		return fmt.Errorf("tokenstore.file.rename: %w", err)
	}
	return nil
}

func (store *FileKeyValueStore) load() error {
	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var snapshot fileSnapshot
	if err = json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	for key, value := range snapshot.Values {
		store.values[key] = value
	}
	return nil
}
