package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the current session. Implementations must be safe for
// concurrent use.
type Store interface {
	// Load returns the stored session. The second return value is false
	// when no session has been stored yet.
	Load() (Session, bool)
	// Save replaces the stored session.
	Save(s Session) error
	// Clear removes the stored session.
	Clear() error
}

// MemoryStore keeps the session in memory. It is the store to use in tests
// and in programs that don't want a login to outlive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
	ok      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.ok
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.ok = true
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	m.ok = false
	return nil
}

// FileStore persists the session as JSON on disk so that a login survives
// process restarts. The file is created with 0600 since it holds a token.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Session{}, false
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false
	}
	return s, true
}

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("session: create store directory: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write session: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove session: %w", err)
	}
	return nil
}
