package settings

import (
	"errors"
	"io/fs"
	"sync"

	"wallswitch/internal/logging"
)

// Store holds the current settings snapshot for concurrent readers.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewStore loads path. A missing file yields defaults; any other read or
// validation error is returned.
func NewStore(path string) (*Store, error) {
	st := &Store{path: path}
	if err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

// NewStaticStore returns a store that never touches disk.
func NewStaticStore(s Settings) *Store {
	return &Store{current: s.Clone()}
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current.Clone()
}

// Set replaces the in-memory settings without writing them.
func (st *Store) Set(s Settings) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = s.Clone()
}

// Path returns the backing file path, empty for static stores.
func (st *Store) Path() string {
	return st.path
}

// Reload re-reads the settings file.
func (st *Store) Reload() error {
	if st.path == "" {
		return nil
	}

	s, err := Load(st.path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Info("Settings file %s not found, using defaults", st.path)
		s = Default()
	} else if err != nil {
		return err
	}

	st.Set(s)
	return nil
}
