package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the on-disk model store. Models are unpacked directories keyed
// by name; a model is installed when its directory exists.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir. An empty dir selects the default
// location: $XDG_DATA_HOME/earshot/vosk, falling back to ~/.local/share.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(dataHome(), "earshot", "vosk")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating model store %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the directory a model of the given name occupies.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// IsInstalled reports whether a model directory of the given name exists.
func (s *Store) IsInstalled(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.IsDir()
}

// Installed lists the names of all installed models.
func (s *Store) Installed() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing model store: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Remove deletes an installed model.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.Path(name))
}

// dataHome resolves the XDG data directory.
func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}
