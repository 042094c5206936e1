package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store provides persistence for a session.
type Store interface {
	// Load returns the last persisted session, or nil if none exists.
	// Unreadable or corrupt data is treated as absent, not as an error.
	Load() (*Session, error)

	// Save overwrites the persisted session. Readers never observe a
	// partial write.
	Save(*Session) error
}

// FileStore implements Store using a single JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-based session store at path.
// If path is empty, defaults to ~/.porter/session.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".porter", "session.json")
	}

	return &FileStore{path: path}, nil
}

// Load reads the persisted cookie set. A missing file and a file that does
// not decode as a cookie array both yield (nil, nil): the session is simply
// re-acquired rather than blocking the run on a stale artifact.
func (s *FileStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		// Corrupt store: treat as absent.
		return nil, nil
	}

	if len(cookies) == 0 {
		return nil, nil
	}

	return &Session{Cookies: cookies}, nil
}

// Save writes the cookie set via a temp file and atomic rename.
func (s *FileStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess.Cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp session file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp session file: %w", err)
	}

	return nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}
