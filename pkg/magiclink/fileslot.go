package magiclink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSlot is the durable Channel implementation: a single file holding at
// most one pending URL. The human-facing hand-off surface writes the file;
// porter only reads and clears it.
type FileSlot struct {
	path string
	mu   sync.Mutex
}

// NewFileSlot creates a file-backed slot at path.
// If path is empty, defaults to ~/.porter/magic-link.txt.
func NewFileSlot(path string) (*FileSlot, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".porter", "magic-link.txt")
	}

	return &FileSlot{path: path}, nil
}

// Peek returns the pending URL without consuming it. Whitespace is trimmed;
// an empty or whitespace-only file counts as an empty slot.
func (s *FileSlot) Peek() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read magic link slot: %w", err)
	}

	url := strings.TrimSpace(string(data))
	if url == "" {
		return "", false, nil
	}
	return url, true, nil
}

// Clear deletes the slot file. Clearing an already-empty slot is a no-op.
func (s *FileSlot) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear magic link slot: %w", err)
	}
	return nil
}

// Path returns the slot's file path.
func (s *FileSlot) Path() string {
	return s.path
}

// Mailbox is an in-memory Channel for tests and embedded use. It has the
// same capacity-one semantics as FileSlot.
type Mailbox struct {
	mu  sync.Mutex
	url string
}

// NewMailbox creates an empty in-memory slot.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Put deposits a URL, replacing any pending one.
func (m *Mailbox) Put(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url = strings.TrimSpace(url)
}

// Peek returns the pending URL without consuming it.
func (m *Mailbox) Peek() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.url == "" {
		return "", false, nil
	}
	return m.url, true, nil
}

// Clear empties the slot.
func (m *Mailbox) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url = ""
	return nil
}
