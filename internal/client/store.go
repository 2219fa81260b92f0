package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile    = "session.json"
	sessionFileEnv = "ACCESSDESK_SESSION_FILE"
)

// Store persists a session between runs.
type Store interface {
	Load() (*Session, error)
	Save(session *Session) error
	Delete() error
}

// FileStore keeps the session as JSON in a file readable only by its owner.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store at path. An empty path falls back to
// $ACCESSDESK_SESSION_FILE, then ~/.accessdesk/session.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = os.Getenv(sessionFileEnv)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, ".accessdesk", sessionFile)
	}
	return &FileStore{path: path}, nil
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the session atomically with 0600 permissions.
func (s *FileStore) Save(session *Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("refusing to save session: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the session. A file that cannot be trusted is removed and
// reported as ErrNoSession.
func (s *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, s.discard(err)
	}
	if err := session.Validate(); err != nil {
		return nil, s.discard(err)
	}
	return &session, nil
}

func (s *FileStore) discard(cause error) error {
	if err := s.Delete(); err != nil {
		return fmt.Errorf("failed to discard corrupt session: %w", err)
	}
	return fmt.Errorf("%w: discarded unusable session file: %v", ErrNoSession, cause)
}

// Delete removes the file. A missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
