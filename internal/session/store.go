package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists the bearer credential on disk across process restarts.
// The credential is the only durable state; its absence is the normal
// anonymous case, not an error.
type Store struct {
	path string
	mu   sync.RWMutex
}

type storedCredential struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// NewStore creates a credential store writing to the provided path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path used for persistence.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted credential. It returns an empty token when no
// credential is stored.
func (s *Store) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	var cred storedCredential
	if err := json.NewDecoder(file).Decode(&cred); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}

	return cred.Token, nil
}

// Save persists the credential to disk with restrictive permissions.
func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}

	cred := storedCredential{Token: token, SavedAt: time.Now()}

	tempFile := s.path + ".tmp"
	file, err := os.OpenFile(tempFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cred); err != nil {
		file.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		return fmt.Errorf("atomically replace session file: %w", err)
	}

	return nil
}

// Clear removes the persisted credential.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
