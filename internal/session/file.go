package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

// fileState is the on-disk form of a CLI session.
type fileState struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Save writes the session to path with owner-only permissions so qubictl
// can reuse the credential across invocations.
func Save(s *Session, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(fileState{Token: s.Token(), User: s.User()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load reads a previously saved session. Returns (nil, nil) when no
// session file exists or the stored credential has expired.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if state.Token == "" {
		return nil, nil
	}

	s := New(state.Token, state.User)
	if !s.Active() {
		return nil, nil
	}
	return s, nil
}

// Remove deletes the session file. Missing files are not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
