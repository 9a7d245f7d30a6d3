package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"otherlife/internal/game"
)

// FileStore keeps the state document in one JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates the parent directory and returns a file-backed store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Load reads the document. Missing, unreadable, or corrupt files all mean "no
// prior state".
func (s *FileStore) Load() (*game.PlayerState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}
	return doc.GameState, nil
}

// Save replaces the whole document.
func (s *FileStore) Save(state *game.PlayerState) error {
	data, err := json.MarshalIndent(NewDocument(state), "", "  ")
	if err != nil {
		return &game.PersistenceError{Op: "save", Err: err}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return &game.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Reset writes the empty document.
func (s *FileStore) Reset() error {
	data, err := json.MarshalIndent(NewDocument(nil), "", "  ")
	if err != nil {
		return &game.PersistenceError{Op: "reset", Err: err}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return &game.PersistenceError{Op: "reset", Err: err}
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
