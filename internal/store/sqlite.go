package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"otherlife/internal/game"
)

// SQLiteStore keeps the state document in a one-row document table. Same
// whole-document replace semantics as the file backend, but robust against
// partial writes.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		key        TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load reads the document under the fixed key. A missing row or a corrupt
// body means "no prior state".
func (s *SQLiteStore) Load() (*game.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	err := s.db.QueryRow(`SELECT body FROM documents WHERE key = ?`, DocumentKey).Scan(&body)
	if err != nil {
		return nil, nil
	}

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, nil
	}
	return doc.GameState, nil
}

// Save replaces the whole document.
func (s *SQLiteStore) Save(state *game.PlayerState) error {
	return s.write("save", NewDocument(state))
}

// Reset writes the empty document.
func (s *SQLiteStore) Reset() error {
	return s.write("reset", NewDocument(nil))
}

func (s *SQLiteStore) write(op string, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(doc)
	if err != nil {
		return &game.PersistenceError{Op: op, Err: err}
	}

	_, err = s.db.Exec(`
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		DocumentKey, string(body))
	if err != nil {
		return &game.PersistenceError{Op: op, Err: err}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
