// Package store persists the player state as a single JSON document with
// whole-document replace semantics. Two backends exist: a plain JSON file and
// a SQLite-backed document table. Read or parse failures degrade to "no prior
// state"; write failures surface as errors the session logs without aborting,
// keeping the in-memory state authoritative.
package store

import (
	"fmt"
	"time"

	"otherlife/internal/config"
	"otherlife/internal/game"
)

// DocumentKey is the fixed identifier the state document is stored under.
const DocumentKey = "otherlife.state.v1"

// Document is the persisted blob shape. UnlockedCommands duplicates the
// ability command list for cheap external inspection.
type Document struct {
	GameState        *game.PlayerState `json:"gameState"`
	UnlockedCommands []string          `json:"unlockedCommands"`
	LastPlayTime     string            `json:"lastPlayTime"`
}

// NewDocument wraps a state snapshot with its derived fields and a play-time
// stamp.
func NewDocument(state *game.PlayerState) *Document {
	doc := &Document{
		GameState:    state,
		LastPlayTime: time.Now().UTC().Format(time.RFC3339),
	}
	if state != nil {
		doc.UnlockedCommands = state.AbilityCommands()
	}
	return doc
}

// Store is the persistence collaborator.
type Store interface {
	// Load returns the persisted state, or nil when there is none (including
	// when the stored document is unreadable or corrupt).
	Load() (*game.PlayerState, error)

	// Save replaces the whole persisted document.
	Save(state *game.PlayerState) error

	// Reset clears the persisted state back to the empty document.
	Reset() error

	Close() error
}

// Open builds the store the configuration selects.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "file", "":
		return NewFileStore(cfg.Storage.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
