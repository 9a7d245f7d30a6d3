package store

import (
	"os"
	"path/filepath"
	"testing"

	"otherlife/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *game.PlayerState {
	s := game.NewPlayerState()
	s.BirthInfo = game.BirthInfo{Date: "2000-01-01", Time: "08:00", Location: "市人民医院"}
	s.CurrentTime = game.CurrentTime{Date: "2005-06-01", Time: "12:00", Age: 5}
	s.Traits = game.TraitVector{SensingOpenness: 60, LiteralCommunication: 45, EmotionalSync: 55, FocusGravity: 50, SocialFriction: 40}
	s.Timeline = append(s.Timeline, game.NewTimelineEntry("/start", "你出生了。"))
	s.Abilities = append(s.Abilities, game.Ability{Command: "/cry", Description: "大哭"})
	return s
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "game.json")
	st, err := NewFileStore(path)
	require.NoError(t, err)
	defer st.Close()

	state := sampleState()
	require.NoError(t, st.Save(state))

	got, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.Traits, got.Traits)
	assert.Equal(t, state.BirthInfo, got.BirthInfo)
	assert.Len(t, got.Timeline, 1)
	assert.Len(t, got.Abilities, 2)
}

func TestFileStore_LoadMissing(t *testing.T) {
	st, err := NewFileStore(filepath.Join(t.TempDir(), "never-written.json"))
	require.NoError(t, err)

	got, err := st.Load()
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st, err := NewFileStore(path)
	require.NoError(t, err)

	got, err := st.Load()
	assert.NoError(t, err, "corrupt document degrades to no prior state")
	assert.Nil(t, got)
}

func TestFileStore_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.json")
	st, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, st.Save(sampleState()))
	require.NoError(t, st.Reset())

	got, err := st.Load()
	require.NoError(t, err)
	assert.Nil(t, got, "reset leaves the empty document")
}

func TestNewDocument_DerivedFields(t *testing.T) {
	doc := NewDocument(sampleState())

	assert.Equal(t, []string{"/start", "/cry"}, doc.UnlockedCommands)
	assert.NotEmpty(t, doc.LastPlayTime)
}
