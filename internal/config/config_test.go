package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OTHERLIFE_STORAGE", "")
	t.Setenv("OTHERLIFE_STORAGE_BACKEND", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.Generator.Provider)
	assert.Equal(t, "deepseek-chat", cfg.Generator.Model)
	assert.Equal(t, 8, cfg.Game.HistoryWindow)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoad_RoundTrip(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OTHERLIFE_STORAGE", "")
	t.Setenv("OTHERLIFE_STORAGE_BACKEND", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Generator.APIKey = "sk-test"
	cfg.Game.HistoryWindow = 4
	cfg.Storage.Backend = "sqlite"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got.Generator.APIKey)
	assert.Equal(t, 4, got.Game.HistoryWindow)
	assert.Equal(t, "sqlite", got.Storage.Backend)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("DEEPSEEK_API_KEY selects deepseek", func(t *testing.T) {
		t.Setenv("DEEPSEEK_API_KEY", "ds-key")
		t.Setenv("GEMINI_API_KEY", "")

		cfg := DefaultConfig()
		cfg.Generator.Provider = "gemini"
		cfg.applyEnvOverrides()

		assert.Equal(t, "ds-key", cfg.Generator.APIKey)
		assert.Equal(t, "deepseek", cfg.Generator.Provider)
	})

	t.Run("GEMINI_API_KEY wins over DEEPSEEK_API_KEY", func(t *testing.T) {
		t.Setenv("DEEPSEEK_API_KEY", "ds-key")
		t.Setenv("GEMINI_API_KEY", "gm-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gm-key", cfg.Generator.APIKey)
		assert.Equal(t, "gemini", cfg.Generator.Provider)
	})

	t.Run("storage overrides", func(t *testing.T) {
		t.Setenv("DEEPSEEK_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("OTHERLIFE_STORAGE", "/tmp/other.json")
		t.Setenv("OTHERLIFE_STORAGE_BACKEND", "sqlite")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/other.json", cfg.Storage.Path)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Generator.APIKey = "sk-test"
		return cfg
	}

	t.Run("valid default", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base()
		cfg.Generator.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.Generator.Provider = "openai"
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative history window", func(t *testing.T) {
		cfg := base()
		cfg.Game.HistoryWindow = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown storage backend", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "redis"
		assert.Error(t, cfg.Validate())
	})
}

func TestGetGeneratorTimeout(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 120*time.Second, cfg.GetGeneratorTimeout())

	cfg.Generator.Timeout = "30s"
	assert.Equal(t, 30*time.Second, cfg.GetGeneratorTimeout())

	cfg.Generator.Timeout = "garbage"
	assert.Equal(t, 120*time.Second, cfg.GetGeneratorTimeout())
}
