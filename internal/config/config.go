// Package config holds all otherlife configuration: generator provider
// selection, game tuning, storage backend, and logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all otherlife configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// External narrative model
	Generator GeneratorConfig `yaml:"generator"`

	// Turn-resolution tuning
	Game GameConfig `yaml:"game"`

	// Persistence
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GeneratorConfig configures the generator collaborator.
type GeneratorConfig struct {
	Provider    string  `yaml:"provider"` // deepseek, gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// GameConfig configures the turn resolver.
type GameConfig struct {
	// HistoryWindow bounds the prior turns sent as generator context. A
	// smaller window trades narrative coherence for request cost.
	HistoryWindow int `yaml:"history_window"`
}

// StorageConfig configures the state store adapter.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file, sqlite
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "otherlife",
		Version: "0.3.0",

		Generator: GeneratorConfig{
			Provider:    "deepseek",
			Model:       "deepseek-chat",
			BaseURL:     "https://api.deepseek.com/v1",
			MaxTokens:   1500,
			Temperature: 0.3,
			Timeout:     "120s",
		},

		Game: GameConfig{
			HistoryWindow: 8,
		},

		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(".otherlife", "game.json"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. An API key in the
// environment also selects that provider.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		c.Generator.APIKey = key
		c.Generator.Provider = "deepseek"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generator.APIKey = key
		c.Generator.Provider = "gemini"
	}
	if path := os.Getenv("OTHERLIFE_STORAGE"); path != "" {
		c.Storage.Path = path
	}
	if backend := os.Getenv("OTHERLIFE_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
}

// GetGeneratorTimeout returns the generator timeout as a duration.
func (c *Config) GetGeneratorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generator.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ValidProviders lists the supported generator providers.
var ValidProviders = []string{"deepseek", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Generator.APIKey == "" {
		return fmt.Errorf("generator API key not configured (set DEEPSEEK_API_KEY or GEMINI_API_KEY)")
	}

	valid := false
	for _, p := range ValidProviders {
		if c.Generator.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid generator provider: %s (valid: %v)", c.Generator.Provider, ValidProviders)
	}

	if c.Game.HistoryWindow < 0 {
		return fmt.Errorf("history_window must be non-negative")
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend: %s (valid: file, sqlite)", c.Storage.Backend)
	}

	return nil
}

// DefaultConfigPath returns the default config location under the working
// directory.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".otherlife", "config.yaml")
	}
	return filepath.Join(cwd, ".otherlife", "config.yaml")
}
