package generator

import (
	"context"
	"fmt"

	"otherlife/internal/config"
)

// NewFromConfig builds the generator client the configuration selects.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	gen := cfg.Generator
	switch gen.Provider {
	case "deepseek", "":
		ds := DefaultDeepSeekConfig(gen.APIKey)
		if gen.BaseURL != "" {
			ds.BaseURL = gen.BaseURL
		}
		if gen.Model != "" {
			ds.Model = gen.Model
		}
		if gen.MaxTokens > 0 {
			ds.MaxTokens = gen.MaxTokens
		}
		if gen.Temperature > 0 {
			ds.Temperature = gen.Temperature
		}
		ds.Timeout = cfg.GetGeneratorTimeout()
		return NewDeepSeekClientWithConfig(ds), nil

	case "gemini":
		return NewGeminiClient(ctx, gen.APIKey, gen.Model)

	default:
		return nil, fmt.Errorf("unknown generator provider: %s", gen.Provider)
	}
}
