package generator

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"otherlife/internal/game"
)

// GeminiClient implements Client on top of the Google GenAI SDK. The chat
// transcript maps onto Gemini contents: the system message becomes the system
// instruction, assistant turns become model turns.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a Gemini-backed generator client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: 0.3,
	}, nil
}

// Generate sends the transcript and returns the reply text.
func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (string, error) {
	var system string
	var contents []*genai.Content

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("GenAI generate failed: %w", err)}
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("empty completion returned")}
	}
	return text, nil
}

// Model returns the current model.
func (c *GeminiClient) Model() string { return c.model }
