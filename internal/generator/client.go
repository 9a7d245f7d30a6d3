// Package generator wraps the external narrative model. The core calls it
// once per turn and never trusts its output structurally; everything returned
// here goes through the normalizer before it can touch state.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"otherlife/internal/game"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the chat transcript sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the generator collaborator: a black-box chat completion the turn
// resolver awaits to completion or failure. No streaming is consumed.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// DeepSeekConfig holds configuration for the DeepSeek client.
type DeepSeekConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultDeepSeekConfig returns sensible defaults. Temperature is kept low to
// get consistent JSON out of the model.
func DefaultDeepSeekConfig(apiKey string) DeepSeekConfig {
	return DeepSeekConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.deepseek.com/v1",
		Model:       "deepseek-chat",
		MaxTokens:   1500,
		Temperature: 0.3,
		Timeout:     120 * time.Second,
	}
}

// DeepSeekClient implements Client against the DeepSeek chat completions API
// (OpenAI-compatible).
type DeepSeekClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewDeepSeekClient creates a client with default config.
func NewDeepSeekClient(apiKey string) *DeepSeekClient {
	return NewDeepSeekClientWithConfig(DefaultDeepSeekConfig(apiKey))
}

// NewDeepSeekClientWithConfig creates a client with custom config.
func NewDeepSeekClientWithConfig(cfg DeepSeekConfig) *DeepSeekClient {
	return &DeepSeekClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate sends the transcript and returns the model's reply text. Transport
// and auth failures come back as *game.GeneratorUnavailableError; rate limits
// retry with exponential backoff first.
func (c *DeepSeekClient) Generate(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("API key not configured")}
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	// At least 100ms between requests.
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s.
			select {
			case <-ctx.Done():
				return "", &game.GeneratorUnavailableError{Err: ctx.Err()}
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", &game.GeneratorUnavailableError{
				Err: fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)),
			}
		}

		var cr chatResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("failed to parse response: %w", err)}
		}
		if cr.Error != nil {
			return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("API error: %s", cr.Error.Message)}
		}
		if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
			return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("empty completion returned")}
		}

		return strings.TrimSpace(cr.Choices[0].Message.Content), nil
	}

	return "", &game.GeneratorUnavailableError{Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

// SetModel changes the model used for completions.
func (c *DeepSeekClient) SetModel(model string) { c.model = model }

// Model returns the current model.
func (c *DeepSeekClient) Model() string { return c.model }
