package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 60 * time.Second

// ErrUnavailable is returned when every model in the fallback chain failed
// at the transport level (network error, non-2xx, provider outage).
var ErrUnavailable = errors.New("no model in the fallback chain was reachable")

// ErrEmptyResponse is returned when at least one model responded but none
// produced any text.
var ErrEmptyResponse = errors.New("all models returned empty text")

// ChatCompleter is the slice of the OpenAI-compatible client the prompt
// client needs. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client calls a hosted generative-model API through an OpenAI-compatible
// endpoint, trying a list of model identifiers in order until one returns
// non-empty text. It carries no retry or backoff of its own; callers own
// their retry policy.
type Client struct {
	api     ChatCompleter
	models  []string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Client for the given API key, base URL, and model fallback
// chain. An empty baseURL uses the provider default.
func New(apiKey, baseURL string, models []string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		models:  models,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// NewWithCompleter creates a Client over an existing completer (used by tests).
func NewWithCompleter(api ChatCompleter, models []string) *Client {
	return &Client{
		api:     api,
		models:  models,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
}

// Generate sends the system and user prompts to each model in the chain in
// order and returns the first non-empty response text. It returns
// ErrUnavailable if every model errored, ErrEmptyResponse if models
// responded but produced no text.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	if len(c.models) == 0 {
		return "", fmt.Errorf("generate: %w", ErrUnavailable)
	}

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	responded := false
	var lastErr error
	for _, model := range c.models {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:    model,
			Messages: messages,
		})
		cancel()
		if err != nil {
			c.logger.Warn("model call failed, trying next in chain", "model", model, "error", err)
			lastErr = err
			continue
		}

		responded = true
		if len(resp.Choices) == 0 {
			c.logger.Warn("model returned no choices", "model", model)
			continue
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			c.logger.Warn("model returned empty text", "model", model)
			continue
		}
		return text, nil
	}

	if !responded {
		return "", fmt.Errorf("generate: %w (last: %v)", ErrUnavailable, lastErr)
	}
	return "", fmt.Errorf("generate: %w", ErrEmptyResponse)
}
