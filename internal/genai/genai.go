// Package genai wraps the OpenAI chat-completion API as the bot's completion
// gateway. The flow engine hands it fixed system instructions plus an
// assembled context block and receives free text back.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// Default model parameters, matching the production deployment.
const (
	DefaultModel       = openai.ChatModelGPT4oMini
	DefaultTemperature = 0.4
)

// ClientInterface is the completion-gateway contract consumed by the flow
// engine. A failed call wraps models.ErrServiceUnavailable; the caller
// substitutes a fixed apology and never retries within the same turn.
type ClientInterface interface {
	Complete(ctx context.Context, systemInstructions, contextBlock, userText string) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	Model       openai.ChatModel
	Temperature float64
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// Client implements ClientInterface against the OpenAI API.
type Client struct {
	client      openai.Client
	model       openai.ChatModel
	temperature float64
}

// NewClient creates a GenAI client, falling back to the OPENAI_API_KEY
// environment variable when no key option is given.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel, Temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	slog.Debug("genai.NewClient: client configured", "model", cfg.Model, "temperature", cfg.Temperature)
	return &Client{
		client:      openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends the system instructions, the context block, and the user text
// as a single chat completion and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, systemInstructions, contextBlock, userText string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemInstructions),
	}
	if contextBlock != "" {
		messages = append(messages, openai.SystemMessage(contextBlock))
	}
	messages = append(messages, openai.UserMessage(userText))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		slog.Error("genai.Complete: completion request failed", "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.Complete: no choices returned")
		return "", fmt.Errorf("%w: no choices returned", models.ErrServiceUnavailable)
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("genai.Complete: completion succeeded", "reply_length", len(reply))
	return reply, nil
}

// MockClient implements ClientInterface for tests without network access.
type MockClient struct {
	Reply string
	Err   error
	Calls []MockCall
}

// MockCall records one Complete invocation.
type MockCall struct {
	SystemInstructions string
	ContextBlock       string
	UserText           string
}

// Complete records the call and returns the configured reply or error.
func (m *MockClient) Complete(ctx context.Context, systemInstructions, contextBlock, userText string) (string, error) {
	m.Calls = append(m.Calls, MockCall{
		SystemInstructions: systemInstructions,
		ContextBlock:       contextBlock,
		UserText:           userText,
	})
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
