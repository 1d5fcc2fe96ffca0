// Package openai adapts the OpenAI chat-completion API to the summary
// generator's TextGenerator interface.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds client settings. BaseURL supports OpenAI-compatible local
// servers (Ollama, LM Studio).
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
}

// Client wraps the OpenAI client behind the TextGenerator contract.
type Client struct {
	client         *openai.Client
	model          string
	maxTokens      int
	temperature    float32
	requestTimeout time.Duration
}

// NewClient creates a new OpenAI client wrapper with sensible defaults.
func NewClient(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		maxTokens:      cfg.MaxTokens,
		temperature:    float32(cfg.Temperature),
		requestTimeout: cfg.RequestTimeout,
	}
}

// Generate synthesizes prose for the prompt via chat completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
