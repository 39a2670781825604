// Package llm wraps chat completions behind a small interface so the
// judgement, answering, and validation stages can be tested with fakes.
package llm

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	yerrors "github.com/yakgwan-ai/yakgwan/internal/errors"
)

// Request is one chat completion call.
type Request struct {
	// Model overrides the client default when non-empty.
	Model       string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Client issues chat completions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient is the production Client over the OpenAI chat API.
// Calls retry with exponential backoff on transport failures.
type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
	retryCfg     yerrors.RetryConfig
	logger       *slog.Logger
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client with defaultModel used when a request
// does not name one.
func NewOpenAIClient(apiKey, baseURL, defaultModel string, logger *slog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
		retryCfg: yerrors.RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		logger: logger,
	}
}

// Complete runs one chat completion and returns the first choice's text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	started := time.Now()
	content, err := yerrors.RetryWithResult(ctx, c.retryCfg, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			return "", yerrors.New(yerrors.ErrCodeLLMUnavailable, "chat completion failed", err)
		}
		if len(resp.Choices) == 0 {
			return "", yerrors.New(yerrors.ErrCodeGenerationFailed, "empty completion response", nil)
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("chat completion",
		"model", model,
		"elapsed_ms", time.Since(started).Milliseconds(),
		"response_chars", len(content))

	return content, nil
}
