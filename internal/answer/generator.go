// Package answer generates grounded answers from retrieved context and
// validates them along four axes before release.
package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yakgwan-ai/yakgwan/internal/llm"
)

// Generation parameters. Low temperature keeps clause citations literal.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000
)

// Generator produces one answer per call from an assembled context.
type Generator struct {
	client      llm.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// NewGenerator wires the chat client. Model may be empty to use the
// client default.
func NewGenerator(client llm.Client, model string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:      client,
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		logger:      logger,
	}
}

// Generate asks the model to answer query from the reference context.
func (g *Generator) Generate(ctx context.Context, query, refContext string) (string, error) {
	user := fmt.Sprintf("참조 문서:\n\n%s\n\n질문: %s", refContext, query)

	resp, err := g.client.Complete(ctx, llm.Request{
		Model:       g.model,
		System:      systemPrompt,
		User:        user,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", err
	}

	g.logger.Info("answer generated", "chars", len(resp))
	return resp, nil
}
