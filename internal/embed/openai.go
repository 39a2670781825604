package embed

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	yerrors "github.com/yakgwan-ai/yakgwan/internal/errors"
)

// OpenAIEmbedder calls the OpenAI embeddings API. Batches are fanned out
// with bounded concurrency; each batch retries with exponential backoff
// and degrades to zero vectors when retries are exhausted.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dimensions  int
	batchSize   int
	concurrency int
	retryCfg    yerrors.RetryConfig
	logger      *slog.Logger
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithBatchSize overrides the per-request text count.
func WithBatchSize(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 && n <= MaxBatchSize {
			e.batchSize = n
		}
	}
}

// WithConcurrency overrides the in-flight request cap.
func WithConcurrency(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRetryConfig overrides the per-batch retry policy.
func WithRetryConfig(cfg yerrors.RetryConfig) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.retryCfg = cfg }
}

// NewOpenAIEmbedder builds an embedder for the given model and dimension.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int, logger *slog.Logger, opts ...OpenAIOption) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	if logger == nil {
		logger = slog.Default()
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	e := &OpenAIEmbedder{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		dimensions:  dimensions,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		retryCfg: yerrors.RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed generates an embedding for a single text. On exhausted retries it
// logs and returns a zero vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into batches, fans the batches out with bounded
// concurrency, and stitches results back in order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		g.Go(func() error {
			batch, err := e.embedOnce(gctx, texts[start:end])
			if err != nil {
				// Degrade this batch to zero vectors; retrieval
				// continues on the lexical side.
				e.logger.Error("embedding batch failed after retries",
					"batch_start", start, "batch_size", end-start, "error", err)
				for i := start; i < end; i++ {
					results[i] = ZeroVector(e.dimensions)
				}
				return nil
			}
			copy(results[start:], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// embedOnce runs one API request with retry.
func (e *OpenAIEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	return yerrors.RetryWithResult(ctx, e.retryCfg, func() ([][]float32, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dimensions,
		})
		if err != nil {
			return nil, yerrors.New(yerrors.ErrCodeEmbeddingUpstream, "embedding request failed", err)
		}
		if len(resp.Data) != len(texts) {
			return nil, yerrors.New(yerrors.ErrCodeEmbeddingFailed,
				"embedding response count mismatch", nil)
		}

		vecs := make([][]float32, len(resp.Data))
		for _, d := range resp.Data {
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	})
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedder) ModelName() string { return e.model }

func (e *OpenAIEmbedder) Close() error { return nil }
