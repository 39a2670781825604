package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yakgwan-ai/yakgwan/internal/agent"
	"github.com/yakgwan-ai/yakgwan/internal/answer"
	"github.com/yakgwan-ai/yakgwan/internal/cache"
	"github.com/yakgwan-ai/yakgwan/internal/config"
	"github.com/yakgwan-ai/yakgwan/internal/embed"
	"github.com/yakgwan-ai/yakgwan/internal/expand"
	"github.com/yakgwan-ai/yakgwan/internal/judge"
	"github.com/yakgwan-ai/yakgwan/internal/llm"
	"github.com/yakgwan-ai/yakgwan/internal/query"
	"github.com/yakgwan-ai/yakgwan/internal/search"
	"github.com/yakgwan-ai/yakgwan/internal/store"
	"github.com/yakgwan-ai/yakgwan/internal/textkr"
	"github.com/yakgwan-ai/yakgwan/internal/token"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	format   string // "text", "json"
	taskType string // force a task type, skipping intent classification
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed policy documents",
		Long: `Ask a question about the indexed policy documents.

Runs the full pipeline: query preprocessing, hybrid search, context
completeness judgement with bounded chunk expansion, then validated
answer generation.

Examples:
  yakgwan ask "암 진단비는 얼마인가요?"
  yakgwan ask "제15조 내용을 알려주세요" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVarP(&opts.taskType, "task", "t", "", "Force task type: search, upload, manage")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, opts askOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup := setupLogging(cfg)
	defer cleanup()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	st := p.graph.Run(ctx, question, agent.TaskType(opts.taskType))

	if opts.format == "json" {
		return writeAskJSON(cmd, st)
	}
	return writeAskText(cmd, st)
}

// askResult is the JSON output shape for one question.
type askResult struct {
	RequestID      string         `json:"request_id"`
	Query          string         `json:"query"`
	TaskType       agent.TaskType `json:"task_type"`
	Answer         string         `json:"answer"`
	Validation     *answer.Report `json:"validation,omitempty"`
	ExpansionCount int            `json:"expansion_count"`
	Suggestions    []string       `json:"suggestions,omitempty"`
	Error          string         `json:"error,omitempty"`
}

func writeAskJSON(cmd *cobra.Command, st *agent.State) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(askResult{
		RequestID:      st.RequestID,
		Query:          st.Query,
		TaskType:       st.TaskType,
		Answer:         st.FinalAnswer,
		Validation:     st.Validation,
		ExpansionCount: st.ExpansionCount,
		Suggestions:    st.Suggestions,
		Error:          st.Error,
	})
}

func writeAskText(cmd *cobra.Command, st *agent.State) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, st.FinalAnswer)

	if st.Validation != nil {
		fmt.Fprintf(out, "\n신뢰도: %.2f", st.Validation.ConfidenceScore)
		if !st.Validation.IsReliable {
			fmt.Fprint(out, " (기준 미달)")
		}
		if st.Validation.RegenerationCount > 0 {
			fmt.Fprintf(out, ", 재생성 %d회", st.Validation.RegenerationCount)
		}
		fmt.Fprintln(out)
	}

	return nil
}

// pipeline bundles the wired components behind one Close.
type pipeline struct {
	graph    *agent.Graph
	store    *store.PostgresStore
	cache    cache.Cache
	embedder embed.Embedder
}

func (p *pipeline) Close() {
	p.embedder.Close()
	p.cache.Close()
	p.store.Close()
}

// buildPipeline wires the full retrieval graph from configuration.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN, cfg.Database.MaxConns, logger)
	if err != nil {
		return nil, err
	}

	c := cache.New(ctx, cache.Config{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		DefaultTTL:    time.Duration(cfg.Redis.TTLSeconds) * time.Second,
	}, logger)

	embedder := embed.NewCachedEmbedder(
		embed.NewOpenAIEmbedder(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.EmbeddingModel,
			cfg.OpenAI.EmbeddingDimensions,
			logger,
		),
		c, 0, time.Duration(cfg.Redis.TTLSeconds)*time.Second,
	)

	client := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel, logger)

	dict, err := query.LoadTermDictionary(cfg.Terms.Path)
	if err != nil {
		embedder.Close()
		c.Close()
		st.Close()
		return nil, err
	}

	counter := token.NewCounter()

	// One dictionary-seeded extractor shared by the preprocessor and the
	// keyword leg, so both segment configured terms identically.
	extractor := textkr.NewExtractor(textkr.NewDictTagger(dict.AllTerms()), logger)

	searcher := search.NewHybridSearcher(
		search.NewVectorSearcher(st, embedder, logger),
		search.NewKeywordSearcher(st, extractor, logger),
		search.NewRRFFusion(cfg.Search.RRFConstant),
		search.NewContextOptimizer(counter, cfg.Search.ContextTokenBudget),
		st,
		logger,
	)

	g := agent.NewGraph(
		agent.NewRouter(logger),
		query.NewPreprocessor(dict, extractor, logger),
		searcher,
		search.NewReranker(
			cfg.Search.RerankExactWeight,
			cfg.Search.RerankPartialWeight,
			cfg.Search.RerankFrontWeight,
		),
		judge.NewJudge(client, cfg.OpenAI.ChatModel, logger),
		expand.NewExpander(st, counter, cfg.Expansion.ChunkTokenLimit, logger),
		answer.NewAnswerer(
			answer.NewGenerator(client, cfg.OpenAI.ChatModel, logger),
			answer.NewValidator(client, cfg.OpenAI.ValidatorModel, st, logger),
			logger,
		),
		cfg.Search.Limit,
		logger,
	)

	return &pipeline{graph: g, store: st, cache: c, embedder: embedder}, nil
}
