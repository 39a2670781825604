// Package config loads and validates Yakgwan configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. YAML config file (yakgwan.yaml in the working directory, or an
//     explicit path)
//  3. Environment variables (YAKGWAN_*, plus OPENAI_API_KEY / DATABASE_URL
//     / REDIS_ADDR passthroughs)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Yakgwan configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Expansion ExpansionConfig `yaml:"expansion"`
	Answer    AnswerConfig    `yaml:"answer"`
	Terms     TermsConfig     `yaml:"terms"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig configures the Postgres chunk store.
type DatabaseConfig struct {
	// DSN is the Postgres connection string (pgx pool format).
	DSN string `yaml:"dsn"`
	// MaxConns is the pool's maximum connection count.
	MaxConns int `yaml:"max_conns"`
}

// OpenAIConfig configures the chat, validator, and embedding models.
type OpenAIConfig struct {
	// APIKey is read from OPENAI_API_KEY when empty.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the API endpoint (empty = api.openai.com).
	BaseURL string `yaml:"base_url"`
	// ChatModel generates answers and sufficiency judgements.
	ChatModel string `yaml:"chat_model"`
	// ValidatorModel runs hallucination checks; cheaper than ChatModel.
	ValidatorModel string `yaml:"validator_model"`
	// EmbeddingModel produces query and chunk embeddings.
	EmbeddingModel string `yaml:"embedding_model"`
	// EmbeddingDimensions is the fixed embedding width.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
	// EmbeddingBatchSize caps texts per embedding request.
	EmbeddingBatchSize int `yaml:"embedding_batch_size"`
	// EmbeddingConcurrency caps concurrent embedding requests.
	EmbeddingConcurrency int `yaml:"embedding_concurrency"`
}

// RedisConfig configures the optional network cache.
type RedisConfig struct {
	// Addr is host:port. Empty disables Redis; the in-process LRU is
	// used instead.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// TTLSeconds is the default expiry for cached entries.
	TTLSeconds int `yaml:"ttl_seconds"`
}

// SearchConfig configures hybrid search parameters.
type SearchConfig struct {
	// VectorThreshold is the minimum cosine similarity for vector hits.
	VectorThreshold float64 `yaml:"vector_threshold"`
	// ClauseVectorThreshold replaces VectorThreshold when a clause-number
	// filter is active, so exact clause lookups are not starved.
	ClauseVectorThreshold float64 `yaml:"clause_vector_threshold"`
	// Limit is the default result count returned to callers.
	Limit int `yaml:"limit"`
	// RRFConstant is the RRF fusion smoothing parameter (k).
	// Default: 60 (industry standard).
	RRFConstant int `yaml:"rrf_constant"`
	// ContextTokenBudget caps total tokens kept after fusion.
	ContextTokenBudget int `yaml:"context_token_budget"`
	// Rerank weights over keyword evidence in chunk content.
	RerankExactWeight   float64 `yaml:"rerank_exact_weight"`
	RerankPartialWeight float64 `yaml:"rerank_partial_weight"`
	RerankFrontWeight   float64 `yaml:"rerank_front_weight"`
}

// ExpansionConfig bounds the judge/expand loop.
type ExpansionConfig struct {
	// MaxPasses is the maximum number of expansion passes per request.
	MaxPasses int `yaml:"max_passes"`
	// ChunkTokenLimit caps one expanded chunk's merged content.
	ChunkTokenLimit int `yaml:"chunk_token_limit"`
	// LaterPassTokenCeiling blocks expansion on passes >= 1 once the
	// accumulated context reaches this size.
	LaterPassTokenCeiling int `yaml:"later_pass_token_ceiling"`
	// AdjacentWindow is the number of neighbors fetched per direction.
	AdjacentWindow int `yaml:"adjacent_window"`
	// RelevanceThreshold is the minimum keyword-overlap ratio for a
	// chunk to qualify for expansion.
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
}

// AnswerConfig configures generation and validation.
type AnswerConfig struct {
	// MaxAttempts bounds the generate/validate loop.
	MaxAttempts int `yaml:"max_attempts"`
	// Temperature for answer generation.
	Temperature float32 `yaml:"temperature"`
	// MaxTokens caps the generated answer length.
	MaxTokens int `yaml:"max_tokens"`
	// ConfidenceThreshold is the minimum weighted validation score for
	// an answer to be considered reliable.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// TermsConfig configures the insurance term dictionary.
type TermsConfig struct {
	// Path overrides the embedded default dictionary when set.
	Path string `yaml:"path"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// NewConfig creates a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:      "",
			MaxConns: 10,
		},
		OpenAI: OpenAIConfig{
			ChatModel:            "gpt-4o",
			ValidatorModel:       "gpt-4o-mini",
			EmbeddingModel:       "text-embedding-3-large",
			EmbeddingDimensions:  1536,
			EmbeddingBatchSize:   100,
			EmbeddingConcurrency: 5,
		},
		Redis: RedisConfig{
			Addr:       "",
			TTLSeconds: 3600,
		},
		Search: SearchConfig{
			VectorThreshold:       0.7,
			ClauseVectorThreshold: 0.3,
			Limit:                 10,
			RRFConstant:           60,
			ContextTokenBudget:    20000,
			RerankExactWeight:     0.3,
			RerankPartialWeight:   0.1,
			RerankFrontWeight:     0.05,
		},
		Expansion: ExpansionConfig{
			MaxPasses:             3,
			ChunkTokenLimit:       15000,
			LaterPassTokenCeiling: 10000,
			AdjacentWindow:        2,
			RelevanceThreshold:    0.3,
		},
		Answer: AnswerConfig{
			MaxAttempts:         3,
			Temperature:         0.1,
			MaxTokens:           1000,
			ConfidenceThreshold: 0.7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration. path may be empty, in which case
// yakgwan.yaml / yakgwan.yml in the working directory are tried.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else {
		for _, candidate := range []string{"yakgwan.yaml", "yakgwan.yml"} {
			if fileExists(candidate) {
				if err := cfg.loadYAML(candidate); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Database.DSN != "" {
		c.Database.DSN = other.Database.DSN
	}
	if other.Database.MaxConns != 0 {
		c.Database.MaxConns = other.Database.MaxConns
	}

	if other.OpenAI.APIKey != "" {
		c.OpenAI.APIKey = other.OpenAI.APIKey
	}
	if other.OpenAI.BaseURL != "" {
		c.OpenAI.BaseURL = other.OpenAI.BaseURL
	}
	if other.OpenAI.ChatModel != "" {
		c.OpenAI.ChatModel = other.OpenAI.ChatModel
	}
	if other.OpenAI.ValidatorModel != "" {
		c.OpenAI.ValidatorModel = other.OpenAI.ValidatorModel
	}
	if other.OpenAI.EmbeddingModel != "" {
		c.OpenAI.EmbeddingModel = other.OpenAI.EmbeddingModel
	}
	if other.OpenAI.EmbeddingDimensions != 0 {
		c.OpenAI.EmbeddingDimensions = other.OpenAI.EmbeddingDimensions
	}
	if other.OpenAI.EmbeddingBatchSize != 0 {
		c.OpenAI.EmbeddingBatchSize = other.OpenAI.EmbeddingBatchSize
	}
	if other.OpenAI.EmbeddingConcurrency != 0 {
		c.OpenAI.EmbeddingConcurrency = other.OpenAI.EmbeddingConcurrency
	}

	if other.Redis.Addr != "" {
		c.Redis.Addr = other.Redis.Addr
	}
	if other.Redis.Password != "" {
		c.Redis.Password = other.Redis.Password
	}
	if other.Redis.DB != 0 {
		c.Redis.DB = other.Redis.DB
	}
	if other.Redis.TTLSeconds != 0 {
		c.Redis.TTLSeconds = other.Redis.TTLSeconds
	}

	if other.Search.VectorThreshold != 0 {
		c.Search.VectorThreshold = other.Search.VectorThreshold
	}
	if other.Search.ClauseVectorThreshold != 0 {
		c.Search.ClauseVectorThreshold = other.Search.ClauseVectorThreshold
	}
	if other.Search.Limit != 0 {
		c.Search.Limit = other.Search.Limit
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.ContextTokenBudget != 0 {
		c.Search.ContextTokenBudget = other.Search.ContextTokenBudget
	}
	if other.Search.RerankExactWeight != 0 {
		c.Search.RerankExactWeight = other.Search.RerankExactWeight
	}
	if other.Search.RerankPartialWeight != 0 {
		c.Search.RerankPartialWeight = other.Search.RerankPartialWeight
	}
	if other.Search.RerankFrontWeight != 0 {
		c.Search.RerankFrontWeight = other.Search.RerankFrontWeight
	}

	if other.Expansion.MaxPasses != 0 {
		c.Expansion.MaxPasses = other.Expansion.MaxPasses
	}
	if other.Expansion.ChunkTokenLimit != 0 {
		c.Expansion.ChunkTokenLimit = other.Expansion.ChunkTokenLimit
	}
	if other.Expansion.LaterPassTokenCeiling != 0 {
		c.Expansion.LaterPassTokenCeiling = other.Expansion.LaterPassTokenCeiling
	}
	if other.Expansion.AdjacentWindow != 0 {
		c.Expansion.AdjacentWindow = other.Expansion.AdjacentWindow
	}
	if other.Expansion.RelevanceThreshold != 0 {
		c.Expansion.RelevanceThreshold = other.Expansion.RelevanceThreshold
	}

	if other.Answer.MaxAttempts != 0 {
		c.Answer.MaxAttempts = other.Answer.MaxAttempts
	}
	if other.Answer.Temperature != 0 {
		c.Answer.Temperature = other.Answer.Temperature
	}
	if other.Answer.MaxTokens != 0 {
		c.Answer.MaxTokens = other.Answer.MaxTokens
	}
	if other.Answer.ConfidenceThreshold != 0 {
		c.Answer.ConfidenceThreshold = other.Answer.ConfidenceThreshold
	}

	if other.Terms.Path != "" {
		c.Terms.Path = other.Terms.Path
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("YAKGWAN_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("YAKGWAN_CHAT_MODEL"); v != "" {
		c.OpenAI.ChatModel = v
	}
	if v := os.Getenv("YAKGWAN_VALIDATOR_MODEL"); v != "" {
		c.OpenAI.ValidatorModel = v
	}
	if v := os.Getenv("YAKGWAN_EMBEDDING_MODEL"); v != "" {
		c.OpenAI.EmbeddingModel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("YAKGWAN_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("YAKGWAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("YAKGWAN_VECTOR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 && f <= 1 {
			c.Search.VectorThreshold = f
		}
	}
	if v := os.Getenv("YAKGWAN_SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Limit = n
		}
	}
	if v := os.Getenv("YAKGWAN_TERMS_PATH"); v != "" {
		c.Terms.Path = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.VectorThreshold < 0 || c.Search.VectorThreshold > 1 {
		return fmt.Errorf("search.vector_threshold must be between 0 and 1, got %f", c.Search.VectorThreshold)
	}
	if c.Search.ClauseVectorThreshold < 0 || c.Search.ClauseVectorThreshold > 1 {
		return fmt.Errorf("search.clause_vector_threshold must be between 0 and 1, got %f", c.Search.ClauseVectorThreshold)
	}
	if c.Search.ClauseVectorThreshold > c.Search.VectorThreshold {
		return fmt.Errorf("search.clause_vector_threshold (%.2f) must not exceed search.vector_threshold (%.2f)",
			c.Search.ClauseVectorThreshold, c.Search.VectorThreshold)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.ContextTokenBudget <= 0 {
		return fmt.Errorf("search.context_token_budget must be positive, got %d", c.Search.ContextTokenBudget)
	}

	if c.Expansion.MaxPasses < 0 {
		return fmt.Errorf("expansion.max_passes must be non-negative, got %d", c.Expansion.MaxPasses)
	}
	if c.Expansion.ChunkTokenLimit <= 0 {
		return fmt.Errorf("expansion.chunk_token_limit must be positive, got %d", c.Expansion.ChunkTokenLimit)
	}
	if c.Expansion.RelevanceThreshold < 0 || c.Expansion.RelevanceThreshold > 1 {
		return fmt.Errorf("expansion.relevance_threshold must be between 0 and 1, got %f", c.Expansion.RelevanceThreshold)
	}

	if c.Answer.MaxAttempts <= 0 {
		return fmt.Errorf("answer.max_attempts must be positive, got %d", c.Answer.MaxAttempts)
	}
	if c.Answer.ConfidenceThreshold < 0 || c.Answer.ConfidenceThreshold > 1 {
		return fmt.Errorf("answer.confidence_threshold must be between 0 and 1, got %f", c.Answer.ConfidenceThreshold)
	}
	if math.Abs(float64(c.Answer.Temperature)) > 2 {
		return fmt.Errorf("answer.temperature out of range, got %f", c.Answer.Temperature)
	}

	if c.OpenAI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("openai.embedding_dimensions must be positive, got %d", c.OpenAI.EmbeddingDimensions)
	}
	if c.OpenAI.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("openai.embedding_batch_size must be positive, got %d", c.OpenAI.EmbeddingBatchSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
