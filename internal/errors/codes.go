// Package errors provides structured error handling for Yakgwan.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (Postgres, cache)
//   - 3XX: Upstream errors (OpenAI, Redis network)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates database and cache storage errors.
	CategoryStorage Category = "STORAGE"
	// CategoryUpstream indicates errors from upstream services.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeMissingAPIKey  = "ERR_103_MISSING_API_KEY"

	// Storage errors (200-299)
	ErrCodeDBUnavailable = "ERR_201_DB_UNAVAILABLE"
	ErrCodeQueryFailed   = "ERR_202_QUERY_FAILED"
	ErrCodeChunkNotFound = "ERR_203_CHUNK_NOT_FOUND"
	ErrCodeCacheFailed   = "ERR_204_CACHE_FAILED"

	// Upstream errors (300-399)
	ErrCodeLLMTimeout        = "ERR_301_LLM_TIMEOUT"
	ErrCodeLLMUnavailable    = "ERR_302_LLM_UNAVAILABLE"
	ErrCodeEmbeddingUpstream = "ERR_303_EMBEDDING_UPSTREAM"
	ErrCodeRateLimited       = "ERR_304_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeQueryTooLong = "ERR_403_QUERY_TOO_LONG"
	ErrCodeBadDimension = "ERR_404_BAD_DIMENSION"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed  = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed     = "ERR_503_SEARCH_FAILED"
	ErrCodeGenerationFailed = "ERR_504_GENERATION_FAILED"
	ErrCodeGraphFailed      = "ERR_505_GRAPH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "201" from "ERR_201_DB_UNAVAILABLE"
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDBUnavailable, ErrCodeMissingAPIKey:
		return SeverityFatal
	}

	// Retryable upstream errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeLLMTimeout, ErrCodeLLMUnavailable, ErrCodeEmbeddingUpstream, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}
