// Package errors provides the standardized error taxonomy shared by the HTTP
// transport and the Camunda job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeEmbeddingProviderFailed ErrorCode = "EMBEDDING_PROVIDER_FAILED"
	ErrCodeLLMProviderFailed       ErrorCode = "LLM_PROVIDER_FAILED"
	ErrCodeLLMTimeout              ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMQuotaExceeded        ErrorCode = "LLM_QUOTA_EXCEEDED"

	ErrCodeIndexCorrupted     ErrorCode = "INDEX_CORRUPTED"
	ErrCodeIndexPersistFailed ErrorCode = "INDEX_PERSIST_FAILED"

	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	stdErr := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
	if cause != nil {
		stdErr.Details = cause.Error()
	}
	return stdErr
}

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(message, details string) *StandardError {
	stdErr := newError(ErrCodeValidationFailed, message, nil, false)
	stdErr.Details = details
	return stdErr
}

// NewStoreUnavailableError creates a retryable store connectivity error.
func NewStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, "Store is unavailable", err, true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	stdErr := newError(ErrCodeQueryExecutionFailed, "Store query execution error", err, true)
	stdErr.Details = fmt.Sprintf("operation: %s, error: %v", operation, err)
	return stdErr
}

func NewEmbeddingProviderError(err error) *StandardError {
	return newError(ErrCodeEmbeddingProviderFailed, "Embedding provider call failed", err, true)
}

func NewLLMProviderError(err error) *StandardError {
	return newError(ErrCodeLLMProviderFailed, "Language model provider call failed", err, true)
}

func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model provider timed out", err, true)
}

func NewLLMQuotaExceededError(err error) *StandardError {
	return newError(ErrCodeLLMQuotaExceeded, "Language model provider quota exceeded", err, false)
}

// NewIndexCorruptedError reports mismatched or unreadable index artifacts.
func NewIndexCorruptedError(details string) *StandardError {
	stdErr := newError(ErrCodeIndexCorrupted, "Semantic index artifacts are inconsistent", nil, false)
	stdErr.Details = details
	return stdErr
}

func NewIndexPersistFailedError(err error) *StandardError {
	return newError(ErrCodeIndexPersistFailed, "Failed to persist semantic index", err, true)
}

func NewCatalogLoadFailedError(source string, err error) *StandardError {
	stdErr := newError(ErrCodeCatalogLoadFailed, "Failed to load product catalog", err, true)
	stdErr.Metadata = map[string]interface{}{"source": source}
	return stdErr
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a job failure.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable,
		ErrCodeQueryExecutionFailed,
		ErrCodeEmbeddingProviderFailed,
		ErrCodeLLMProviderFailed,
		ErrCodeIndexPersistFailed,
		ErrCodeCatalogLoadFailed:
		return 3

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds a StandardError anywhere in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsValidation reports whether err carries VALIDATION_FAILED.
func IsValidation(err error) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == ErrCodeValidationFailed
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch GetErrorCategory(code) {
	case "VALIDATION":
		return http.StatusBadRequest
	case "STORE", "AI", "INDEX":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "QUERY"):
		return "STORE"
	case strings.Contains(codeStr, "EMBEDDING") || strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "INDEX") || strings.Contains(codeStr, "CATALOG"):
		return "INDEX"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
