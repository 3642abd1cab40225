package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_UnwrapAndAs(t *testing.T) {
	cause := stderrors.New("connection refused")
	wrapped := fmt.Errorf("load orders: %w", NewStoreUnavailableError(cause))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeStoreUnavailable, stdErr.Code)
	assert.Equal(t, "connection refused", stdErr.Details)
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("Query must not be empty", "")))
	assert.True(t, IsValidation(fmt.Errorf("chat: %w", NewValidationError("bad", ""))))
	assert.False(t, IsValidation(NewInternalError(stderrors.New("boom"))))
	assert.False(t, IsValidation(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeQueryExecutionFailed, http.StatusServiceUnavailable},
		{ErrCodeLLMTimeout, http.StatusServiceUnavailable},
		{ErrCodeIndexCorrupted, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewQueryExecutionFailedError("orders_for_user", stderrors.New("timeout")))
	assert.Equal(t, "QUERY_EXECUTION_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.Contains(t, bpmn.Details, "orders_for_user")

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "QUERY_EXECUTION_FAILED", vars["originalErrorCode"])

	quota := ConvertToBPMNError(NewLLMQuotaExceededError(stderrors.New("429")))
	assert.Equal(t, 0, quota.Retries)
	assert.False(t, quota.Retryable)
}

func TestNormalize(t *testing.T) {
	stdErr := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "boom", stdErr.Details)

	original := NewIndexCorruptedError("metadata.json missing")
	assert.Same(t, original, Normalize(original))
}
