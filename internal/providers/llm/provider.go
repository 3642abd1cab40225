// Package llm holds the language-model backends used by the classifier and
// the answer generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "support-agent/internal/common/errors"
	commonhttp "support-agent/internal/common/http"
	"support-agent/internal/common/metrics"
)

const defaultTimeout = 30 * time.Second

var (
	ErrProviderTimeout     = errors.New("LLM_TIMEOUT")
	ErrQuotaExceeded       = errors.New("LLM_QUOTA_EXCEEDED")
	ErrProviderUnavailable = errors.New("LLM_PROVIDER_FAILED")
	ErrEmptyCompletion     = errors.New("LLM_EMPTY_COMPLETION")
)

// CompletionRequest is one system+user exchange.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Provider returns the text of a single completion.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// FailureClass maps a provider error onto its metric/fallback label.
func FailureClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty"
	default:
		return "unavailable"
	}
}

// classify converts a transport error into a StandardError whose cause
// wraps one of the package sentinels.
func classify(ctx context.Context, provider string, err error) error {
	var statusErr *commonhttp.StatusError
	var netErr net.Error
	var sentinel error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		sentinel = ErrProviderTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		sentinel = ErrProviderTimeout
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		sentinel = ErrQuotaExceeded
	default:
		sentinel = ErrProviderUnavailable
	}
	metrics.ProviderFailures.WithLabelValues(provider, FailureClass(sentinel)).Inc()
	return providerError(sentinel, fmt.Errorf("%w: %s: %v", sentinel, provider, err))
}

func providerError(sentinel, cause error) error {
	switch sentinel {
	case ErrProviderTimeout:
		return apperrors.NewLLMTimeoutError(cause)
	case ErrQuotaExceeded:
		return apperrors.NewLLMQuotaExceededError(cause)
	default:
		return apperrors.NewLLMProviderError(cause)
	}
}

func checkCompletion(provider, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ProviderFailures.WithLabelValues(provider, "empty").Inc()
		return "", providerError(ErrEmptyCompletion, fmt.Errorf("%w: %s", ErrEmptyCompletion, provider))
	}
	return text, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
