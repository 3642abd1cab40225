package llm

import (
	"fmt"

	"support-agent/internal/common/config"
)

// New builds a single backend from its configuration.
func New(cfg config.ProviderConfig) (Provider, error) {
	timeout := config.GetDuration(cfg.Timeout)

	switch cfg.Type {
	case "ollama":
		return NewOllama(cfg.BaseURL, cfg.Model, timeout), nil
	case "openai":
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout)
	case "anthropic":
		return NewAnthropic(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout)
	case "gemini":
		return NewGemini(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Type)
	}
}

// NewFromConfig wires primary, optional secondary and the circuit breakers.
func NewFromConfig(cfg config.LLMConfig, log Logger) (Provider, error) {
	primary, err := New(cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}
	primary = withBreaker(primary, cfg.Breaker, log)

	if !cfg.Secondary.Configured() {
		return primary, nil
	}

	secondary, err := New(cfg.Secondary)
	if err != nil {
		return nil, fmt.Errorf("secondary: %w", err)
	}
	secondary = withBreaker(secondary, cfg.Breaker, log)

	return NewFailover(primary, secondary, log), nil
}

func withBreaker(p Provider, cfg config.BreakerConfig, log Logger) Provider {
	if !cfg.Enabled {
		return p
	}
	return NewBreaker(p, BreakerSettings{
		MaxRequests:         uint32(cfg.MaxRequests),
		Interval:            config.GetDuration(cfg.Interval),
		Timeout:             config.GetDuration(cfg.Timeout),
		ConsecutiveFailures: uint32(cfg.ConsecutiveFailures),
	}, log)
}
