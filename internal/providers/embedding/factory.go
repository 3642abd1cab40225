package embedding

import (
	"fmt"
	"time"

	"support-agent/internal/common/config"
	"support-agent/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// New builds the configured embedder. rdb may be nil when caching is disabled.
func New(cfg config.EmbeddingConfig, rdb redis.Cmdable, log logger.Logger) (Embedder, error) {
	timeout := config.GetDuration(cfg.Timeout)

	var base Embedder
	switch cfg.Provider {
	case "ollama":
		base = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, timeout)
	case "openai":
		e, err := NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout)
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}

	if cfg.Cache.Enabled && rdb != nil {
		return NewCachedEmbedder(base, rdb, time.Duration(cfg.Cache.TTL)*time.Second, log), nil
	}
	return base, nil
}
