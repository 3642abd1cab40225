// internal/workers/support/classify-intent/config.go
package classifyintent

import "time"

type Config struct {
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		Temperature: 0,
		MaxTokens:   150,
	}
}
