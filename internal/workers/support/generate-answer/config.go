// internal/workers/support/generate-answer/config.go
package generateanswer

import "time"

type Config struct {
	Timeout       time.Duration
	Temperature   float64
	MaxTokens     int
	HistoryWindow int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		Temperature:   0.3,
		MaxTokens:     500,
		HistoryWindow: 5,
	}
}
