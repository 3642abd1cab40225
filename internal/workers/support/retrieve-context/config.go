// internal/workers/support/retrieve-context/config.go
package retrievecontext

import "time"

type Config struct {
	Timeout          time.Duration
	TopK             int
	DefaultUserEmail string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		TopK:             3,
		DefaultUserEmail: "john@example.com",
	}
}
