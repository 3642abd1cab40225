// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Server     ServerConfig            `mapstructure:"server"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	LLM        LLMConfig               `mapstructure:"llm"`
	Embedding  EmbeddingConfig         `mapstructure:"embedding"`
	Index      IndexConfig             `mapstructure:"index"`
	Pipeline   PipelineConfig          `mapstructure:"pipeline"`
	Classifier ClassifierConfig        `mapstructure:"classifier"`
	Generator  GeneratorConfig         `mapstructure:"generator"`
	Catalog    CatalogConfig           `mapstructure:"catalog"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Tracing    TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// CamundaConfig controls the optional job-worker transport. When disabled the
// pipeline stages are only reachable through the HTTP API.
type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	SeedSampleData bool   `mapstructure:"seed_sample_data"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Providers ---

// ProviderConfig describes one language-model backend.
type ProviderConfig struct {
	Type    string `mapstructure:"type"` // ollama | openai | anthropic | gemini
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// Configured reports whether a backend type was set.
func (p ProviderConfig) Configured() bool {
	return p.Type != ""
}

type LLMConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Breaker   BreakerConfig  `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	MaxRequests         int  `mapstructure:"max_requests"`
	Interval            int  `mapstructure:"interval"` // milliseconds
	Timeout             int  `mapstructure:"timeout"`  // milliseconds
	ConsecutiveFailures int  `mapstructure:"consecutive_failures"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // ollama | openai
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
	Cache    struct {
		Enabled bool `mapstructure:"enabled"`
		TTL     int  `mapstructure:"ttl"` // seconds
	} `mapstructure:"cache"`
}

// IndexConfig locates the two persisted index artifacts.
type IndexConfig struct {
	Backend string `mapstructure:"backend"` // file | bolt | s3
	Dir     string `mapstructure:"dir"`
	S3      struct {
		Bucket string `mapstructure:"bucket"`
		Prefix string `mapstructure:"prefix"`
		Region string `mapstructure:"region"`
	} `mapstructure:"s3"`
}

// --- Pipeline Configuration ---

type PipelineConfig struct {
	HistoryLimit     int    `mapstructure:"history_limit"`
	TopK             int    `mapstructure:"top_k"`
	DefaultUserEmail string `mapstructure:"default_user_email"`
}

type ClassifierConfig struct {
	MaxTokens int `mapstructure:"max_tokens"`
}

type GeneratorConfig struct {
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	HistoryWindow int     `mapstructure:"history_window"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source"` // file | elasticsearch
	Path   string `mapstructure:"path"`
	Index  string `mapstructure:"index"`
	Size   int    `mapstructure:"size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
