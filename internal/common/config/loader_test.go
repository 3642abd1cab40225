package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: support
    user: support
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "support-agent", cfg.App.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	assert.Equal(t, "ollama", cfg.LLM.Primary.Type)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Primary.BaseURL)
	assert.Equal(t, 30000, cfg.LLM.Primary.Timeout)
	assert.False(t, cfg.LLM.Secondary.Configured())

	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "file", cfg.Index.Backend)

	assert.Equal(t, 10, cfg.Pipeline.HistoryLimit)
	assert.Equal(t, 3, cfg.Pipeline.TopK)
	assert.Equal(t, "john@example.com", cfg.Pipeline.DefaultUserEmail)
	assert.Equal(t, 150, cfg.Classifier.MaxTokens)
	assert.Equal(t, 0.3, cfg.Generator.Temperature)
	assert.Equal(t, 500, cfg.Generator.MaxTokens)
	assert.Equal(t, 5, cfg.Generator.HistoryWindow)
}

func TestLoadFromFile_SecondaryProviderAndEnvExpansion(t *testing.T) {
	t.Setenv("SUPPORT_TEST_PG_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`    password: ${SUPPORT_TEST_PG_PASSWORD}
llm:
  primary:
    type: openai
    api_key: primary-key
  secondary:
    type: anthropic
    api_key: secondary-key
    timeout: 5000
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Primary.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.Primary.BaseURL)
	assert.True(t, cfg.LLM.Secondary.Configured())
	assert.Equal(t, "https://api.anthropic.com", cfg.LLM.Secondary.BaseURL)
	assert.Equal(t, 5000, cfg.LLM.Secondary.Timeout)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{
			name:    "unknown llm provider",
			extra:   "llm:\n  primary:\n    type: bard\n",
			wantErr: "llm.primary.type",
		},
		{
			name:    "s3 backend without bucket",
			extra:   "index:\n  backend: s3\n",
			wantErr: "index.s3.bucket",
		},
		{
			name:    "camunda enabled without broker",
			extra:   "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "elasticsearch catalog without address",
			extra:   "catalog:\n  source: elasticsearch\n",
			wantErr: "database.elasticsearch",
		},
		{
			name:    "cache without redis",
			extra:   "embedding:\n  cache:\n    enabled: true\n",
			wantErr: "database.redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, minimalConfig+tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingPostgres(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "app:\n  name: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.postgres.host")
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"classify-intent": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "classify-intent"))
	assert.True(t, IsWorkerEnabled(cfg, "generate-answer"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "classify-intent").MaxJobsActive)
	assert.Equal(t, 3, GetWorkerConfig(cfg, "generate-answer").MaxRetries)
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
