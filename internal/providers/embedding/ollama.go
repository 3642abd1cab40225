package embedding

import (
	"context"
	"strings"
	"time"

	commonhttp "support-agent/internal/common/http"
)

// OllamaEmbedder calls a local Ollama server's batch embed endpoint.
type OllamaEmbedder struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *commonhttp.Client
}

func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  commonhttp.NewClient(timeout),
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *OllamaEmbedder) Model() string { return e.model }

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var resp ollamaEmbedResponse
	err := e.client.PostJSON(ctx, e.baseURL+"/api/embed", nil, ollamaEmbedRequest{Model: e.model, Input: texts}, &resp)
	if err != nil {
		return nil, ProviderErrorf("ollama: %v", err)
	}

	if err := checkVectors(len(texts), resp.Embeddings); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}
