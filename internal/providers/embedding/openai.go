package embedding

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	commonhttp "support-agent/internal/common/http"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
	client     *commonhttp.Client
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, timeout time.Duration) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		maxRetries: 2,
		client:     commonhttp.NewClient(timeout),
	}, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed retries rate-limit and server errors with capped exponential backoff,
// all within one overall timeout.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	headers := map[string]string{"Authorization": "Bearer " + e.apiKey}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt - 1)):
			case <-ctx.Done():
				return nil, ProviderErrorf("openai: %v", ctx.Err())
			}
		}

		var resp openAIEmbedResponse
		err := e.client.PostJSON(ctx, e.baseURL+"/embeddings", headers, openAIEmbedRequest{Model: e.model, Input: texts}, &resp)
		if err == nil {
			sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
			vectors := make([][]float32, len(resp.Data))
			for i, d := range resp.Data {
				vectors[i] = d.Embedding
			}
			if err := checkVectors(len(texts), vectors); err != nil {
				return nil, err
			}
			return vectors, nil
		}

		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, ProviderErrorf("openai: %v", lastErr)
}

func retryable(err error) bool {
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
