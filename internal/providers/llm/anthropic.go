package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	commonhttp "support-agent/internal/common/http"
)

const anthropicVersion = "2023-06-01"

// Anthropic calls the Messages API.
type Anthropic struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *commonhttp.Client
}

func NewAnthropic(baseURL, apiKey, model string, timeout time.Duration) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic provider: missing API key")
	}
	timeout = timeoutOrDefault(timeout)
	return &Anthropic{
		baseURL: strings.TrimRight(orDefault(baseURL, "https://api.anthropic.com"), "/"),
		apiKey:  apiKey,
		model:   orDefault(model, "claude-3-haiku-20240307"),
		timeout: timeout,
		client:  commonhttp.NewClient(timeout),
	}, nil
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	body := anthropicRequest{
		Model:       a.model,
		System:      req.SystemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: req.UserPrompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := a.client.PostJSON(ctx, a.baseURL+"/v1/messages", headers, body, &resp); err != nil {
		return "", classify(ctx, a.Name(), err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return checkCompletion(a.Name(), sb.String())
}
