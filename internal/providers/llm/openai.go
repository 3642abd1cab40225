package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	commonhttp "support-agent/internal/common/http"
)

// OpenAI calls any OpenAI-compatible /chat/completions endpoint.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *commonhttp.Client
}

func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai provider: missing API key")
	}
	timeout = timeoutOrDefault(timeout)
	return &OpenAI{
		baseURL: strings.TrimRight(orDefault(baseURL, "https://api.openai.com/v1"), "/"),
		apiKey:  apiKey,
		model:   orDefault(model, "gpt-4o-mini"),
		timeout: timeout,
		client:  commonhttp.NewClient(timeout),
	}, nil
}

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	body := openAIChatRequest{
		Model:       o.model,
		Messages:    messages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var resp openAIChatResponse
	if err := o.client.PostJSON(ctx, o.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return "", classify(ctx, o.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return checkCompletion(o.Name(), "")
	}
	return checkCompletion(o.Name(), resp.Choices[0].Message.Content)
}
