package llm

import (
	"context"
	"strings"
	"time"

	commonhttp "support-agent/internal/common/http"
)

// Ollama talks to a local Ollama server through /api/chat.
type Ollama struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *commonhttp.Client
}

func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	timeout = timeoutOrDefault(timeout)
	return &Ollama{
		baseURL: strings.TrimRight(orDefault(baseURL, "http://localhost:11434"), "/"),
		model:   orDefault(model, "llama3.2"),
		timeout: timeout,
		client:  commonhttp.NewClient(timeout),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	body := ollamaChatRequest{
		Model:    o.model,
		Messages: messages(req),
		Stream:   false,
		Options:  ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}

	var resp ollamaChatResponse
	if err := o.client.PostJSON(ctx, o.baseURL+"/api/chat", nil, body, &resp); err != nil {
		return "", classify(ctx, o.Name(), err)
	}
	return checkCompletion(o.Name(), resp.Message.Content)
}

// messages renders the request as an OpenAI-style message list.
func messages(req CompletionRequest) []chatMessage {
	out := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		out = append(out, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	return append(out, chatMessage{Role: "user", Content: req.UserPrompt})
}
