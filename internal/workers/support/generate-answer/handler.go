// internal/workers/support/generate-answer/handler.go
package generateanswer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/metrics"
	"support-agent/internal/models"
	"support-agent/internal/providers/llm"
)

const (
	TaskType = "generate-answer"
)

const (
	msgNotEnoughInfo = "I don't have enough information to answer that question."
	msgQuota         = "I'm sorry, our assistant is receiving too many requests right now. Please try again in a few minutes."
	msgTimeout       = "I'm sorry, it is taking longer than expected to prepare an answer. Please try again shortly."
	msgUnavailable   = "I'm sorry, the support assistant is temporarily unavailable. Please try again later."
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config   *Config
	provider llm.Provider
	errors   *apperrors.ErrorHandler
	logger   Logger
}

// NewHandler takes the already composed provider; failover to a secondary
// backend happens inside it.
func NewHandler(config *Config, provider llm.Provider, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:   config,
		provider: provider,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewValidationError("invalid job variables", err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("query cannot be empty", "")
	}

	a := h.Generate(ctx, query, input.Context, input.Intent, input.History)
	return &Output{
		Answer:       a.Text,
		Degraded:     a.Degraded,
		FailureClass: a.FailureClass,
	}, nil
}

// Generate always returns a sentence. Provider failures become a fixed
// message for their failure class.
func (h *Handler) Generate(ctx context.Context, query, retrieved string, intent models.Intent, history []models.ConversationTurn) Answer {
	text, err := h.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPromptFor(intent),
		UserPrompt:   buildUserPrompt(query, retrieved, history, h.config.HistoryWindow),
		Temperature:  h.config.Temperature,
		MaxTokens:    h.config.MaxTokens,
	})
	if err != nil {
		return h.degraded(err)
	}

	text, replaced := guardFabrication(text, retrieved, query)
	if len(replaced) > 0 {
		h.logger.Warn("removed tracking numbers not present in context", map[string]interface{}{
			"tokens": replaced,
		})
	}

	h.logger.Info("answer generated", map[string]interface{}{
		"intent":       intent,
		"answerLength": len(text),
	})
	return Answer{Text: text}
}

func (h *Handler) degraded(err error) Answer {
	class := llm.FailureClass(err)
	metrics.DegradedAnswers.WithLabelValues(class).Inc()
	h.logger.Warn("answer generation failed, returning fallback", map[string]interface{}{
		"class": class,
		"error": err,
	})

	var text string
	switch class {
	case "empty":
		text = msgNotEnoughInfo
	case "quota":
		text = msgQuota
	case "timeout":
		text = msgTimeout
	default:
		text = msgUnavailable
	}
	return Answer{Text: text, Degraded: true, FailureClass: class}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
