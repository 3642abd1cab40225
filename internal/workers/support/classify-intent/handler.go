// internal/workers/support/classify-intent/handler.go
package classifyintent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/metrics"
	"support-agent/internal/models"
	"support-agent/internal/providers/llm"
)

const (
	TaskType = "classify-intent"
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

	c := h.Classify(ctx, query)
	return &Output{
		Intent:    c.Intent,
		Reasoning: c.Reasoning,
		Entities:  c.Entities,
		Fallback:  c.Fallback,
	}, nil
}

// Classify never fails: provider and parse errors degrade to PRODUCT_DETAILS
// with no entities.
func (h *Handler) Classify(ctx context.Context, query string) models.Classification {
	raw, err := h.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(query),
		Temperature:  h.config.Temperature,
		MaxTokens:    h.config.MaxTokens,
	})
	if err != nil {
		return h.fallback("provider error", err)
	}

	c, err := parseClassification(raw)
	if err != nil {
		return h.fallback("unparseable output", err)
	}

	h.logger.Info("intent classified", map[string]interface{}{
		"intent":      c.Intent,
		"entityCount": len(c.Entities),
	})
	return c
}

func (h *Handler) fallback(reason string, err error) models.Classification {
	metrics.ClassifierFallbacks.Inc()
	h.logger.Warn("classification fell back to default intent", map[string]interface{}{
		"reason": reason,
		"error":  err,
	})
	return models.Classification{
		Intent:    models.IntentProductDetails,
		Reasoning: fmt.Sprintf("classification failed (%s), defaulted to product search", reason),
		Entities:  models.EntityBag{},
		Fallback:  true,
	}
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
