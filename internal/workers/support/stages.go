// Package support wires the three support workers from the application
// config and the shared logger.
package support

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"support-agent/internal/common/config"
	"support-agent/internal/common/logger"
	"support-agent/internal/providers/llm"
	classifyintent "support-agent/internal/workers/support/classify-intent"
	generateanswer "support-agent/internal/workers/support/generate-answer"
	retrievecontext "support-agent/internal/workers/support/retrieve-context"
)

// Stages holds one handler per pipeline stage.
type Stages struct {
	Classifier *classifyintent.Handler
	Retriever  *retrievecontext.Handler
	Generator  *generateanswer.Handler
}

// Deps are the collaborators shared by the stages.
type Deps struct {
	Classifier llm.Provider
	Generator  llm.Provider
	Orders     retrievecontext.OrderStore
	Index      retrievecontext.ProductIndex
}

func NewStages(cfg *config.Config, deps Deps, log logger.Logger) *Stages {
	cc := classifyintent.LoadConfig()
	rc := retrievecontext.LoadConfig()
	gc := generateanswer.LoadConfig()

	if cfg != nil {
		if cfg.Classifier.MaxTokens > 0 {
			cc.MaxTokens = cfg.Classifier.MaxTokens
		}
		if cfg.Pipeline.TopK > 0 {
			rc.TopK = cfg.Pipeline.TopK
		}
		if cfg.Pipeline.DefaultUserEmail != "" {
			rc.DefaultUserEmail = cfg.Pipeline.DefaultUserEmail
		}
		if cfg.Generator.Temperature > 0 {
			gc.Temperature = cfg.Generator.Temperature
		}
		if cfg.Generator.MaxTokens > 0 {
			gc.MaxTokens = cfg.Generator.MaxTokens
		}
		if cfg.Generator.HistoryWindow > 0 {
			gc.HistoryWindow = cfg.Generator.HistoryWindow
		}
		applyWorkerTimeout(cfg, classifyintent.TaskType, &cc.Timeout)
		applyWorkerTimeout(cfg, retrievecontext.TaskType, &rc.Timeout)
		applyWorkerTimeout(cfg, generateanswer.TaskType, &gc.Timeout)
	}

	return &Stages{
		Classifier: classifyintent.NewHandler(cc, deps.Classifier, &classifyLogger{log}),
		Retriever:  retrievecontext.NewHandler(rc, deps.Orders, deps.Index, &retrieveLogger{log}),
		Generator:  generateanswer.NewHandler(gc, deps.Generator, &generateLogger{log}),
	}
}

func applyWorkerTimeout(cfg *config.Config, taskType string, d *time.Duration) {
	if wc, ok := cfg.Workers[taskType]; ok && wc.Timeout > 0 {
		*d = config.GetDuration(wc.Timeout)
	}
}

// JobHandler is what a Camunda job worker dispatches to.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Jobs maps task types to their handlers.
func (s *Stages) Jobs() map[string]JobHandler {
	return map[string]JobHandler{
		classifyintent.TaskType:  s.Classifier,
		retrievecontext.TaskType: s.Retriever,
		generateanswer.TaskType:  s.Generator,
	}
}

type classifyLogger struct{ logger.Logger }

func (a *classifyLogger) With(fields map[string]interface{}) classifyintent.Logger {
	return &classifyLogger{a.Logger.With(fields)}
}

type retrieveLogger struct{ logger.Logger }

func (a *retrieveLogger) With(fields map[string]interface{}) retrievecontext.Logger {
	return &retrieveLogger{a.Logger.With(fields)}
}

type generateLogger struct{ logger.Logger }

func (a *generateLogger) With(fields map[string]interface{}) generateanswer.Logger {
	return &generateLogger{a.Logger.With(fields)}
}
