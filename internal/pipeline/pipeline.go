// Package pipeline answers one chat request end to end: classify, retrieve,
// generate, and record both turns of the conversation.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/logger"
	"support-agent/internal/common/metrics"
	"support-agent/internal/common/observability"
	"support-agent/internal/models"
	generateanswer "support-agent/internal/workers/support/generate-answer"
)

const (
	defaultHistoryLimit = 10
	sessionPrefix       = "session_"
)

type Classifier interface {
	Classify(ctx context.Context, query string) models.Classification
}

type Retriever interface {
	Retrieve(ctx context.Context, intent models.Intent, query string, ents models.EntityBag, userEmail string) (*models.RetrievalResult, error)
}

type Generator interface {
	Generate(ctx context.Context, query, retrieved string, intent models.Intent, history []models.ConversationTurn) generateanswer.Answer
}

// ConversationStore is the conversation log the pipeline reads and appends to.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, sessionID, email string) error
	AppendMessage(ctx context.Context, sessionID string, turn models.ConversationTurn) error
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error)
	DeleteConversation(ctx context.Context, sessionID string) (bool, error)
}

type Config struct {
	HistoryLimit     int
	DefaultUserEmail string
}

type ChatRequest struct {
	Query     string
	UserEmail string
	SessionID string
}

type ChatResponse struct {
	SessionID          string
	Query              string
	Intent             models.Intent
	DataSource         models.DataSource
	Answer             string
	Entities           models.EntityBag
	Reasoning          string
	ContextLength      int
	// ConversationLength counts the turns loaded before this one.
	ConversationLength int
	Degraded           bool
}

type Service struct {
	config     Config
	classifier Classifier
	retriever  Retriever
	generator  Generator
	store      ConversationStore
	obs        *observability.Observability
	logger     logger.Logger
	now        func() time.Time
}

// New builds the service. obs may be nil.
func New(cfg Config, classifier Classifier, retriever Retriever, generator Generator, store ConversationStore, obs *observability.Observability, log logger.Logger) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Service{
		config:     cfg,
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		store:      store,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "pipeline"}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewSessionID returns "session_" followed by 16 hex characters.
func NewSessionID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return sessionPrefix + id[:16]
}

// Chat answers one query. Only validation and infrastructure faults are
// returned as errors; provider trouble shows up as a degraded answer.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("query cannot be empty", "")
	}

	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "pipeline.chat")
	defer span.End()

	email := strings.TrimSpace(req.UserEmail)
	if email == "" {
		email = s.config.DefaultUserEmail
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	resp, err := s.chat(ctx, query, email, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithError(err).Error("chat request failed", map[string]interface{}{
			"sessionId": sessionID,
		})
		return nil, err
	}

	metrics.ChatRequests.WithLabelValues(string(resp.Intent), string(resp.DataSource)).Inc()
	s.obs.RecordRequest(ctx, string(resp.Intent), string(resp.DataSource), time.Since(start))
	s.logger.Info("chat answered", map[string]interface{}{
		"sessionId":  sessionID,
		"intent":     resp.Intent,
		"dataSource": resp.DataSource,
		"degraded":   resp.Degraded,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

func (s *Service) chat(ctx context.Context, query, email, sessionID string) (*ChatResponse, error) {
	if err := s.store.EnsureConversation(ctx, sessionID, email); err != nil {
		return nil, err
	}

	var history []models.ConversationTurn
	err := s.stage(ctx, "history", func(ctx context.Context, _ trace.Span) error {
		var err error
		history, err = s.store.GetRecentMessages(ctx, sessionID, s.config.HistoryLimit)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendMessage(ctx, sessionID, models.ConversationTurn{
		Role:      models.RoleUser,
		Content:   query,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, err
	}

	var cls models.Classification
	_ = s.stage(ctx, "classify", func(ctx context.Context, span trace.Span) error {
		cls = s.classifier.Classify(ctx, query)
		span.SetAttributes(
			attribute.String("intent", string(cls.Intent)),
			attribute.Bool("fallback", cls.Fallback),
		)
		return nil
	})

	var retrieved *models.RetrievalResult
	err = s.stage(ctx, "retrieve", func(ctx context.Context, span trace.Span) error {
		var err error
		retrieved, err = s.retriever.Retrieve(ctx, cls.Intent, query, cls.Entities, email)
		if err == nil {
			span.SetAttributes(attribute.String("data_source", string(retrieved.DataSource)))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var answer generateanswer.Answer
	_ = s.stage(ctx, "generate", func(ctx context.Context, span trace.Span) error {
		answer = s.generator.Generate(ctx, query, retrieved.Context, cls.Intent, history)
		span.SetAttributes(attribute.Bool("degraded", answer.Degraded))
		return nil
	})

	if err := s.store.AppendMessage(ctx, sessionID, models.ConversationTurn{
		Role:       models.RoleAssistant,
		Content:    answer.Text,
		Intent:     cls.Intent,
		DataSource: retrieved.DataSource,
		CreatedAt:  s.now(),
	}); err != nil {
		return nil, err
	}

	entities := cls.Entities
	if entities == nil {
		entities = models.EntityBag{}
	}
	return &ChatResponse{
		SessionID:          sessionID,
		Query:              query,
		Intent:             cls.Intent,
		DataSource:         retrieved.DataSource,
		Answer:             answer.Text,
		Entities:           entities,
		Reasoning:          cls.Reasoning,
		ContextLength:      len(retrieved.Context),
		ConversationLength: len(history),
		Degraded:           answer.Degraded,
	}, nil
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context, trace.Span) error) error {
	ctx, span := observability.Tracer().Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx, span)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// History returns at most limit turns of the session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.NewValidationError("session id cannot be empty", "")
	}
	return s.store.GetRecentMessages(ctx, sessionID, limit)
}

// DeleteConversation removes the session. Deleting an unknown session is
// not an error.
func (s *Service) DeleteConversation(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, apperrors.NewValidationError("session id cannot be empty", "")
	}
	deleted, err := s.store.DeleteConversation(ctx, sessionID)
	if err != nil {
		return false, err
	}
	s.logger.Info("conversation deleted", map[string]interface{}{
		"sessionId": sessionID,
		"existed":   deleted,
	})
	return deleted, nil
}
