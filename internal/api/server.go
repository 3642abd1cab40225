// Package api exposes the chat pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"support-agent/internal/common/logger"
	"support-agent/internal/models"
	"support-agent/internal/pipeline"
)

const conversationFetchLimit = 50

// ChatService is the pipeline as seen by the HTTP layer.
type ChatService interface {
	Chat(ctx context.Context, req pipeline.ChatRequest) (*pipeline.ChatResponse, error)
	History(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error)
	DeleteConversation(ctx context.Context, sessionID string) (bool, error)
}

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	service ChatService
	checks  map[string]ReadinessCheck
	logger  logger.Logger
}

func NewServer(service ChatService, checks map[string]ReadinessCheck, log logger.Logger) *Server {
	return &Server{
		service: service,
		checks:  checks,
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Router returns the routes. /metrics serves the default Prometheus registry.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverer, s.requestLogger)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/chat", s.chat).Methods(http.MethodPost)
	v1.HandleFunc("/conversation/{session_id}", s.getConversation).Methods(http.MethodGet)
	v1.HandleFunc("/conversation/{session_id}", s.deleteConversation).Methods(http.MethodDelete)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Customer Support Agent API is running",
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "unavailable"
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request served", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic while serving request", map[string]interface{}{
					"path":  r.URL.Path,
					"panic": p,
				})
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
