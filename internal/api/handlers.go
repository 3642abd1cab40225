package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/validation"
	"support-agent/internal/models"
	"support-agent/internal/pipeline"
)

const maxBodyBytes = 64 << 10

const (
	msgInternal    = "An unexpected error occurred while processing your request."
	msgUnavailable = "The support service is temporarily unavailable. Please try again later."
	msgNotFound    = "Conversation not found"
)

var chatRequestSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "maxLength": 4000},
		"user_email": {"type": ["string", "null"], "maxLength": 255},
		"session_id": {"type": ["string", "null"], "maxLength": 100}
	}
}`)

type chatRequest struct {
	Query     string  `json:"query"`
	UserEmail *string `json:"user_email"`
	SessionID *string `json:"session_id"`
}

type chatMetadata struct {
	SessionID          string           `json:"session_id"`
	Entities           models.EntityBag `json:"entities"`
	Reasoning          string           `json:"reasoning"`
	ContextLength      int              `json:"context_length"`
	ConversationLength int              `json:"conversation_length"`
}

type chatResponse struct {
	Success    bool              `json:"success"`
	Query      string            `json:"query"`
	Intent     models.Intent     `json:"intent"`
	DataSource models.DataSource `json:"data_source"`
	Response   string            `json:"response"`
	Metadata   chatMetadata      `json:"metadata"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type messageView struct {
	Role       models.Role       `json:"role"`
	Content    string            `json:"content"`
	Intent     models.Intent     `json:"intent,omitempty"`
	DataSource models.DataSource `json:"data_source,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type conversationResponse struct {
	SessionID    string        `json:"session_id"`
	MessageCount int           `json:"message_count"`
	Messages     []messageView `json:"messages"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be read.")
		return
	}

	if result := chatRequestSchema.ValidateBytes(body); !result.Valid {
		writeError(w, http.StatusBadRequest, "Invalid request: "+result.Summary())
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: body must be a JSON object.")
		return
	}

	resp, err := s.service.Chat(r.Context(), pipeline.ChatRequest{
		Query:     req.Query,
		UserEmail: deref(req.UserEmail),
		SessionID: deref(req.SessionID),
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Success:    true,
		Query:      resp.Query,
		Intent:     resp.Intent,
		DataSource: resp.DataSource,
		Response:   resp.Answer,
		Metadata: chatMetadata{
			SessionID:          resp.SessionID,
			Entities:           resp.Entities,
			Reasoning:          resp.Reasoning,
			ContextLength:      resp.ContextLength,
			ConversationLength: resp.ConversationLength,
		},
	})
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	turns, err := s.service.History(r.Context(), sessionID, conversationFetchLimit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(turns) == 0 {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	messages := make([]messageView, len(turns))
	for i, t := range turns {
		messages[i] = messageView{
			Role:       t.Role,
			Content:    t.Content,
			Intent:     t.Intent,
			DataSource: t.DataSource,
			CreatedAt:  t.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, conversationResponse{
		SessionID:    sessionID,
		MessageCount: len(messages),
		Messages:     messages,
	})
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	if _, err := s.service.DeleteConversation(r.Context(), sessionID); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Conversation deleted successfully",
	})
}

// fail maps an error to a status and a sentence. Fault codes stay in the log.
func (s *Server) fail(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	if apperrors.IsValidation(err) {
		writeError(w, http.StatusBadRequest, stdErr.Message)
		return
	}

	status := apperrors.HTTPStatus(stdErr.Code)
	switch status {
	case http.StatusServiceUnavailable:
		writeError(w, status, msgUnavailable)
	default:
		writeError(w, status, msgInternal)
	}
	s.logger.Error("request failed", map[string]interface{}{
		"code":   stdErr.Code,
		"status": status,
		"error":  err.Error(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
