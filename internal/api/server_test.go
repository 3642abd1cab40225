package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/logger"
	"support-agent/internal/models"
	"support-agent/internal/pipeline"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeService struct {
	lastChat  pipeline.ChatRequest
	chatResp  *pipeline.ChatResponse
	chatErr   error
	history   []models.ConversationTurn
	histErr   error
	histLimit int
	deleted   []string
}

func (f *fakeService) Chat(_ context.Context, req pipeline.ChatRequest) (*pipeline.ChatResponse, error) {
	f.lastChat = req
	return f.chatResp, f.chatErr
}

func (f *fakeService) History(_ context.Context, _ string, limit int) ([]models.ConversationTurn, error) {
	f.histLimit = limit
	return f.history, f.histErr
}

func (f *fakeService) DeleteConversation(_ context.Context, sessionID string) (bool, error) {
	f.deleted = append(f.deleted, sessionID)
	return true, nil
}

func serve(t *testing.T, svc ChatService, checks map[string]ReadinessCheck, method, path, body string) *httptest.ResponseRecorder {
	srv := NewServer(svc, checks, logger.NewTestLogger(t))
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ==========================
// Chat
// ==========================

func TestChat_Success(t *testing.T) {
	svc := &fakeService{chatResp: &pipeline.ChatResponse{
		SessionID:          "session_0123456789abcdef",
		Query:              "Where is TRACK789012?",
		Intent:             models.IntentOrderDetails,
		DataSource:         models.DataSourceSQL,
		Answer:             "It shipped.",
		Entities:           models.EntityBag{"tracking_number": "TRACK789012"},
		Reasoning:          "tracking number",
		ContextLength:      120,
		ConversationLength: 2,
	}}

	rec := serve(t, svc, nil, http.MethodPost, "/api/v1/chat",
		`{"query":"Where is TRACK789012?","user_email":"john@example.com","session_id":null}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ORDER_DETAILS", body["intent"])
	assert.Equal(t, "SQL", body["data_source"])
	assert.Equal(t, "It shipped.", body["response"])

	meta := body["metadata"].(map[string]interface{})
	assert.Equal(t, "session_0123456789abcdef", meta["session_id"])
	assert.Equal(t, float64(120), meta["context_length"])
	assert.Equal(t, "TRACK789012", meta["entities"].(map[string]interface{})["tracking_number"])

	assert.Equal(t, "john@example.com", svc.lastChat.UserEmail)
	assert.Empty(t, svc.lastChat.SessionID)
}

func TestChat_InvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "missing query", body: `{"user_email":"john@example.com"}`},
		{name: "query not a string", body: `{"query":42}`},
		{name: "array body", body: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := serve(t, svc, nil, http.MethodPost, "/api/v1/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, decode(t, rec)["success"])
			assert.Empty(t, svc.lastChat.Query)
		})
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        apperrors.NewValidationError("query cannot be empty", ""),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "query cannot be empty",
		},
		{
			name:       "store down",
			err:        apperrors.NewStoreUnavailableError(errors.New("dial tcp: connection refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    msgUnavailable,
		},
		{
			name:       "wrapped llm timeout",
			err:        errors.Join(errors.New("generate"), apperrors.NewLLMTimeoutError(errors.New("deadline exceeded"))),
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    msgUnavailable,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeService{chatErr: tt.err}, nil, http.MethodPost, "/api/v1/chat", `{"query":" "}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMsg, body["error"])
			assert.NotContains(t, rec.Body.String(), "STORE_UNAVAILABLE")
		})
	}
}

// ==========================
// Conversations
// ==========================

func TestGetConversation(t *testing.T) {
	at := time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)
	svc := &fakeService{history: []models.ConversationTurn{
		{Role: models.RoleUser, Content: "Where is my order?", CreatedAt: at},
		{Role: models.RoleAssistant, Content: "It shipped.", Intent: models.IntentOrderDetails, DataSource: models.DataSourceSQL, CreatedAt: at},
	}}

	rec := serve(t, svc, nil, http.MethodGet, "/api/v1/conversation/session_abc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "session_abc", body["session_id"])
	assert.Equal(t, float64(2), body["message_count"])
	assert.Equal(t, conversationFetchLimit, svc.histLimit)

	messages := body["messages"].([]interface{})
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	assert.NotContains(t, first, "intent")
	assert.Equal(t, "SQL", messages[1].(map[string]interface{})["data_source"])
}

func TestGetConversation_NotFound(t *testing.T) {
	rec := serve(t, &fakeService{}, nil, http.MethodGet, "/api/v1/conversation/session_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNotFound, decode(t, rec)["error"])
}

func TestDeleteConversation(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, nil, http.MethodDelete, "/api/v1/conversation/session_abc", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
	assert.Equal(t, []string{"session_abc"}, svc.deleted)
}

// ==========================
// Health, Readiness, Metrics
// ==========================

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeService{}, nil, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := serve(t, &fakeService{}, map[string]ReadinessCheck{"postgres": ok, "index": ok}, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, &fakeService{}, map[string]ReadinessCheck{"postgres": down, "index": ok}, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := decode(t, rec)["checks"].(map[string]interface{})
	assert.Equal(t, "unavailable", checks["postgres"])
	assert.Equal(t, "ok", checks["index"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeService{}, nil, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWrongMethod(t *testing.T) {
	rec := serve(t, &fakeService{}, nil, http.MethodGet, "/api/v1/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
