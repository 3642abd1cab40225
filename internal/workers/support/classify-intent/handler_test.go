// internal/workers/support/classify-intent/handler_test.go
package classifyintent

import (
	"context"
	"testing"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/models"
	"support-agent/internal/providers/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

type scriptedProvider struct {
	reply string
	err   error
	last  llm.CompletionRequest
	calls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p.calls++
	p.last = req
	return p.reply, p.err
}

func newTestHandler(t *testing.T, p llm.Provider) *Handler {
	return NewHandler(LoadConfig(), p, NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Classify(t *testing.T) {
	tests := []struct {
		name         string
		reply        string
		wantIntent   models.Intent
		wantEntities models.EntityBag
		wantFallback bool
	}{
		{
			name:         "order with tracking number",
			reply:        `{"intent":"ORDER_DETAILS","reasoning":"tracking lookup","entities":{"tracking_number":"TRACK123456"}}`,
			wantIntent:   models.IntentOrderDetails,
			wantEntities: models.EntityBag{"tracking_number": "TRACK123456"},
		},
		{
			name:         "hybrid with time reference",
			reply:        `{"intent":"ORDER_PRODUCT_DETAILS","reasoning":"past purchase","entities":{"product_name":"laptop","time_reference":"last month"}}`,
			wantIntent:   models.IntentOrderProductDetails,
			wantEntities: models.EntityBag{"product_name": "laptop", "time_reference": "last month"},
		},
		{
			name:         "fenced output with prose",
			reply:        "Sure! Here you go:\n```json\n{\"intent\": \"PRODUCT_DETAILS\", \"reasoning\": \"catalog {question}\", \"entities\": {}}\n```",
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
		},
		{
			name:         "lower case label and empty entities dropped",
			reply:        `{"intent":"order_details","entities":{"tracking_number":"","product_name":null}}`,
			wantIntent:   models.IntentOrderDetails,
			wantEntities: models.EntityBag{},
		},
		{
			name:         "entities null",
			reply:        `{"intent":"PRODUCT_DETAILS","reasoning":"x","entities":null}`,
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
		},
		{
			name:         "unknown label",
			reply:        `{"intent":"REFUND_REQUEST","reasoning":"refund"}`,
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
			wantFallback: true,
		},
		{
			name:         "malformed json",
			reply:        `{"intent": "ORDER_DETAILS", "entities": {`,
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
			wantFallback: true,
		},
		{
			name:         "single-quoted dict literal is rejected",
			reply:        `{'intent': 'ORDER_DETAILS', 'entities': {}}`,
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
			wantFallback: true,
		},
		{
			name:         "no json at all",
			reply:        "ORDER_DETAILS",
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
			wantFallback: true,
		},
		{
			name:         "non string entity value",
			reply:        `{"intent":"ORDER_DETAILS","entities":{"tracking_number":123456}}`,
			wantIntent:   models.IntentProductDetails,
			wantEntities: models.EntityBag{},
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{reply: tt.reply}
			c := newTestHandler(t, p).Classify(context.Background(), "where is my order?")

			assert.Equal(t, tt.wantIntent, c.Intent)
			assert.Equal(t, tt.wantEntities, c.Entities)
			assert.Equal(t, tt.wantFallback, c.Fallback)
			if tt.wantFallback {
				assert.NotEmpty(t, c.Reasoning)
			}
		})
	}
}

func TestHandler_Classify_ProviderRequest(t *testing.T) {
	p := &scriptedProvider{reply: `{"intent":"PRODUCT_DETAILS"}`}
	newTestHandler(t, p).Classify(context.Background(), "Tell me about Samsung Galaxy S23")

	require.Equal(t, 1, p.calls)
	assert.Equal(t, 0.0, p.last.Temperature)
	assert.Equal(t, 150, p.last.MaxTokens)
	assert.Contains(t, p.last.SystemPrompt, "ORDER_PRODUCT_DETAILS")
	assert.Contains(t, p.last.UserPrompt, "Tell me about Samsung Galaxy S23")
}

func TestHandler_Classify_ProviderFailure(t *testing.T) {
	for _, err := range []error{llm.ErrProviderTimeout, llm.ErrQuotaExceeded, llm.ErrProviderUnavailable} {
		c := newTestHandler(t, &scriptedProvider{err: err}).Classify(context.Background(), "anything")
		assert.Equal(t, models.IntentProductDetails, c.Intent)
		assert.Empty(t, c.Entities)
		assert.True(t, c.Fallback)
	}
}

func TestHandler_Execute(t *testing.T) {
	p := &scriptedProvider{reply: `{"intent":"ORDER_DETAILS","reasoning":"status","entities":{}}`}
	h := newTestHandler(t, p)

	out, err := h.Execute(context.Background(), &Input{Query: "  Where is my order?  "})
	require.NoError(t, err)
	assert.Equal(t, models.IntentOrderDetails, out.Intent)
	assert.Equal(t, "status", out.Reasoning)
	assert.False(t, out.Fallback)
	assert.Equal(t, "Customer message: Where is my order?", p.last.UserPrompt)
}

func TestHandler_Execute_EmptyQuery(t *testing.T) {
	p := &scriptedProvider{}
	_, err := newTestHandler(t, p).Execute(context.Background(), &Input{Query: "   "})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, p.calls)
}

func TestExtractJSONObject(t *testing.T) {
	obj, err := extractJSONObject(`noise {"a":"}{","b":{"c":1}} trailing {"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"}{","b":{"c":1}}`, obj)

	_, err = extractJSONObject(`{"open": true`)
	assert.ErrorIs(t, err, errNoJSONObject)
}

func TestParseClassification_AcceptsEveryIntent(t *testing.T) {
	for _, intent := range models.Intents {
		c, err := parseClassification(`{"intent":"` + string(intent) + `"}`)
		require.NoError(t, err, intent)
		assert.Equal(t, intent, c.Intent)
	}

	_, err := parseClassification(`{"intent":"REFUND_REQUEST"}`)
	assert.Error(t, err)
}
