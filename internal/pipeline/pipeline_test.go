package pipeline

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/logger"
	"support-agent/internal/index"
	"support-agent/internal/models"
	"support-agent/internal/providers/llm"
	"support-agent/internal/workers/support"
)

// ==========================
// Test Helper Functions
// ==========================

type scriptedProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []llm.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, req)
	if p.err != nil {
		return "", p.err
	}
	if len(p.replies) == 0 {
		return "", nil
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

type fakeOrders struct {
	orders map[string][]models.Order
}

func (f *fakeOrders) GetOrdersForUser(_ context.Context, email string) ([]models.Order, error) {
	return f.orders[email], nil
}

func (f *fakeOrders) GetOrderByTracking(_ context.Context, tracking string) (*models.Order, error) {
	for _, orders := range f.orders {
		for i := range orders {
			if orders[i].TrackingNumber == tracking {
				o := orders[i]
				return &o, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeOrders) GetMostRecentOrderItemIDs(_ context.Context, email string) ([]string, error) {
	orders := f.orders[email]
	if len(orders) == 0 {
		return nil, nil
	}
	return itemIDs(orders[len(orders)-1]), nil
}

func itemIDs(o models.Order) []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

type countingIndex struct {
	mu    sync.Mutex
	calls int
}

func (c *countingIndex) touch() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingIndex) Query(context.Context, string, int) ([]index.Hit, error) {
	c.touch()
	return nil, nil
}

func (c *countingIndex) LookupByIDs([]string) []models.Product {
	c.touch()
	return nil
}

func (c *countingIndex) LookupByIDsRanked(context.Context, []string, string) ([]models.Product, error) {
	c.touch()
	return nil, nil
}

type memoryConversations struct {
	mu       sync.Mutex
	sessions map[string][]models.ConversationTurn
	ensured  int
	failOn   string
}

func newMemoryConversations() *memoryConversations {
	return &memoryConversations{sessions: map[string][]models.ConversationTurn{}}
}

func (m *memoryConversations) EnsureConversation(_ context.Context, sessionID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "ensure" {
		return apperrors.NewStoreUnavailableError(errors.New("connection refused"))
	}
	m.ensured++
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = []models.ConversationTurn{}
	}
	return nil
}

func (m *memoryConversations) AppendMessage(_ context.Context, sessionID string, turn models.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], turn)
	return nil
}

func (m *memoryConversations) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.sessions[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]models.ConversationTurn{}, turns...), nil
}

func (m *memoryConversations) DeleteConversation(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok, nil
}

type fixture struct {
	service    *Service
	classifier *scriptedProvider
	generator  *scriptedProvider
	index      *countingIndex
	store      *memoryConversations
}

func newFixture(t *testing.T, orders map[string][]models.Order) *fixture {
	log := logger.NewTestLogger(t)
	f := &fixture{
		classifier: &scriptedProvider{},
		generator:  &scriptedProvider{},
		index:      &countingIndex{},
		store:      newMemoryConversations(),
	}
	stages := support.NewStages(nil, support.Deps{
		Classifier: f.classifier,
		Generator:  f.generator,
		Orders:     &fakeOrders{orders: orders},
		Index:      f.index,
	}, log)
	f.service = New(Config{HistoryLimit: 10, DefaultUserEmail: "john@example.com"},
		stages.Classifier, stages.Retriever, stages.Generator, f.store, nil, log)
	return f
}

var johnOrders = map[string][]models.Order{
	"john@example.com": {
		{
			ID: 1, Status: "Delivered", OrderDate: time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC),
			TotalAmount: 1299.99, TrackingNumber: "TRACK123456",
			Items: []models.OrderItem{{ProductName: "Samsung Galaxy S23 Ultra", ProductID: "PROD001", Quantity: 1, Price: 1199.99}},
		},
		{
			ID: 2, Status: "Shipped", OrderDate: time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
			TotalAmount: 899.99, TrackingNumber: "TRACK789012",
			Items: []models.OrderItem{{ProductName: "Sony WH-1000XM5 Headphones", ProductID: "PROD003", Quantity: 1, Price: 399.99}},
		},
	},
}

// ==========================
// End-to-end Scenarios
// ==========================

func TestChat_TrackingNumberQuestion(t *testing.T) {
	f := newFixture(t, johnOrders)
	f.classifier.replies = []string{`{"intent":"ORDER_DETAILS","reasoning":"asks about a tracking number","entities":{"tracking_number":"TRACK789012"}}`}
	f.generator.replies = []string{"Your order TRACK789012 was shipped on 2024-12-10."}

	resp, err := f.service.Chat(context.Background(), ChatRequest{Query: "Where is my order TRACK789012?"})
	require.NoError(t, err)

	assert.Equal(t, models.IntentOrderDetails, resp.Intent)
	assert.Equal(t, models.DataSourceSQL, resp.DataSource)
	assert.Equal(t, "Your order TRACK789012 was shipped on 2024-12-10.", resp.Answer)
	assert.Equal(t, "TRACK789012", resp.Entities[models.EntityTrackingNumber])
	assert.Regexp(t, regexp.MustCompile(`^session_[0-9a-f]{16}$`), resp.SessionID)
	assert.Equal(t, 0, resp.ConversationLength)
	assert.Zero(t, f.index.calls)

	prompt := f.generator.prompts[0].UserPrompt
	assert.Contains(t, prompt, "- Tracking Number: TRACK789012")
	assert.Contains(t, prompt, "- Status: Shipped")

	turns := f.store.sessions[resp.SessionID]
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Empty(t, turns[0].Intent)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, models.IntentOrderDetails, turns[1].Intent)
	assert.Equal(t, models.DataSourceSQL, turns[1].DataSource)
}

func TestChat_EmptyQueryRejectedBeforeAnyCall(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		f := newFixture(t, johnOrders)

		_, err := f.service.Chat(context.Background(), ChatRequest{Query: q, SessionID: "session_x"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		assert.Zero(t, f.classifier.calls())
		assert.Zero(t, f.generator.calls())
		assert.Zero(t, f.index.calls)
		assert.Zero(t, f.store.ensured)
		assert.Empty(t, f.store.sessions)
	}
}

func TestChat_HybridWithoutPurchaseHistory(t *testing.T) {
	f := newFixture(t, map[string][]models.Order{})
	f.classifier.replies = []string{`{"intent":"ORDER_PRODUCT_DETAILS","reasoning":"asks about a purchased product","entities":{}}`}
	f.generator.replies = []string{"I couldn't find any previous orders on your account."}

	resp, err := f.service.Chat(context.Background(), ChatRequest{
		Query:     "Does the laptop I bought support USB-C charging?",
		UserEmail: "new@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DataSourceHybrid, resp.DataSource)
	assert.Zero(t, f.index.calls)
	assert.Contains(t, f.generator.prompts[0].UserPrompt, "No recent orders found for new@example.com")
}

// ==========================
// Conversation Handling
// ==========================

func TestChat_HistorySnapshotExcludesCurrentTurn(t *testing.T) {
	f := newFixture(t, johnOrders)
	f.classifier.replies = []string{
		`{"intent":"ORDER_DETAILS","reasoning":"r","entities":{}}`,
		`{"intent":"ORDER_DETAILS","reasoning":"r","entities":{}}`,
	}
	f.generator.replies = []string{"You have two orders.", "The latest one shipped."}

	first, err := f.service.Chat(context.Background(), ChatRequest{Query: "What did I order?"})
	require.NoError(t, err)

	second, err := f.service.Chat(context.Background(), ChatRequest{Query: "And the latest?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 0, first.ConversationLength)
	assert.Equal(t, 2, second.ConversationLength)

	prompt := f.generator.prompts[1].UserPrompt
	assert.True(t, strings.HasPrefix(prompt, "Previous Conversation:\nCustomer: What did I order?\nAgent: You have two orders.\n"))
	assert.Equal(t, 1, strings.Count(prompt, "And the latest?"))
}

func TestChat_ProviderOutageIsDegradedNotError(t *testing.T) {
	f := newFixture(t, johnOrders)
	f.classifier.err = llm.ErrProviderUnavailable
	f.generator.err = llm.ErrQuotaExceeded

	resp, err := f.service.Chat(context.Background(), ChatRequest{Query: "Tell me about the iPad"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, models.IntentProductDetails, resp.Intent)
	assert.Equal(t, models.DataSourceVector, resp.DataSource)
	assert.NotEmpty(t, resp.Answer)
}

func TestChat_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t, johnOrders)
	f.store.failOn = "ensure"

	_, err := f.service.Chat(context.Background(), ChatRequest{Query: "Where is my order?"})
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeStoreUnavailable, stdErr.Code)
	assert.Zero(t, f.classifier.calls())
}

func TestHistoryAndDelete(t *testing.T) {
	f := newFixture(t, johnOrders)
	f.classifier.replies = []string{`{"intent":"ORDER_DETAILS","reasoning":"r","entities":{}}`}
	f.generator.replies = []string{"ok"}

	resp, err := f.service.Chat(context.Background(), ChatRequest{Query: "orders?"})
	require.NoError(t, err)

	turns, err := f.service.History(context.Background(), resp.SessionID, 50)
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	deleted, err := f.service.DeleteConversation(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.service.DeleteConversation(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.service.History(context.Background(), " ", 50)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.Len(t, a, len("session_")+16)
	assert.NotEqual(t, a, b)
}
