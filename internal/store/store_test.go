package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/logger"
	"support-agent/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger.NewTestLogger(t)), mock
}

var orderRowColumns = []string{
	"id", "status", "order_date", "total_amount", "tracking_number",
	"product_name", "product_id", "quantity", "price",
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok, "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Orders
// ==========================

func TestGetOrdersForUser_GroupsItemsByOrder(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(orderRowColumns).
		AddRow(1, "Delivered", day(2024, 11, 15), 1299.99, "TRACK123456", "Samsung Galaxy S23 Ultra", "PROD001", 1, 1199.99).
		AddRow(2, "Shipped", day(2024, 12, 10), 899.99, "TRACK789012", "Sony WH-1000XM5 Headphones", "PROD003", 1, 399.99).
		AddRow(2, "Shipped", day(2024, 12, 10), 899.99, "TRACK789012", "Apple iPad Pro 12.9-inch (M2)", "PROD005", 1, 1099.99)

	mock.ExpectQuery(`FROM orders o\s+LEFT JOIN order_items i ON i.order_id = o.id\s+JOIN users u ON u.id = o.user_id\s+WHERE u.email = \$1\s+ORDER BY o.order_date, o.id, i.id`).
		WithArgs("john@example.com").
		WillReturnRows(rows)

	orders, err := s.GetOrdersForUser(context.Background(), "john@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, "PROD001", orders[0].Items[0].ProductID)
	assert.Equal(t, "Shipped", orders[1].Status)
	require.Len(t, orders[1].Items, 2)
	assert.Equal(t, "PROD005", orders[1].Items[1].ProductID)
	assert.Equal(t, 1099.99, orders[1].Items[1].Price)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrdersForUser_OrderWithoutItems(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE u.email = \$1`).
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(3, "Processing", day(2024, 12, 5), 599.99, "", nil, nil, nil, nil))

	orders, err := s.GetOrdersForUser(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Empty(t, orders[0].Items)
	assert.NotNil(t, orders[0].Items)
}

func TestGetOrdersForUser_NoOrders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE u.email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	orders, err := s.GetOrdersForUser(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGetOrdersForUser_QueryFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE u.email = \$1`).
		WithArgs("john@example.com").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := s.GetOrdersForUser(context.Background(), "john@example.com")
	require.Error(t, err)
	assertCode(t, err, apperrors.ErrCodeQueryExecutionFailed)
}

func TestGetOrdersForUser_DeadlineIsStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE u.email = \$1`).
		WithArgs("john@example.com").
		WillReturnError(context.DeadlineExceeded)

	_, err := s.GetOrdersForUser(context.Background(), "john@example.com")
	assertCode(t, err, apperrors.ErrCodeStoreUnavailable)
}

func TestGetOrderByTracking(t *testing.T) {
	tests := []struct {
		name  string
		rows  *sqlmock.Rows
		found bool
	}{
		{
			name: "found",
			rows: sqlmock.NewRows(orderRowColumns).
				AddRow(2, "Shipped", day(2024, 12, 10), 899.99, "TRACK789012", "Sony WH-1000XM5 Headphones", "PROD003", 1, 399.99),
			found: true,
		},
		{
			name:  "missing",
			rows:  sqlmock.NewRows(orderRowColumns),
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery(`WHERE o.tracking_number = \$1`).
				WithArgs("TRACK789012").
				WillReturnRows(tt.rows)

			order, err := s.GetOrderByTracking(context.Background(), "TRACK789012")
			require.NoError(t, err)
			if !tt.found {
				assert.Nil(t, order)
				return
			}
			require.NotNil(t, order)
			assert.Equal(t, "TRACK789012", order.TrackingNumber)
			assert.Len(t, order.Items, 1)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetMostRecentOrderItemIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT i.product_id\s+FROM order_items i.*ORDER BY o.order_date DESC, o.id DESC\s+LIMIT 1`).
		WithArgs("john@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("PROD003").AddRow("PROD005"))

	ids, err := s.GetMostRecentOrderItemIDs(context.Background(), "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROD003", "PROD005"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Conversations
// ==========================

func TestEnsureConversation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO conversations \(session_id, user_email\).*ON CONFLICT \(session_id\) DO NOTHING`).
		WithArgs("session_abc", "john@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.EnsureConversation(context.Background(), "session_abc", "john@example.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_Transaction(t *testing.T) {
	s, mock := newMockStore(t)
	at := day(2024, 12, 20)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO conversations \(session_id\).*DO UPDATE SET updated_at = NOW\(\)\s+RETURNING id`).
		WithArgs("session_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(int64(7), "assistant", "It shipped.",
			sql.NullString{String: "ORDER_DETAILS", Valid: true},
			sql.NullString{String: "SQL", Valid: true}, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.AppendMessage(context.Background(), "session_abc", models.ConversationTurn{
		Role:       models.RoleAssistant,
		Content:    "It shipped.",
		Intent:     models.IntentOrderDetails,
		DataSource: models.DataSourceSQL,
		CreatedAt:  at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_UserTurnHasNullIntent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs("session_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(int64(7), "user", "hi", sql.NullString{}, sql.NullString{}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.AppendMessage(context.Background(), "session_abc", models.ConversationTurn{Role: models.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_RollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs("session_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.AppendMessage(context.Background(), "session_abc", models.ConversationTurn{Role: models.RoleUser, Content: "hi"})
	require.Error(t, err)
	assertCode(t, err, apperrors.ErrCodeQueryExecutionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecentMessages_OldestFirst(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"role", "content", "intent", "data_source", "created_at"}).
		AddRow("assistant", "second", "ORDER_DETAILS", "SQL", day(2024, 12, 20).Add(time.Minute)).
		AddRow("user", "first", "", "", day(2024, 12, 20))

	mock.ExpectQuery(`ORDER BY m.created_at DESC, m.id DESC\s+LIMIT \$2`).
		WithArgs("session_abc", 10).
		WillReturnRows(rows)

	turns, err := s.GetRecentMessages(context.Background(), "session_abc", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Empty(t, turns[0].Intent)
	assert.Equal(t, models.IntentOrderDetails, turns[1].Intent)
	assert.Equal(t, models.DataSourceSQL, turns[1].DataSource)
}

func TestDeleteConversation(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "existing", affected: 1, want: true},
		{name: "unknown session", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec(`DELETE FROM conversations WHERE session_id = \$1`).
				WithArgs("session_abc").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			deleted, err := s.DeleteConversation(context.Background(), "session_abc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, deleted)
		})
	}
}

// ==========================
// Schema & Seed
// ==========================

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	for range schema {
		mock.ExpectExec(`CREATE (TABLE|INDEX) IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedSampleData_SkipsWhenUsersExist(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	seeded, err := s.SeedSampleData(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedSampleData_InsertsOnEmptyDatabase(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	for i := range sampleUsers {
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(sampleUsers[i].name, sampleUsers[i].email, sampleUsers[i].phone).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i + 1))
	}
	for i, o := range sampleOrders {
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i + 1))
		for range o.items {
			mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(1, 1))
		}
	}
	mock.ExpectCommit()

	seeded, err := s.SeedSampleData(context.Background())
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}
