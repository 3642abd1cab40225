package store

import (
	"context"
	"database/sql"
	"time"

	"support-agent/internal/models"
)

// EnsureConversation creates the session row if it does not exist yet.
func (s *Store) EnsureConversation(ctx context.Context, sessionID, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, user_email)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (session_id) DO NOTHING`, sessionID, email)
	if err != nil {
		return queryError("ensure conversation", err)
	}
	return nil
}

// AppendMessage adds one turn, creating the conversation when needed and
// touching its updated_at, in one transaction.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queryError("append message", err)
	}
	defer rollback(tx)

	var conversationID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO conversations (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()
		RETURNING id`, sessionID).Scan(&conversationID)
	if err != nil {
		return queryError("append message", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, intent, data_source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		conversationID, string(turn.Role), turn.Content,
		nullString(string(turn.Intent)), nullString(string(turn.DataSource)), createdAt)
	if err != nil {
		return queryError("append message", err)
	}

	if err := tx.Commit(); err != nil {
		return queryError("append message", err)
	}
	return nil
}

// GetRecentMessages returns at most limit turns, oldest first.
func (s *Store) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.role, m.content, COALESCE(m.intent, ''), COALESCE(m.data_source, ''), m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.session_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, queryError("get recent messages", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var t models.ConversationTurn
		var role, intent, source string
		if err := rows.Scan(&role, &t.Content, &intent, &source, &t.CreatedAt); err != nil {
			return nil, queryError("get recent messages", err)
		}
		t.Role = models.Role(role)
		t.Intent = models.Intent(intent)
		t.DataSource = models.DataSource(source)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("get recent messages", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// DeleteConversation removes the session and, by cascade, its messages.
func (s *Store) DeleteConversation(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, queryError("delete conversation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queryError("delete conversation", err)
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
