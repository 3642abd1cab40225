package models

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message. Intent and DataSource are only set on
// assistant turns.
type ConversationTurn struct {
	Role       Role       `json:"role" db:"role"`
	Content    string     `json:"content" db:"content"`
	Intent     Intent     `json:"intent,omitempty" db:"intent"`
	DataSource DataSource `json:"dataSource,omitempty" db:"data_source"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}
