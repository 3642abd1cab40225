// internal/workers/support/generate-answer/models.go
package generateanswer

import "support-agent/internal/models"

type Input struct {
	Query   string                    `json:"query"`
	Context string                    `json:"context"`
	Intent  models.Intent             `json:"intent"`
	History []models.ConversationTurn `json:"history"`
}

type Output struct {
	Answer       string `json:"answer"`
	Degraded     bool   `json:"degraded"`
	FailureClass string `json:"failureClass,omitempty"`
}

// Answer is the generator result. Degraded answers are fixed fallback
// sentences; FailureClass names what went wrong.
type Answer struct {
	Text         string
	Degraded     bool
	FailureClass string
}
