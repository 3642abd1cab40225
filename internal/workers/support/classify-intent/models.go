// internal/workers/support/classify-intent/models.go
package classifyintent

import "support-agent/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Intent    models.Intent    `json:"intent"`
	Reasoning string           `json:"reasoning"`
	Entities  models.EntityBag `json:"entities"`
	Fallback  bool             `json:"fallback"`
}
