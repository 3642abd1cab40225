// internal/workers/support/retrieve-context/models.go
package retrievecontext

import "support-agent/internal/models"

type Input struct {
	Intent    models.Intent    `json:"intent"`
	Query     string           `json:"query"`
	Entities  models.EntityBag `json:"entities"`
	UserEmail string           `json:"userEmail"`
}

type Output struct {
	DataSource models.DataSource `json:"dataSource"`
	Context    string            `json:"context"`
}
