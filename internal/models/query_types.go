// internal/models/query_types.go
package models

import "strings"

// Intent is the classifier's label for a customer query.
type Intent string

const (
	IntentOrderDetails        Intent = "ORDER_DETAILS"
	IntentProductDetails      Intent = "PRODUCT_DETAILS"
	IntentOrderProductDetails Intent = "ORDER_PRODUCT_DETAILS"
)

// Intents lists every supported label in prompt order.
var Intents = []Intent{IntentOrderDetails, IntentProductDetails, IntentOrderProductDetails}

// Valid reports whether i is one of the supported labels.
func (i Intent) Valid() bool {
	switch i {
	case IntentOrderDetails, IntentProductDetails, IntentOrderProductDetails:
		return true
	}
	return false
}

// ParseIntent normalizes a label. Unknown labels are returned as-is with ok=false.
func ParseIntent(s string) (Intent, bool) {
	i := Intent(strings.ToUpper(strings.TrimSpace(s)))
	return i, i.Valid()
}

// DataSource tags where a retrieval context came from.
type DataSource string

const (
	DataSourceSQL     DataSource = "SQL"
	DataSourceVector  DataSource = "VECTOR"
	DataSourceHybrid  DataSource = "HYBRID"
	DataSourceUnknown DataSource = "UNKNOWN"
)

// Entity slot names extracted by the classifier.
const (
	EntityTrackingNumber = "tracking_number"
	EntityProductName    = "product_name"
	EntityTimeReference  = "time_reference"
)

// EntityBag maps slot names to extracted values. Absent keys mean "not mentioned".
type EntityBag map[string]string

// Get returns a non-empty value for key.
func (b EntityBag) Get(key string) (string, bool) {
	v, ok := b[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Classification is the classifier's decision for one query.
type Classification struct {
	Intent    Intent    `json:"intent"`
	Reasoning string    `json:"reasoning"`
	Entities  EntityBag `json:"entities"`
	Fallback  bool      `json:"fallback"`
}
