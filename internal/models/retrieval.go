package models

// RetrievalPayload is the typed data behind a RetrievalResult. Exactly one
// concrete payload type exists per data source.
type RetrievalPayload interface {
	Source() DataSource
}

// OrderPayload backs SQL results.
type OrderPayload struct {
	Orders []Order `json:"orders"`
}

func (OrderPayload) Source() DataSource { return DataSourceSQL }

// ProductPayload backs VECTOR results.
type ProductPayload struct {
	Products []Product `json:"products"`
}

func (ProductPayload) Source() DataSource { return DataSourceVector }

// HybridPayload backs HYBRID results: the recent order and the current
// catalog entries for its items.
type HybridPayload struct {
	RecentOrder *Order    `json:"recentOrder,omitempty"`
	Orders      []Order   `json:"orders"`
	Products    []Product `json:"products"`
}

func (HybridPayload) Source() DataSource { return DataSourceHybrid }

// RetrievalResult is the router's output. DataSource is decided once and
// Context is the formatted text handed to the generator. Payload is nil for
// UNKNOWN.
type RetrievalResult struct {
	DataSource DataSource       `json:"dataSource"`
	Context    string           `json:"context"`
	Payload    RetrievalPayload `json:"-"`
}
