package models

import (
	"fmt"
	"strings"
)

// Product is the catalog metadata stored alongside each indexed vector.
type Product struct {
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Features    []string `json:"features,omitempty"`
}

// SearchText is the text representation that gets embedded.
func (p Product) SearchText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. Category: %s. %s", p.Name, p.Category, p.Description)
	if len(p.Features) > 0 {
		fmt.Fprintf(&b, " Features: %s.", strings.Join(p.Features, ", "))
	}
	return b.String()
}
