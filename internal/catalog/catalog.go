// Package catalog loads the product catalog that feeds the semantic index.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"support-agent/internal/common/config"
	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/index"
	"support-agent/internal/models"
)

// Source yields the full product catalog.
type Source interface {
	Name() string
	Products(ctx context.Context) ([]models.Product, error)
}

// FileSource reads a JSON array of products from disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string { return "file:" + f.path }

func (f *FileSource) Products(_ context.Context) ([]models.Product, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(f.Name(), err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(f.Name(), fmt.Errorf("decode: %w", err))
	}
	if err := validate(products); err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(f.Name(), err)
	}
	return products, nil
}

func validate(products []models.Product) error {
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		id := strings.TrimSpace(p.ProductID)
		if id == "" {
			return fmt.Errorf("product %d has no product_id", i)
		}
		if seen[id] {
			return fmt.Errorf("duplicate product_id %s", id)
		}
		seen[id] = true
	}
	return nil
}

// Documents converts products into index documents using each product's
// search text.
func Documents(products []models.Product) []index.Document {
	docs := make([]index.Document, len(products))
	for i, p := range products {
		docs[i] = index.Document{Product: p}
	}
	return docs
}

// NewSource picks the catalog source named by cfg.Source. es may be nil for
// the file source.
func NewSource(cfg config.CatalogConfig, es *elasticsearch.Client) (Source, error) {
	switch cfg.Source {
	case "", "file":
		return NewFileSource(cfg.Path), nil
	case "elasticsearch":
		if es == nil {
			return nil, fmt.Errorf("elasticsearch catalog source needs a client")
		}
		return NewElasticsearchSource(es, cfg.Index, cfg.Size), nil
	default:
		return nil, fmt.Errorf("unsupported catalog source %q", cfg.Source)
	}
}
