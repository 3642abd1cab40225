package catalog

import (
	"context"

	"support-agent/internal/common/logger"
	"support-agent/internal/index"
	"support-agent/internal/models"
)

// Indexer is the part of the semantic index the bootstrap writes to.
type Indexer interface {
	Len() int
	LookupByIDs(ids []string) []models.Product
	InsertBatch(ctx context.Context, docs []index.Document) error
}

// Sync inserts the catalog products that are not yet in the index and
// returns how many were added. Existing entries are left untouched.
func Sync(ctx context.Context, src Source, idx Indexer, log logger.Logger) (int, error) {
	products, err := src.Products(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ProductID
	}
	present := make(map[string]bool)
	for _, p := range idx.LookupByIDs(ids) {
		present[p.ProductID] = true
	}

	var missing []models.Product
	for _, p := range products {
		if !present[p.ProductID] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		log.Info("catalog already indexed", map[string]interface{}{
			"source":    src.Name(),
			"documents": idx.Len(),
		})
		return 0, nil
	}

	if err := idx.InsertBatch(ctx, Documents(missing)); err != nil {
		return 0, err
	}
	log.Info("catalog indexed", map[string]interface{}{
		"source":    src.Name(),
		"added":     len(missing),
		"documents": idx.Len(),
	})
	return len(missing), nil
}
