// Package index is an embedding-backed nearest-neighbour index over the
// product catalog. Vectors and product metadata are kept position-aligned:
// vectors[i] and products[i] always describe the same document.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/common/logger"
	"support-agent/internal/common/metrics"
	"support-agent/internal/models"
	"support-agent/internal/providers/embedding"
)

var (
	ErrIndexCorrupted     = errors.New("INDEX_CORRUPTED")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrEmptyDocumentBatch = errors.New("empty document batch")
)

// Document is one catalog entry to index. Text defaults to the product's
// SearchText when empty.
type Document struct {
	Text    string
	Product models.Product
}

func (d Document) text() string {
	if d.Text != "" {
		return d.Text
	}
	return d.Product.SearchText()
}

// Hit is one Query result. Distance is the squared L2 distance.
type Hit struct {
	Product  models.Product
	Distance float32
}

// Index is safe for concurrent use. Queries share the read lock; inserts and
// loads take the write lock.
type Index struct {
	mu        sync.RWMutex
	dim       int
	vectors   [][]float32
	products  []models.Product
	embedder  embedding.Embedder
	artifacts ArtifactStore
	logger    logger.Logger
}

func New(embedder embedding.Embedder, artifacts ArtifactStore, log logger.Logger) *Index {
	return &Index{
		embedder:  embedder,
		artifacts: artifacts,
		logger:    log.With(map[string]interface{}{"component": "semantic-index"}),
	}
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.products)
}

// Dimension returns the vector dimension, 0 while empty.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Load restores the index from its artifacts. Missing artifacts yield an
// empty index. A lone or unreadable artifact is corruption: the index is reset
// to empty and an error wrapping ErrIndexCorrupted is returned.
func (x *Index) Load(ctx context.Context) error {
	vecData, vecErr := x.artifacts.Read(ctx, VectorArtifact)
	metaData, metaErr := x.artifacts.Read(ctx, MetadataArtifact)

	vecMissing := errors.Is(vecErr, ErrArtifactNotFound)
	metaMissing := errors.Is(metaErr, ErrArtifactNotFound)

	switch {
	case vecErr != nil && !vecMissing:
		return fmt.Errorf("load vector artifact: %w", vecErr)
	case metaErr != nil && !metaMissing:
		return fmt.Errorf("load metadata artifact: %w", metaErr)
	case vecMissing && metaMissing:
		x.reset()
		x.logger.Info("no index artifacts found, starting empty", nil)
		return nil
	case vecMissing != metaMissing:
		return x.corrupted(fmt.Sprintf("only one artifact present (vectors missing=%t, metadata missing=%t)", vecMissing, metaMissing))
	}

	dim, vectors, err := decodeVectors(vecData)
	if err != nil {
		return x.corrupted(err.Error())
	}

	var products []models.Product
	if err := json.Unmarshal(metaData, &products); err != nil {
		return x.corrupted(fmt.Sprintf("metadata is not valid JSON: %v", err))
	}

	if len(products) != len(vectors) {
		return x.corrupted(fmt.Sprintf("metadata has %d records, vectors has %d", len(products), len(vectors)))
	}

	x.mu.Lock()
	x.dim, x.vectors, x.products = dim, vectors, products
	x.mu.Unlock()

	metrics.IndexDocuments.Set(float64(len(products)))
	x.logger.Info("index loaded", map[string]interface{}{
		"documents": len(products),
		"dimension": dim,
	})
	return nil
}

func (x *Index) reset() {
	x.mu.Lock()
	x.dim, x.vectors, x.products = 0, nil, nil
	x.mu.Unlock()
	metrics.IndexDocuments.Set(0)
}

func (x *Index) corrupted(details string) error {
	x.reset()
	x.logger.Error("index artifacts corrupted, starting empty", map[string]interface{}{
		"details": details,
	})
	return fmt.Errorf("%w: %w", ErrIndexCorrupted, apperrors.NewIndexCorruptedError(details))
}

// InsertBatch embeds and appends docs, then persists both artifacts. Either
// every document is committed or none is.
func (x *Index) InsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return ErrEmptyDocumentBatch
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.text()
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return embedding.ProviderErrorf("expected %d vectors, got %d", len(docs), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: document %d has %d, index has %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	newVectors := make([][]float32, 0, len(x.vectors)+len(vectors))
	newVectors = append(newVectors, x.vectors...)
	newVectors = append(newVectors, vectors...)

	newProducts := make([]models.Product, 0, len(x.products)+len(docs))
	newProducts = append(newProducts, x.products...)
	for _, d := range docs {
		newProducts = append(newProducts, d.Product)
	}

	if err := x.persist(ctx, dim, newVectors, newProducts); err != nil {
		return err
	}

	x.dim, x.vectors, x.products = dim, newVectors, newProducts
	metrics.IndexDocuments.Set(float64(len(newProducts)))

	x.logger.Info("documents indexed", map[string]interface{}{
		"added": len(docs),
		"total": len(newProducts),
	})
	return nil
}

func (x *Index) persist(ctx context.Context, dim int, vectors [][]float32, products []models.Product) error {
	meta, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := x.artifacts.WritePair(ctx, encodeVectors(dim, vectors), meta); err != nil {
		return apperrors.NewIndexPersistFailedError(err)
	}
	return nil
}

// Query returns the k nearest documents to text, nearest first. Equal
// distances keep insertion order. An empty index or k <= 0 returns no hits
// without calling the embedder.
func (x *Index) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 || x.Len() == 0 {
		return []Hit{}, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, embedding.ProviderErrorf("expected 1 query vector, got %d", len(vectors))
	}
	q := vectors[0]

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 {
		return []Hit{}, nil
	}
	if len(q) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(q), x.dim)
	}

	order := make([]int, len(x.vectors))
	dist := make([]float32, len(x.vectors))
	for i, v := range x.vectors {
		order[i] = i
		dist[i] = squaredL2(q, v)
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{Product: x.products[order[i]], Distance: dist[order[i]]}
	}
	return hits, nil
}

// LookupByIDs returns the products whose IDs are in ids, in insertion order.
func (x *Index) LookupByIDs(ids []string) []models.Product {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	out := []models.Product{}
	for _, p := range x.products {
		if want[p.ProductID] {
			out = append(out, p)
		}
	}
	return out
}

// LookupByIDsRanked returns the matching products ordered by descending dot
// product between their freshly embedded text and the query.
func (x *Index) LookupByIDsRanked(ctx context.Context, ids []string, query string) ([]models.Product, error) {
	matches := x.LookupByIDs(ids)
	if len(matches) <= 1 {
		return matches, nil
	}

	texts := make([]string, 0, len(matches)+1)
	for _, p := range matches {
		texts = append(texts, p.SearchText())
	}
	texts = append(texts, query)

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed ranked lookup: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, embedding.ProviderErrorf("expected %d vectors, got %d", len(texts), len(vectors))
	}

	q := vectors[len(vectors)-1]
	scores := make([]float32, len(matches))
	for i := range matches {
		scores[i] = dot(vectors[i], q)
	}

	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	ranked := make([]models.Product, len(matches))
	for i, idx := range order {
		ranked[i] = matches[idx]
	}
	return ranked, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
