// Package embedding turns text into dense vectors for the semantic index.
package embedding

import (
	"context"
	"errors"
	"fmt"

	apperrors "support-agent/internal/common/errors"
)

// ErrEmbeddingProvider marks every failure of an embedding backend.
var ErrEmbeddingProvider = errors.New("EMBEDDING_PROVIDER_FAILED")

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ProviderErrorf wraps ErrEmbeddingProvider in an EMBEDDING_PROVIDER_FAILED
// StandardError.
func ProviderErrorf(format string, args ...interface{}) error {
	return apperrors.NewEmbeddingProviderError(fmt.Errorf("%w: "+format, append([]interface{}{ErrEmbeddingProvider}, args...)...))
}

// checkVectors verifies count and dimension agreement of a provider response.
func checkVectors(want int, vectors [][]float32) error {
	if len(vectors) != want {
		return ProviderErrorf("expected %d vectors, got %d", want, len(vectors))
	}
	dim := -1
	for i, v := range vectors {
		if len(v) == 0 {
			return ProviderErrorf("empty vector at position %d", i)
		}
		if dim == -1 {
			dim = len(v)
		} else if len(v) != dim {
			return ProviderErrorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}
