package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "support-agent/internal/common/errors"
	"support-agent/internal/models"
)

const defaultSearchSize = 1000

// ElasticsearchSource reads products from a search index whose documents
// have the product JSON shape.
type ElasticsearchSource struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewElasticsearchSource(client *elasticsearch.Client, indexName string, size int) *ElasticsearchSource {
	if size <= 0 {
		size = defaultSearchSize
	}
	return &ElasticsearchSource{client: client, index: indexName, size: size}
}

func (s *ElasticsearchSource) Name() string { return "elasticsearch:" + s.index }

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSource) Products(ctx context.Context) ([]models.Product, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"product_id": "asc"}},
	})
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(s.Name(), err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &s.size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(s.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewCatalogLoadFailedError(s.Name(), fmt.Errorf("search failed: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(s.Name(), fmt.Errorf("decode: %w", err))
	}

	products := make([]models.Product, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		products = append(products, h.Source)
	}
	if err := validate(products); err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(s.Name(), err)
	}
	return products, nil
}
