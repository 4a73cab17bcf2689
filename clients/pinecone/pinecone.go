// Package pinecone is a thin gateway over the Pinecone SDK for deployments
// that keep the category index in a hosted vector database instead of the
// local artifact cache.
package pinecone

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// Vector, QueryMatch, and Metadata are re-exported from the SDK so callers
// do not import it directly.
type Vector = pinecone.Vector
type QueryMatch = pinecone.ScoredVector
type Metadata = pinecone.Metadata

// Service wraps a Pinecone API client.
type Service struct {
	client *pinecone.Client
}

// NewService creates a Service for the given API key.
func NewService(apiKey string) (*Service, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("pinecone: create client: %w", err)
	}
	return &Service{client: client}, nil
}

// IndexOps answers queries against one index connection (host + namespace).
type IndexOps struct {
	index *pinecone.IndexConnection
}

// ForIndex connects to the index at host, scoped to namespace. Scoping the
// namespace to the taxonomy fingerprint keeps vectors from different
// taxonomy versions apart.
func (s *Service) ForIndex(host, namespace string) (*IndexOps, error) {
	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("pinecone: connect to index: %w", err)
	}
	return &IndexOps{index: conn}, nil
}

// Search performs a similarity query and returns the raw matches.
func (o *IndexOps) Search(ctx context.Context, queryVector []float32, topK int, includeMetadata bool) ([]QueryMatch, error) {
	resp, err := o.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: includeMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: query: %w", err)
	}

	matches := make([]QueryMatch, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = *m
	}
	return matches, nil
}

// Upsert stores vectors in the index.
func (o *IndexOps) Upsert(ctx context.Context, vectors []Vector) error {
	ptrs := make([]*pinecone.Vector, len(vectors))
	for i := range vectors {
		ptrs[i] = &vectors[i]
	}
	if _, err := o.index.UpsertVectors(ctx, ptrs); err != nil {
		return fmt.Errorf("pinecone: upsert: %w", err)
	}
	return nil
}

// Delete removes vectors from the index by id.
func (o *IndexOps) Delete(ctx context.Context, ids []string) error {
	if err := o.index.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("pinecone: delete: %w", err)
	}
	return nil
}
