package classifier

import (
	"context"

	"github.com/FrenchMajesty/product-classifier/index"
)

// EmbeddingClient produces dense vectors for text. GenerateEmbedding encodes
// a single retrieval query; GenerateEmbeddings encodes a batch of category
// labels for indexing. Providers that distinguish query and document
// encodings (Voyage does) apply the split along exactly that line.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the model well enough that two different models
	// never share an id. It participates in the index fingerprint.
	ModelID() string
}

// VectorSearcher returns the top-k nearest category vectors for a query.
// Implementations must order matches by descending score, breaking ties by
// ascending node id.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]index.Match, error)
}

// Reranker asks a generative model to choose among retrieved candidates.
// It returns the selected node id, or 0 to decline (caller falls back to
// the top embedding candidate). Implementations must never return an id
// outside the candidate set.
type Reranker interface {
	Rerank(ctx context.Context, productText string, candidates []index.Match) (int, error)
}

// localSearcher adapts the in-process index to the VectorSearcher interface.
type localSearcher struct {
	idx *index.Index
}

func (s localSearcher) Search(_ context.Context, query []float32, k int) ([]index.Match, error) {
	return s.idx.Search(query, k)
}
