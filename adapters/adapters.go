// Package adapters connects vendor clients to the classifier's interfaces.
// Each adapter owns the mapping from the engine's contract (single query
// embeddings, batch document embeddings, ordered matches) to what the
// vendor API actually offers.
package adapters

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FrenchMajesty/product-classifier/clients/pinecone"
	"github.com/FrenchMajesty/product-classifier/clients/voyage"
	"github.com/FrenchMajesty/product-classifier/index"
)

// VoyageEmbeddingAdapter satisfies the engine's EmbeddingClient using the
// Voyage API. Single-text calls are encoded as queries and batch calls as
// documents, which matches exactly how the engine uses them: batches embed
// category labels at index-build time, singles embed product queries.
type VoyageEmbeddingAdapter struct {
	client *voyage.Client
}

func NewVoyageEmbeddingAdapter(client *voyage.Client) *VoyageEmbeddingAdapter {
	return &VoyageEmbeddingAdapter{client: client}
}

// VoyageFromEnv builds an adapter from VOYAGE_API_KEY, with the package
// default model.
func VoyageFromEnv() (*VoyageEmbeddingAdapter, error) {
	key, err := loadEnvVar("VOYAGE_API_KEY")
	if err != nil {
		return nil, err
	}
	return NewVoyageEmbeddingAdapter(voyage.NewClient(key, voyage.DefaultModel)), nil
}

func (a *VoyageEmbeddingAdapter) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return a.client.GenerateEmbedding(ctx, text, voyage.InputTypeQuery)
}

func (a *VoyageEmbeddingAdapter) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return a.client.GenerateEmbeddings(ctx, texts, voyage.InputTypeDocument)
}

func (a *VoyageEmbeddingAdapter) ModelID() string {
	return a.client.Model()
}

// PineconeVectorAdapter satisfies the engine's VectorSearcher against a
// hosted Pinecone index. Node ids are stored as the vector id; the display
// path travels in metadata under "label".
type PineconeVectorAdapter struct {
	ops *pinecone.IndexOps
}

func NewPineconeVectorAdapter(ops *pinecone.IndexOps) *PineconeVectorAdapter {
	return &PineconeVectorAdapter{ops: ops}
}

func (a *PineconeVectorAdapter) Search(ctx context.Context, query []float32, k int) ([]index.Match, error) {
	raw, err := a.ops.Search(ctx, query, k, true)
	if err != nil {
		return nil, err
	}

	matches := make([]index.Match, 0, len(raw))
	for _, m := range raw {
		if m.Vector == nil {
			continue
		}
		nodeID, err := strconv.Atoi(m.Vector.Id)
		if err != nil {
			return nil, fmt.Errorf("adapters: non-numeric vector id %q", m.Vector.Id)
		}
		matches = append(matches, index.Match{
			NodeID: nodeID,
			Label:  metadataLabel(m.Vector.Metadata),
			Score:  m.Score,
		})
	}
	return matches, nil
}

// Seed upserts category entries into the remote index so Search can serve
// them. Entries are stored the same way Search expects to read them back.
func (a *PineconeVectorAdapter) Seed(ctx context.Context, entries []index.Entry) error {
	vectors := make([]pinecone.Vector, len(entries))
	for i, e := range entries {
		metadata, err := structpb.NewStruct(map[string]any{"label": e.Label})
		if err != nil {
			return fmt.Errorf("adapters: encode metadata: %w", err)
		}
		vectors[i] = pinecone.Vector{
			Id:       strconv.Itoa(e.NodeID),
			Values:   e.Vector,
			Metadata: metadata,
		}
	}
	return a.ops.Upsert(ctx, vectors)
}

func metadataLabel(metadata *pinecone.Metadata) string {
	if metadata == nil {
		return ""
	}
	if field, ok := metadata.Fields["label"]; ok {
		return field.GetStringValue()
	}
	return ""
}

func loadEnvVar(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("adapters: %s is not set", name)
	}
	return value, nil
}
