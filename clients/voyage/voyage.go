// Package voyage wraps the Voyage AI embeddings API behind the small
// surface the engine needs: single and batch embedding with query/document
// input types.
package voyage

import (
	"context"
	"fmt"

	"github.com/austinfhunter/voyageai"
)

const (
	// DefaultModel is the embedding model we index and query with. Category
	// and query vectors are only comparable under the same model version.
	DefaultModel = "voyage-3.5-lite"

	// EmbeddingDimensions is the output dimension requested from the API.
	EmbeddingDimensions = 1024
)

// InputType hints the API whether a text is an indexed document or a query.
type InputType string

const (
	InputTypeDocument InputType = "document"
	InputTypeQuery    InputType = "query"
)

// Client generates embeddings through the Voyage AI API.
type Client struct {
	api   *voyageai.VoyageClient
	model string
}

// NewClient creates a Client for the given API key. An empty model selects
// DefaultModel.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:   voyageai.NewClient(&voyageai.VoyageClientOpts{Key: apiKey}),
		model: model,
	}
}

// Model returns the model identifier requests are made with.
func (c *Client) Model() string {
	return c.model
}

// GenerateEmbedding embeds a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	vecs, err := c.GenerateEmbeddings(ctx, []string{text}, inputType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateEmbeddings embeds a batch of texts in one API call. The result
// preserves input order.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	dimensions := EmbeddingDimensions
	it := string(inputType)
	resp, err := c.api.Embed(texts, c.model, &voyageai.EmbeddingRequestOpts{
		InputType:       &it,
		OutputDimension: &dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("voyage: embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("voyage: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
