// Package classifier assigns scraped products to taxonomy categories. It
// retrieves candidate categories by embedding similarity and optionally asks
// a generative model to pick among them; products whose best candidate falls
// below the configured confidence floor stay unclassified rather than being
// forced into a bad category.
package classifier

import (
	"context"
	"fmt"

	"github.com/FrenchMajesty/product-classifier/cache"
	"github.com/FrenchMajesty/product-classifier/index"
	"github.com/FrenchMajesty/product-classifier/internal/logging"
	"github.com/FrenchMajesty/product-classifier/taxonomy"
)

// Classifier is the classification engine. It is safe for concurrent use:
// all mutable work happens in New, and Classify only reads.
type Classifier struct {
	tree     *taxonomy.Tree
	embed    EmbeddingClient
	reranker Reranker
	searcher VectorSearcher

	floor       float32
	topK        int
	queryBudget int
	log         *logging.Logger
}

// New builds a Classifier from cfg. When no external searcher is supplied it
// embeds every leaf category's display path and builds an in-process cosine
// index, consulting the artifact cache first so unchanged taxonomies skip
// the embedding step entirely.
func New(ctx context.Context, cfg Config) (*Classifier, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tree := cfg.Taxonomy
	if tree == nil {
		var err error
		tree, err = taxonomy.LoadCSVFile(cfg.TaxonomyPath)
		if err != nil {
			return nil, err
		}
	}

	c := &Classifier{
		tree:        tree,
		embed:       cfg.Embedding,
		reranker:    cfg.Reranker,
		floor:       *cfg.ConfidenceFloor,
		topK:        cfg.TopK,
		queryBudget: cfg.QueryBudget,
		log:         cfg.Logger,
	}

	if cfg.Searcher != nil {
		c.searcher = cfg.Searcher
		return c, nil
	}

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	fingerprint := tree.Fingerprint(cfg.Embedding.ModelID())
	idx, hit, err := store.LoadOrBuild(ctx, fingerprint, c.buildIndex)
	if err != nil {
		return nil, fmt.Errorf("classifier: build index: %w", err)
	}
	c.log.Debug("index ready", "cache_hit", hit, "entries", idx.Len(), "fingerprint", fingerprint[:16])

	c.searcher = localSearcher{idx: idx}
	return c, nil
}

// buildIndex embeds every leaf category's display path and assembles the
// cosine index. Only leaves are indexed: interior nodes exist to give leaves
// context, and indexing them would let a vague product land on "Construction"
// instead of an actionable category.
func (c *Classifier) buildIndex(ctx context.Context) (*index.Index, error) {
	leaves := c.tree.Leaves()
	if len(leaves) == 0 {
		return nil, fmt.Errorf("taxonomy has no leaf categories")
	}

	labels := make([]string, len(leaves))
	for i, leaf := range leaves {
		path, err := c.tree.DisplayPath(leaf.ID)
		if err != nil {
			return nil, err
		}
		labels[i] = path
	}

	c.log.Info("embedding category labels", "count", len(labels), "model", c.embed.ModelID())
	vectors, err := c.embed.GenerateEmbeddings(ctx, labels)
	if err != nil {
		return nil, fmt.Errorf("embed category labels: %w", err)
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("embed category labels: got %d vectors for %d labels", len(vectors), len(labels))
	}

	entries := make([]index.Entry, len(leaves))
	for i, leaf := range leaves {
		entries[i] = index.Entry{NodeID: leaf.ID, Label: labels[i], Vector: vectors[i]}
	}
	return index.Build(c.embed.ModelID(), entries)
}

// Classify assigns p to a taxonomy category. useReranking asks the
// configured reranker to pick among the candidates; it is ignored when no
// reranker is configured. The Result carries a nil TypeID when the best
// candidate's similarity falls below the confidence floor; an error means
// classification could not be attempted at all (no usable text, embedding
// failure, search failure).
func (c *Classifier) Classify(ctx context.Context, p *ProductRecord, useReranking bool) (*Result, error) {
	query := buildQueryText(p, c.queryBudget)
	if query == "" {
		return nil, ErrEmptyProduct
	}

	vector, err := c.embed.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	matches, err := c.searcher.Search(ctx, vector, c.topK)
	if err != nil {
		return nil, fmt.Errorf("classifier: search: %w", err)
	}
	if len(matches) == 0 {
		return &Result{}, nil
	}

	top := matches[0]
	if top.Score < c.floor {
		c.log.Debug("below confidence floor", "product", p.ProductName, "score", top.Score, "floor", c.floor)
		return &Result{Confidence: top.Score}, nil
	}

	chosen := top
	reranked := false
	if useReranking && c.reranker != nil && len(matches) > 1 {
		if picked, ok := c.rerank(ctx, query, matches); ok {
			chosen = picked
			reranked = true
		}
	}

	path, err := c.tree.DisplayPath(chosen.NodeID)
	if err != nil {
		// The searcher returned a node the taxonomy does not know. Possible
		// with an external index built against a different taxonomy version.
		return nil, fmt.Errorf("classifier: match %d not in taxonomy: %w", chosen.NodeID, err)
	}

	id := chosen.NodeID
	return &Result{
		TypeID:     &id,
		Path:       &path,
		Confidence: top.Score,
		Reranked:   reranked,
	}, nil
}

// rerank asks the generative model to choose among matches. Any failure or
// out-of-set answer falls back to embedding order; the reranker can refine a
// classification but never lose one.
func (c *Classifier) rerank(ctx context.Context, query string, matches []index.Match) (index.Match, bool) {
	selected, err := c.reranker.Rerank(ctx, query, matches)
	if err != nil {
		c.log.Warn("rerank failed, keeping embedding order", "error", err.Error())
		return index.Match{}, false
	}
	if selected == 0 {
		return index.Match{}, false
	}
	for _, m := range matches {
		if m.NodeID == selected {
			return m, true
		}
	}
	c.log.Warn("reranker chose a node outside the candidate set", "node_id", selected)
	return index.Match{}, false
}

// Taxonomy exposes the loaded tree, mainly for evaluation tooling.
func (c *Classifier) Taxonomy() *taxonomy.Tree {
	return c.tree
}
