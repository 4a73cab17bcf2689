package classifier

import (
	"errors"

	"github.com/FrenchMajesty/product-classifier/internal/logging"
	"github.com/FrenchMajesty/product-classifier/taxonomy"
)

const (
	// DefaultTopK is how many candidates retrieval surfaces for reranking.
	DefaultTopK = 5

	// DefaultQueryBudget caps the long-description contribution to the
	// query text, in characters. Embedding models weight early tokens
	// heavily and boilerplate tails only dilute the signal.
	DefaultQueryBudget = 512
)

// Config controls classifier construction. Embedding and Taxonomy (or
// TaxonomyPath) are required; everything else has a usable default except
// ConfidenceFloor, which must be set explicitly.
type Config struct {
	// Taxonomy is a pre-loaded category tree. When nil, TaxonomyPath is
	// read as a CSV file instead.
	Taxonomy     *taxonomy.Tree
	TaxonomyPath string

	// Embedding encodes category labels at build time and product text at
	// query time. Required.
	Embedding EmbeddingClient

	// Reranker, when set, picks among the retrieved candidates. When nil
	// the top embedding candidate wins outright.
	Reranker Reranker

	// Searcher overrides the in-process vector index, e.g. with a Pinecone
	// or SQLite backed searcher. When set, CacheDir is ignored and no local
	// index is built.
	Searcher VectorSearcher

	// CacheDir holds serialized index artifacts keyed by taxonomy
	// fingerprint. Defaults to ".classifier-cache".
	CacheDir string

	// ConfidenceFloor is the minimum top-candidate similarity for a
	// non-null classification. There is no defensible universal default,
	// so New fails when this is nil.
	ConfidenceFloor *float32

	// TopK is the retrieval depth. Defaults to DefaultTopK.
	TopK int

	// QueryBudget bounds the long-description characters included in the
	// query text. Defaults to DefaultQueryBudget.
	QueryBudget int

	Logger *logging.Logger
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = ".classifier-cache"
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.QueryBudget <= 0 {
		c.QueryBudget = DefaultQueryBudget
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
}

func (c *Config) validate() error {
	if c.Embedding == nil {
		return errors.New("classifier: embedding client is required")
	}
	if c.Taxonomy == nil && c.TaxonomyPath == "" {
		return errors.New("classifier: taxonomy or taxonomy path is required")
	}
	if c.ConfidenceFloor == nil {
		return ErrNoConfidenceFloor
	}
	return nil
}

// Float32 returns a pointer to v. Convenience for Config.ConfidenceFloor.
func Float32(v float32) *float32 { return &v }
