package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrenchMajesty/product-classifier/index"
	"github.com/FrenchMajesty/product-classifier/taxonomy"
)

func testTree(t *testing.T) *taxonomy.Tree {
	t.Helper()
	tree, err := taxonomy.Load([]taxonomy.Row{
		{ID: 1, Name: "Construction"},
		{ID: 2, Name: "Grouting", ParentID: 1},
		{ID: 3, Name: "Cementitious Grouts", ParentID: 2},
		{ID: 4, Name: "Epoxy Grouts", ParentID: 2},
		{ID: 5, Name: "Sealants", ParentID: 1},
		{ID: 6, Name: "Silicone Sealants", ParentID: 5},
	})
	require.NoError(t, err)
	return tree
}

// keywordVector maps text to a fixed 3-dim vector by keyword so similarity
// outcomes are fully controlled by the test.
func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cementitious"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "epoxy"):
		return []float32{0, 1, 0}
	case strings.Contains(lower, "silicone"):
		return []float32{0, 0, 1}
	case strings.Contains(lower, "grout"):
		return []float32{0.9, 0.4, 0}
	default:
		return []float32{0.1, 0.1, 0.1}
	}
}

type mockEmbedder struct {
	batchCalls int
	embedFunc  func(text string) ([]float32, error)
}

func (m *mockEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	return m.embedFunc(text)
}

func (m *mockEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.embedFunc(text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) ModelID() string { return "mock-embed-v1" }

type mockReranker struct {
	rerankFunc func(productText string, candidates []index.Match) (int, error)
}

func (m *mockReranker) Rerank(_ context.Context, productText string, candidates []index.Match) (int, error) {
	return m.rerankFunc(productText, candidates)
}

func newTestClassifier(t *testing.T, floor float32, reranker Reranker) (*Classifier, *mockEmbedder) {
	t.Helper()
	embedder := &mockEmbedder{embedFunc: func(text string) ([]float32, error) {
		return keywordVector(text), nil
	}}
	c, err := New(context.Background(), Config{
		Taxonomy:        testTree(t),
		Embedding:       embedder,
		Reranker:        reranker,
		CacheDir:        t.TempDir(),
		ConfidenceFloor: Float32(0.7),
	})
	require.NoError(t, err)
	c.floor = floor
	return c, embedder
}

func sikaProduct() *ProductRecord {
	return &ProductRecord{
		Brand:            "Sika",
		ProductName:      "Sikagrout 212",
		ShortDescription: "Cementitious, pourable, non-shrink grout",
	}
}

func TestClassifySelectsCementitiousGrout(t *testing.T) {
	c, _ := newTestClassifier(t, 0.7, nil)

	result, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)

	require.NotNil(t, result.TypeID)
	assert.Equal(t, 3, *result.TypeID)
	require.NotNil(t, result.Path)
	assert.Equal(t, "Construction > Grouting > Cementitious Grouts", *result.Path)
	assert.GreaterOrEqual(t, result.Confidence, float32(0.7))
	assert.False(t, result.Reranked)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c, _ := newTestClassifier(t, 0.7, nil)

	first, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Classify(context.Background(), sikaProduct(), true)
		require.NoError(t, err)
		assert.Equal(t, *first.TypeID, *again.TypeID)
		assert.Equal(t, *first.Path, *again.Path)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestClassifyBelowFloorReturnsNull(t *testing.T) {
	c, _ := newTestClassifier(t, 0.7, nil)

	result, err := c.Classify(context.Background(), &ProductRecord{
		ProductName:      "Ergonomic Office Chair",
		ShortDescription: "Adjustable height, lumbar support",
	}, false)
	require.NoError(t, err)

	assert.Nil(t, result.TypeID)
	assert.Nil(t, result.Path)
	assert.Greater(t, result.Confidence, float32(0))
	assert.Less(t, result.Confidence, float32(0.7))
}

func TestConfidenceFloorBoundary(t *testing.T) {
	product := &ProductRecord{
		ProductName:      "Generic Grout",
		ShortDescription: "Pourable non-shrink grout",
	}

	low, _ := newTestClassifier(t, 0.7, nil)
	result, err := low.Classify(context.Background(), product, false)
	require.NoError(t, err)
	require.NotNil(t, result.TypeID)
	assert.Equal(t, 3, *result.TypeID)

	// Same product, floor raised above its achievable similarity.
	high, _ := newTestClassifier(t, 0.95, nil)
	result, err = high.Classify(context.Background(), product, false)
	require.NoError(t, err)
	assert.Nil(t, result.TypeID)
	assert.Nil(t, result.Path)
}

func TestRerankerOverridesTopCandidate(t *testing.T) {
	reranker := &mockReranker{rerankFunc: func(_ string, candidates []index.Match) (int, error) {
		assert.NotEmpty(t, candidates)
		return 4, nil
	}}
	c, _ := newTestClassifier(t, 0.7, reranker)

	result, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)

	require.NotNil(t, result.TypeID)
	assert.Equal(t, 4, *result.TypeID)
	assert.Equal(t, "Construction > Grouting > Epoxy Grouts", *result.Path)
	assert.True(t, result.Reranked)
}

func TestRerankerConfidenceReflectsTopEmbeddingScore(t *testing.T) {
	reranker := &mockReranker{rerankFunc: func(string, []index.Match) (int, error) {
		return 4, nil
	}}
	c, _ := newTestClassifier(t, 0.7, reranker)

	result, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)

	// Confidence stays the embedding score of the best retrieval hit even
	// when the reranker chose a different node.
	assert.InDelta(t, 1.0, float64(result.Confidence), 1e-5)
}

func TestRerankerFailureFallsBackToEmbeddingOrder(t *testing.T) {
	reranker := &mockReranker{rerankFunc: func(string, []index.Match) (int, error) {
		return 0, errors.New("model timed out")
	}}
	c, _ := newTestClassifier(t, 0.7, reranker)

	result, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)

	require.NotNil(t, result.TypeID)
	assert.Equal(t, 3, *result.TypeID)
	assert.False(t, result.Reranked)
}

func TestRerankerDeclineFallsBack(t *testing.T) {
	reranker := &mockReranker{rerankFunc: func(string, []index.Match) (int, error) {
		return 0, nil
	}}
	c, _ := newTestClassifier(t, 0.7, reranker)

	result, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, *result.TypeID)
	assert.False(t, result.Reranked)
}

func TestRerankingDisabledPerCall(t *testing.T) {
	reranker := &mockReranker{rerankFunc: func(string, []index.Match) (int, error) {
		t.Fatal("reranker must not be consulted when disabled for the call")
		return 0, nil
	}}
	c, _ := newTestClassifier(t, 0.7, reranker)

	result, err := c.Classify(context.Background(), sikaProduct(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, *result.TypeID)
	assert.False(t, result.Reranked)
}

func TestRerankerOutOfSetAnswerFallsBack(t *testing.T) {
	reranker := &mockReranker{rerankFunc: func(string, []index.Match) (int, error) {
		return 999, nil
	}}
	c, _ := newTestClassifier(t, 0.7, reranker)

	result, err := c.Classify(context.Background(), sikaProduct(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, *result.TypeID)
	assert.False(t, result.Reranked)
}

func TestClassifyEmptyProduct(t *testing.T) {
	c, _ := newTestClassifier(t, 0.7, nil)

	_, err := c.Classify(context.Background(), &ProductRecord{}, false)
	assert.ErrorIs(t, err, ErrEmptyProduct)
}

func TestClassifyEmbeddingFailure(t *testing.T) {
	c, embedder := newTestClassifier(t, 0.7, nil)
	embedder.embedFunc = func(string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	_, err := c.Classify(context.Background(), sikaProduct(), true)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestNewRequiresConfidenceFloor(t *testing.T) {
	_, err := New(context.Background(), Config{
		Taxonomy:  testTree(t),
		Embedding: &mockEmbedder{embedFunc: keywordVectorOK},
		CacheDir:  t.TempDir(),
	})
	assert.ErrorIs(t, err, ErrNoConfidenceFloor)
}

func TestNewRequiresEmbeddingClient(t *testing.T) {
	_, err := New(context.Background(), Config{
		Taxonomy:        testTree(t),
		CacheDir:        t.TempDir(),
		ConfidenceFloor: Float32(0.7),
	})
	assert.Error(t, err)
}

func TestNewReusesCachedIndex(t *testing.T) {
	embedder := &mockEmbedder{embedFunc: keywordVectorOK}
	dir := t.TempDir()

	cfg := Config{
		Taxonomy:        testTree(t),
		Embedding:       embedder,
		CacheDir:        dir,
		ConfidenceFloor: Float32(0.7),
	}

	_, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.batchCalls)

	_, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.batchCalls, "second construction should hit the artifact cache")
}

func keywordVectorOK(text string) ([]float32, error) {
	return keywordVector(text), nil
}
