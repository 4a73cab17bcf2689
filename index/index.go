// Package index implements nearest-neighbor search over the per-category
// embedding vectors. The index is small (one entry per taxonomy leaf), so an
// exact brute-force cosine scan is the default implementation; entries are
// L2-normalized at build time so inner product equals cosine similarity.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmptyIndex is returned by Search when the index holds no entries.
var ErrEmptyIndex = errors.New("index: empty index")

// Entry pairs a taxonomy node with its embedding vector.
type Entry struct {
	NodeID int       `json:"node_id"`
	Label  string    `json:"label"`
	Vector []float32 `json:"vector"`
}

// Match is a single search hit.
type Match struct {
	NodeID int
	Label  string
	Score  float32
}

// Index answers top-K similarity queries over a fixed entry set. It is
// immutable after Build and safe for concurrent reads.
type Index struct {
	dim     int
	modelID string
	entries []Entry
}

// Build constructs an Index from entries. Vectors are normalized in place;
// all entries must share one dimension.
func Build(modelID string, entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("index: cannot build from zero entries")
	}

	dim := len(entries[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("index: entry %d has an empty vector", entries[0].NodeID)
	}

	owned := make([]Entry, len(entries))
	for i, e := range entries {
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("index: entry %d has dimension %d, want %d", e.NodeID, len(e.Vector), dim)
		}
		v := make([]float32, dim)
		copy(v, e.Vector)
		normalize(v)
		owned[i] = Entry{NodeID: e.NodeID, Label: e.Label, Vector: v}
	}

	// Fixed entry order keeps scans deterministic regardless of input order.
	sort.Slice(owned, func(i, j int) bool { return owned[i].NodeID < owned[j].NodeID })

	return &Index{dim: dim, modelID: modelID, entries: owned}, nil
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Dimension returns the vector dimension shared by all entries.
func (idx *Index) Dimension() int { return idx.dim }

// ModelID returns the embedding model identifier the index was built with.
func (idx *Index) ModelID() string { return idx.modelID }

// Search returns the k highest-similarity entries for query, strictly
// descending by score with ties broken by ascending node id. Fewer than k
// results are returned when the index holds fewer entries.
func (idx *Index) Search(query []float32, k int) ([]Match, error) {
	if len(idx.entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("index: query dimension %d, want %d", len(query), idx.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("index: k must be positive, got %d", k)
	}

	q := make([]float32, idx.dim)
	copy(q, query)
	normalize(q)

	matches := make([]Match, len(idx.entries))
	for i, e := range idx.entries {
		matches[i] = Match{NodeID: e.NodeID, Label: e.Label, Score: dot(q, e.Vector)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].NodeID < matches[j].NodeID
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize scales v to unit length. Zero vectors are left untouched; they
// score zero against everything, which is the behavior we want for
// degenerate inputs.
func normalize(v []float32) {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range v {
		v[i] *= inv
	}
}
