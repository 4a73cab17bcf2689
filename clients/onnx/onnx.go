// Package onnx runs a local BERT-style sentence-embedding model through
// ONNX Runtime. It covers deployments that cannot call a hosted embeddings
// API: tokenize, infer, mean-pool, L2-normalize.
package onnx

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
)

// Embedder produces fixed-dimension sentence embeddings from a local model.
type Embedder struct {
	session *session
	tok     *tokenizer
	modelID string
}

// New loads the ONNX model at modelPath and its WordPiece vocabulary at
// vocabPath. modelID names the model version for cache fingerprinting; when
// empty, the model file's base name is used.
func New(modelPath, vocabPath, modelID string) (*Embedder, error) {
	sess, err := newSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("onnx: %w", err)
	}

	if modelID == "" {
		modelID = filepath.Base(modelPath)
	}
	return &Embedder{session: sess, tok: tok, modelID: modelID}, nil
}

// ModelID returns the identifier used for fingerprinting.
func (e *Embedder) ModelID() string {
	return e.modelID
}

// Dimension returns the embedding dimension the model produces.
func (e *Embedder) Dimension() int {
	return int(e.session.hiddenDim)
}

// GenerateEmbedding embeds one text.
func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateEmbeddings embeds a batch of texts in one inference call.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := e.tok.encodeBatch(texts)
	hidden, err := e.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}

	dim := e.session.hiddenDim
	out := make([][]float32, batch.size)
	for i := int64(0); i < batch.size; i++ {
		vec := meanPool(hidden, batch.mask, i, batch.seqLen, dim)
		l2Normalize(vec)
		out[i] = vec
	}
	return out, nil
}

// Close releases the ONNX Runtime session.
func (e *Embedder) Close() error {
	return e.session.close()
}

// meanPool averages the token vectors of sequence i, weighted by the
// attention mask so padding does not dilute the result.
func meanPool(hidden []float32, mask []int64, i, seqLen, dim int64) []float32 {
	vec := make([]float32, dim)
	var count float32
	for t := int64(0); t < seqLen; t++ {
		if mask[i*seqLen+t] == 0 {
			continue
		}
		count++
		base := (i*seqLen + t) * dim
		for d := int64(0); d < dim; d++ {
			vec[d] += hidden[base+d]
		}
	}
	if count > 0 {
		for d := range vec {
			vec[d] /= count
		}
	}
	return vec
}

func l2Normalize(v []float32) {
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
