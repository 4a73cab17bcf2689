package onnx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	return path
}

func testVocabTokens() []string {
	return []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]",
		"cement", "##itious", "grout", "##s", "for", "cable",
		"post", "-", "tension", "##ing",
	}
}

func newTestTokenizer(t *testing.T) *tokenizer {
	t.Helper()
	tok, err := newTokenizer(writeVocab(t, testVocabTokens()))
	require.NoError(t, err)
	return tok
}

func TestLoadVocabSpecialTokens(t *testing.T) {
	tok := newTestTokenizer(t)
	assert.EqualValues(t, 0, tok.vocab.padID)
	assert.EqualValues(t, 1, tok.vocab.unkID)
	assert.EqualValues(t, 2, tok.vocab.clsID)
	assert.EqualValues(t, 3, tok.vocab.sepID)
}

func TestLoadVocabMissingSpecial(t *testing.T) {
	_, err := newTokenizer(writeVocab(t, []string{"[PAD]", "[UNK]", "[CLS]"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[SEP]")
}

func TestBasicTokenize(t *testing.T) {
	words := basicTokenize("Cementitious  Grouts, for\tpost-tensioning!")
	assert.Equal(t, []string{"cementitious", "grouts", ",", "for", "post", "-", "tensioning", "!"}, words)
}

func TestBasicTokenizeStripsAccents(t *testing.T) {
	assert.Equal(t, []string{"beton"}, basicTokenize("Béton"))
}

func TestWordPieceGreedyLongestMatch(t *testing.T) {
	tok := newTestTokenizer(t)

	pieces := tok.wordPiece("cementitious")
	assert.Equal(t, []int64{4, 5}, pieces) // cement + ##itious

	pieces = tok.wordPiece("grouts")
	assert.Equal(t, []int64{6, 7}, pieces) // grout + ##s
}

func TestWordPieceUnknown(t *testing.T) {
	tok := newTestTokenizer(t)
	assert.Equal(t, []int64{tok.vocab.unkID}, tok.wordPiece("xyzzy"))
}

func TestEncodeWrapsWithSpecialTokens(t *testing.T) {
	tok := newTestTokenizer(t)
	ids := tok.encode("grout")
	require.Len(t, ids, 3)
	assert.Equal(t, tok.vocab.clsID, ids[0])
	assert.EqualValues(t, 6, ids[1])
	assert.Equal(t, tok.vocab.sepID, ids[2])
}

func TestEncodeTruncatesLongInput(t *testing.T) {
	tok := newTestTokenizer(t)
	ids := tok.encode(strings.Repeat("grout ", 500))
	assert.Len(t, ids, maxTokens)
	assert.Equal(t, tok.vocab.sepID, ids[len(ids)-1])
}

func TestEncodeBatchPadsToLongest(t *testing.T) {
	tok := newTestTokenizer(t)
	b := tok.encodeBatch([]string{"grout", "cementitious grouts for cable"})

	assert.EqualValues(t, 2, b.size)
	// second text: [CLS] cement ##itious grout ##s for cable [SEP] = 8
	assert.EqualValues(t, 8, b.seqLen)

	// first row: 3 real tokens then padding
	assert.EqualValues(t, 1, b.mask[2])
	assert.EqualValues(t, 0, b.mask[3])
	assert.Equal(t, tok.vocab.padID, b.ids[3])

	// second row fully attended
	for j := int64(0); j < b.seqLen; j++ {
		assert.EqualValues(t, 1, b.mask[b.seqLen+j])
	}
}

func TestMeanPoolIgnoresPadding(t *testing.T) {
	// one sequence, seqLen 3, dim 2; third position is padding
	hidden := []float32{1, 2, 3, 4, 100, 100}
	mask := []int64{1, 1, 0}
	vec := meanPool(hidden, mask, 0, 3, 2)
	assert.InDelta(t, 2.0, float64(vec[0]), 1e-6)
	assert.InDelta(t, 3.0, float64(vec[1]), 1e-6)
}

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	l2Normalize(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := []float32{0, 0}
	l2Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
