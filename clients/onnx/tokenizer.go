package onnx

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxTokens caps sequence length including [CLS] and [SEP].
const maxTokens = 128

// vocab is a WordPiece vocabulary; token ids are line numbers in vocab.txt.
type vocab struct {
	ids   map[string]int64
	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	scanner := bufio.NewScanner(f)
	var n int64
	for scanner.Scan() {
		v.ids[scanner.Text()] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: empty file %s", path)
	}

	for _, special := range []struct {
		tok  string
		dest *int64
	}{
		{"[PAD]", &v.padID}, {"[UNK]", &v.unkID}, {"[CLS]", &v.clsID}, {"[SEP]", &v.sepID},
	} {
		id, ok := v.ids[special.tok]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", special.tok)
		}
		*special.dest = id
	}
	return v, nil
}

// tokenizer performs lowercased BERT tokenization (basic split + WordPiece).
type tokenizer struct {
	vocab *vocab
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v}, nil
}

// encodedBatch holds flat [size * seqLen] model inputs.
type encodedBatch struct {
	ids     []int64
	mask    []int64
	typeIDs []int64
	size    int64
	seqLen  int64
}

// encodeBatch converts texts into model inputs, padded to the longest
// sequence in the batch (capped at maxTokens).
func (t *tokenizer) encodeBatch(texts []string) encodedBatch {
	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		ids := t.encode(text)
		seqs[i] = ids
		if len(ids) > longest {
			longest = len(ids)
		}
	}

	size := int64(len(texts))
	seqLen := int64(longest)
	b := encodedBatch{
		ids:     make([]int64, size*seqLen),
		mask:    make([]int64, size*seqLen),
		typeIDs: make([]int64, size*seqLen), // single-segment input, all zeros
		size:    size,
		seqLen:  seqLen,
	}
	for i, ids := range seqs {
		off := int64(i) * seqLen
		for j, id := range ids {
			b.ids[off+int64(j)] = id
			b.mask[off+int64(j)] = 1
		}
		// remaining positions stay [PAD] with mask 0
	}
	return b
}

// encode produces [CLS] wordpieces... [SEP] ids for one text, truncated to
// maxTokens.
func (t *tokenizer) encode(text string) []int64 {
	words := basicTokenize(text)

	ids := make([]int64, 0, maxTokens)
	ids = append(ids, t.vocab.clsID)
	for _, w := range words {
		for _, piece := range t.wordPiece(w) {
			if len(ids) == maxTokens-1 {
				break
			}
			ids = append(ids, piece)
		}
		if len(ids) == maxTokens-1 {
			break
		}
	}
	return append(ids, t.vocab.sepID)
}

// wordPiece decomposes one word into subword ids using greedy longest-match.
// A word with any unmatchable remainder maps to a single [UNK].
func (t *tokenizer) wordPiece(word string) []int64 {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) > 100 {
		return []int64{t.vocab.unkID}
	}

	var pieces []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		matched := int64(-1)
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab.ids[sub]; ok {
				matched = id
				break
			}
			end--
		}
		if matched < 0 {
			return []int64{t.vocab.unkID}
		}
		pieces = append(pieces, matched)
		start = end
	}
	return pieces
}

// basicTokenize lowercases, strips accents and control characters, and
// splits on whitespace and punctuation, following BERT's basic tokenizer.
func basicTokenize(text string) []string {
	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case r == 0 || r == 0xFFFD || isControl(r):
		case unicode.In(r, unicode.Mn): // combining marks from NFD
		case isWhitespace(r):
			cleaned.WriteRune(' ')
		default:
			cleaned.WriteRune(r)
		}
	}

	var words []string
	for _, field := range strings.Fields(cleaned.String()) {
		words = append(words, splitPunctuation(field)...)
	}
	return words
}

// splitPunctuation splits a word at punctuation, keeping each punctuation
// rune as its own token.
func splitPunctuation(word string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range word {
		if isPunctuation(r) {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, string(r))
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation matches BERT's definition: the ASCII symbol ranges plus
// Unicode punctuation categories.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
