// Package lexical is a local sparse encoder: hashed token counts with
// sublinear term frequency. It needs no model and no network.
package lexical

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// DefaultVocabSize matches the BERT WordPiece vocabulary used by SPLADE models,
// so hashed and learned vectors fit the same sparse index.
const DefaultVocabSize = 30522

// Encoder maps tokens to xxhash64(token) mod vocab with weight 1 + ln(tf).
type Encoder struct {
	vocab uint64
}

// New creates an encoder. vocab <= 0 uses DefaultVocabSize.
func New(vocab int) *Encoder {
	if vocab <= 0 {
		vocab = DefaultVocabSize
	}
	return &Encoder{vocab: uint64(vocab)}
}

// Tokenize lowercases text and splits it on runs of anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Encode returns the sparse vector for text. Tokens hashing to the same slot add up.
func (e *Encoder) Encode(text string) domain.SparseVector {
	tf := make(map[string]int)
	for _, tok := range Tokenize(text) {
		tf[tok]++
	}

	weights := make(map[uint32]float32, len(tf))
	for tok, n := range tf {
		slot := uint32(xxhash.Sum64String(tok) % e.vocab)
		weights[slot] += float32(1 + math.Log(float64(n)))
	}
	return domain.SparseFromWeights(weights)
}

// EmbedSparse implements domain.SparseEmbedder.
func (e *Encoder) EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error) {
	if err := ctx.Err(); err != nil {
		return domain.SparseVector{}, err //nolint:wrapcheck // context error is returned as is
	}
	return e.Encode(text), nil
}

// Slot exposes the index a single token maps to.
func (e *Encoder) Slot(token string) uint32 {
	return uint32(xxhash.Sum64String(strings.ToLower(token)) % e.vocab)
}
