package tokenizer

import (
	"github.com/born-ml/bpe/internal/bpe"
)

// Tokenizer is the core interface for text tokenization.
//
// Both the trained BPE tokenizer and tiktoken encoders implement it.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// Name returns the tokenizer name.
	Name() string
}

// BPE adapts a trained tokenizer to the Tokenizer interface.
type BPE struct {
	tok  *bpe.Tokenizer
	name string
}

var _ Tokenizer = (*BPE)(nil)

// NewBPE wraps tok under the given name.
func NewBPE(name string, tok *bpe.Tokenizer) *BPE {
	return &BPE{tok: tok, name: name}
}

// Encode converts text to token IDs.
func (b *BPE) Encode(text string) ([]int32, error) {
	ids := b.tok.Encode(text)
	result := make([]int32, len(ids))
	for i, id := range ids {
		result[i] = int32(id) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token IDs back to text.
func (b *BPE) Decode(tokens []int32) (string, error) {
	ids := make([]bpe.Rank, len(tokens))
	for i, tok := range tokens {
		ids[i] = bpe.Rank(tok) //nolint:gosec // G115: negative IDs wrap and are rejected as unknown.
	}
	return b.tok.DecodeString(ids)
}

// VocabSize returns the total vocabulary size.
func (b *BPE) VocabSize() int { return b.tok.VocabSize() }

// Name returns the tokenizer name.
func (b *BPE) Name() string { return b.name }
