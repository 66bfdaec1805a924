package tokenizer

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/pretokenize"
)

const (
	// encodingCL100kBase is the encoding name for GPT-4 and GPT-3.5-turbo.
	encodingCL100kBase = "cl100k_base"
	// encodingP50kBase is the encoding name for GPT-3.
	encodingP50kBase = "p50k_base"
	// encodingR50kBase is the encoding name for older GPT-3 models.
	encodingR50kBase = "r50k_base"
)

// ErrDuplicateToken is returned when a rank table maps two ranks to the same
// bytes, which a tiktoken encoder cannot represent.
var ErrDuplicateToken = errors.New("duplicate token bytes")

// TikToken wraps the pkoukk/tiktoken-go library.
//
// It holds either a public OpenAI encoding (cl100k_base, p50k_base,
// r50k_base) or an encoder built from a trained rank table.
type TikToken struct {
	encoding  *tiktoken.Tiktoken
	name      string
	vocabSize int
}

var _ Tokenizer = (*TikToken)(nil)

// NewTikToken creates a TikToken tokenizer for a public encoding.
// The rank file is downloaded and cached by tiktoken-go on first use.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{
		encoding:  encoding,
		name:      encodingName,
		vocabSize: publicVocabSize(encodingName),
	}, nil
}

// NewTikTokenFromRanks builds a tiktoken encoder over a trained rank table.
// Possessive quantifiers in pattern are rewritten the same way the
// pre-tokenizer rewrites them.
func NewTikTokenFromRanks(name string, ranks []bpe.RankEntry, pattern string) (*TikToken, error) {
	if pattern == "" {
		return nil, fmt.Errorf("tiktoken encoder %q: %w", name, pretokenize.ErrInvalidPattern)
	}

	encoder := make(map[string]int, len(ranks))
	for _, e := range ranks {
		key := string(e.Bytes)
		if prev, ok := encoder[key]; ok {
			return nil, fmt.Errorf("%w: ranks %d and %d are both %q", ErrDuplicateToken, prev, e.Rank, e.Bytes)
		}
		encoder[key] = int(e.Rank)
	}

	expanded := pretokenize.Expand(pattern)
	core, err := tiktoken.NewCoreBPE(encoder, map[string]int{}, expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to build tiktoken encoder %q: %w", name, err)
	}

	encoding := &tiktoken.Encoding{
		Name:           name,
		PatStr:         expanded,
		MergeableRanks: encoder,
		SpecialTokens:  map[string]int{},
		ExplicitNVocab: len(encoder),
	}

	return &TikToken{
		encoding:  tiktoken.NewTiktoken(core, encoding, map[string]any{}),
		name:      name,
		vocabSize: len(encoder),
	}, nil
}

// Encode converts text to token IDs. Special tokens are not recognized.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.EncodeOrdinary(text)

	// Convert []int to []int32.
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}

	return result, nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || int(tok) >= t.vocabSize {
			return "", fmt.Errorf("%w: id %d at position %d", bpe.ErrUnknownToken, tok, i)
		}
		intTokens[i] = int(tok)
	}

	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the total vocabulary size.
func (t *TikToken) VocabSize() int {
	return t.vocabSize
}

// Name returns the tokenizer name.
func (t *TikToken) Name() string {
	return t.name
}

func publicVocabSize(name string) int {
	switch name {
	case encodingCL100kBase:
		return 100277 // ranks plus special tokens
	case encodingP50kBase, encodingR50kBase:
		return 50257
	default:
		return 100000
	}
}
