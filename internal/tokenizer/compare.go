package tokenizer

import (
	"fmt"
	"slices"
)

// MismatchError reports the first text two tokenizers encode differently.
type MismatchError struct {
	Index       int
	Text        string
	Left, Right string
	LeftIDs     []int32
	RightIDs    []int32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s and %s disagree on text %d (%q): %v vs %v",
		e.Left, e.Right, e.Index, e.Text, e.LeftIDs, e.RightIDs)
}

// CrossCheck encodes every text with both tokenizers and returns a
// *MismatchError for the first disagreement.
func CrossCheck(a, b Tokenizer, texts []string) error {
	for i, text := range texts {
		left, err := a.Encode(text)
		if err != nil {
			return fmt.Errorf("%s: encode text %d: %w", a.Name(), i, err)
		}
		right, err := b.Encode(text)
		if err != nil {
			return fmt.Errorf("%s: encode text %d: %w", b.Name(), i, err)
		}
		if !slices.Equal(left, right) {
			return &MismatchError{
				Index:    i,
				Text:     text,
				Left:     a.Name(),
				Right:    b.Name(),
				LeftIDs:  left,
				RightIDs: right,
			}
		}
	}
	return nil
}

// Stats summarizes how well a tokenizer compresses a set of texts.
type Stats struct {
	Name      string
	VocabSize int
	Bytes     int
	Tokens    int
}

// Ratio returns bytes per token, or 0 for no tokens.
func (s Stats) Ratio() float64 {
	if s.Tokens == 0 {
		return 0
	}
	return float64(s.Bytes) / float64(s.Tokens)
}

// Compression encodes texts with tok and counts bytes and tokens. It also
// checks that every text decodes back unchanged.
func Compression(tok Tokenizer, texts []string) (Stats, error) {
	stats := Stats{Name: tok.Name(), VocabSize: tok.VocabSize()}
	for i, text := range texts {
		ids, err := tok.Encode(text)
		if err != nil {
			return stats, fmt.Errorf("%s: encode text %d: %w", tok.Name(), i, err)
		}
		decoded, err := tok.Decode(ids)
		if err != nil {
			return stats, fmt.Errorf("%s: decode text %d: %w", tok.Name(), i, err)
		}
		if decoded != text {
			return stats, fmt.Errorf("%s: text %d does not round-trip", tok.Name(), i)
		}
		stats.Bytes += len(text)
		stats.Tokens += len(ids)
	}
	return stats, nil
}
