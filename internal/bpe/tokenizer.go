package bpe

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/bpe/internal/pretokenize"
)

// Tokenizer encodes text with a fixed set of merges. It is immutable and
// safe for concurrent use.
type Tokenizer struct {
	vocab    *Vocabulary
	splitter pretokenize.Splitter
}

func newTokenizer(vocab *Vocabulary, splitter pretokenize.Splitter) *Tokenizer {
	return &Tokenizer{vocab: vocab, splitter: splitter}
}

// NewTokenizer builds a tokenizer from merge rules listed in rank order:
// merges[k] produces rank 256+k.
func NewTokenizer(splitter pretokenize.Splitter, merges []Pair) (*Tokenizer, error) {
	if splitter == nil {
		return nil, fmt.Errorf("%w: nil splitter", ErrInvalidConfig)
	}

	v := NewVocabulary()
	for k, p := range merges {
		if _, err := v.Add(p); err != nil {
			return nil, fmt.Errorf("merge %d: %w", k, err)
		}
	}
	return newTokenizer(v, splitter), nil
}

// Untrained returns a tokenizer with no merges.
//
// Encoding with it is a degraded mode rather than an error: every byte
// becomes its own token. IsTrained reports false.
func Untrained(splitter pretokenize.Splitter) *Tokenizer {
	if splitter == nil {
		splitter = pretokenize.Whole()
	}
	return newTokenizer(NewVocabulary(), splitter)
}

// IsTrained reports whether the tokenizer knows any merges.
func (t *Tokenizer) IsTrained() bool { return t.vocab.NumMerges() > 0 }

// VocabSize returns the number of ranks, bytes included.
func (t *Tokenizer) VocabSize() int { return t.vocab.Size() }

// Pattern returns the split pattern the tokenizer was trained with.
func (t *Tokenizer) Pattern() string { return t.splitter.Pattern() }

// Splitter returns the pre-tokenizer.
func (t *Tokenizer) Splitter() pretokenize.Splitter { return t.splitter }

// MergeableRanks returns every (bytes, rank) entry in rank order: the 256
// bytes first, then the merges in the order they were learned.
func (t *Tokenizer) MergeableRanks() []RankEntry { return t.vocab.MergeableRanks() }

// Merges returns the merge rules in rank order.
func (t *Tokenizer) Merges() []Merge { return t.vocab.Merges() }

// Bytes returns the byte sequence of a rank.
func (t *Tokenizer) Bytes(r Rank) ([]byte, bool) { return t.vocab.Bytes(r) }

// Encode splits text into chunks and encodes each chunk independently.
func (t *Tokenizer) Encode(text string) []Rank {
	ids := make([]Rank, 0, len(text)/2+1)
	for _, chunk := range t.splitter.Split(text) {
		ids = t.appendChunk(ids, chunk)
	}
	return ids
}

// EncodeBatch encodes texts concurrently. The result is in input order.
func (t *Tokenizer) EncodeBatch(ctx context.Context, texts []string) ([][]Rank, error) {
	out := make([][]Rank, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, text := range texts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = t.Encode(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Decode concatenates the bytes of ids.
func (t *Tokenizer) Decode(ids []Rank) ([]byte, error) {
	var out []byte
	for i, id := range ids {
		b, ok := t.vocab.Bytes(id)
		if !ok {
			return nil, fmt.Errorf("%w: id %d at position %d (vocab size %d)", ErrUnknownToken, id, i, t.vocab.Size())
		}
		out = append(out, b...)
	}
	return out, nil
}

// DecodeString is Decode returning a string. Invalid UTF-8 is kept as is.
func (t *Tokenizer) DecodeString(ids []Rank) (string, error) {
	b, err := t.Decode(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
