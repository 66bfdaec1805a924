package bpe

import (
	"bytes"
	"fmt"

	"github.com/born-ml/bpe/internal/pretokenize"
)

// FromRanks rebuilds a tokenizer from a rank table alone, as found in
// .tiktoken files. The merge for each rank is recovered by encoding its bytes
// with the merges below it, which must yield exactly two tokens.
func FromRanks(entries []RankEntry, splitter pretokenize.Splitter) (*Tokenizer, error) {
	if splitter == nil {
		return nil, fmt.Errorf("%w: nil splitter", ErrInvalidConfig)
	}
	if len(entries) < NumBytes {
		return nil, fmt.Errorf("%w: rank table has %d entries, want at least %d", ErrInvalidConfig, len(entries), NumBytes)
	}

	for i, e := range entries {
		if int(e.Rank) != i {
			return nil, fmt.Errorf("%w: entry %d has rank %d, ranks must be dense and ordered", ErrInvalidConfig, i, e.Rank)
		}
		if i < NumBytes && !bytes.Equal(e.Bytes, []byte{byte(i)}) {
			return nil, fmt.Errorf("%w: rank %d must be the single byte %#02x", ErrInvalidConfig, i, i)
		}
	}

	v := NewVocabulary()
	whole := pretokenize.Whole()
	for _, e := range entries[NumBytes:] {
		parts := newTokenizer(v, whole).appendChunk(nil, string(e.Bytes))
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: rank %d (%q) is not a merge of two lower ranks", ErrInvalidConfig, e.Rank, e.Bytes)
		}
		if _, err := v.Add(Pair{Left: parts[0], Right: parts[1]}); err != nil {
			return nil, fmt.Errorf("rank %d: %w", e.Rank, err)
		}
	}

	return newTokenizer(v, splitter), nil
}
