package bpe

import (
	"bytes"
	"cmp"
	"fmt"
)

// Rank identifies a vocabulary entry. Ranks 0-255 are the raw bytes; learned
// merges take 256, 257, ... in the order they were learned.
type Rank = uint32

// NumBytes is the number of base tokens, one per byte value.
const NumBytes = 256

// Pair is an ordered pair of adjacent tokens.
type Pair struct {
	Left, Right Rank
}

// Merge is a learned rule: Pair becomes Rank.
type Merge struct {
	Pair Pair
	Rank Rank
}

// RankEntry is one row of the rank table.
type RankEntry struct {
	Bytes []byte
	Rank  Rank
}

// Vocabulary holds the rank table and merge rules. Ranks are dense and
// every entry's bytes are cached when it is created.
type Vocabulary struct {
	tokens [][]byte
	merges []Pair
	ranks  map[Pair]Rank
}

// NewVocabulary returns a vocabulary holding only the 256 byte tokens.
func NewVocabulary() *Vocabulary {
	tokens := make([][]byte, NumBytes, NumBytes+1024)
	for b := range NumBytes {
		tokens[b] = []byte{byte(b)}
	}
	return &Vocabulary{
		tokens: tokens,
		ranks:  make(map[Pair]Rank),
	}
}

// Size returns the number of entries, bytes included.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// NumMerges returns the number of learned merges.
func (v *Vocabulary) NumMerges() int { return len(v.merges) }

// Contains reports whether r is a valid rank.
func (v *Vocabulary) Contains(r Rank) bool { return int(r) < len(v.tokens) }

// Bytes returns the byte sequence of r. The slice must not be modified.
func (v *Vocabulary) Bytes(r Rank) ([]byte, bool) {
	if !v.Contains(r) {
		return nil, false
	}
	return v.tokens[r], true
}

// MergeRank returns the rank produced by merging p, if p is a known merge.
func (v *Vocabulary) MergeRank(p Pair) (Rank, bool) {
	r, ok := v.ranks[p]
	return r, ok
}

// Add records the merge of p under the next free rank.
func (v *Vocabulary) Add(p Pair) (Rank, error) {
	if !v.Contains(p.Left) || !v.Contains(p.Right) {
		return 0, fmt.Errorf("%w: merge (%d, %d) references a rank outside the vocabulary of %d",
			ErrInvalidConfig, p.Left, p.Right, len(v.tokens))
	}
	if r, ok := v.ranks[p]; ok {
		return 0, fmt.Errorf("%w: merge (%d, %d) already learned as rank %d", ErrInvalidConfig, p.Left, p.Right, r)
	}

	left, right := v.tokens[p.Left], v.tokens[p.Right]
	b := make([]byte, 0, len(left)+len(right))
	b = append(b, left...)
	b = append(b, right...)

	r := Rank(len(v.tokens)) //nolint:gosec // G115: vocabulary size stays far below 2^32.
	v.tokens = append(v.tokens, b)
	v.merges = append(v.merges, p)
	v.ranks[p] = r
	return r, nil
}

// Merges returns the merge rules in rank order.
func (v *Vocabulary) Merges() []Merge {
	out := make([]Merge, len(v.merges))
	for i, p := range v.merges {
		out[i] = Merge{Pair: p, Rank: Rank(NumBytes + i)} //nolint:gosec // G115: see Add.
	}
	return out
}

// MergeableRanks returns every entry in rank order. The byte slices are copies.
func (v *Vocabulary) MergeableRanks() []RankEntry {
	out := make([]RankEntry, len(v.tokens))
	for i, b := range v.tokens {
		out[i] = RankEntry{Bytes: bytes.Clone(b), Rank: Rank(i)} //nolint:gosec // G115: see Add.
	}
	return out
}

// Clone returns an independent copy. Cached byte slices are shared since
// they are never modified.
func (v *Vocabulary) Clone() *Vocabulary {
	ranks := make(map[Pair]Rank, len(v.ranks))
	for p, r := range v.ranks {
		ranks[p] = r
	}
	return &Vocabulary{
		tokens: append([][]byte(nil), v.tokens...),
		merges: append([]Pair(nil), v.merges...),
		ranks:  ranks,
	}
}

// comparePairs orders pairs by concatenated bytes, then by the left token's
// bytes, then by rank. Distinct pairs never compare equal.
func (v *Vocabulary) comparePairs(a, b Pair) int {
	if a == b {
		return 0
	}

	al, ar := v.tokens[a.Left], v.tokens[a.Right]
	bl, br := v.tokens[b.Left], v.tokens[b.Right]
	if c := compareConcat(al, ar, bl, br); c != 0 {
		return c
	}
	if c := bytes.Compare(al, bl); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Left, b.Left); c != 0 {
		return c
	}
	return cmp.Compare(a.Right, b.Right)
}

// compareConcat compares a1+a2 with b1+b2 without allocating.
func compareConcat(a1, a2, b1, b2 []byte) int {
	na, nb := len(a1)+len(a2), len(b1)+len(b2)
	for k := 0; k < na && k < nb; k++ {
		x := byteAt(a1, a2, k)
		y := byteAt(b1, b2, k)
		if x != y {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(na, nb)
}

func byteAt(first, second []byte, k int) byte {
	if k < len(first) {
		return first[k]
	}
	return second[k-len(first)]
}
