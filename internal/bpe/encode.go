package bpe

import (
	"cmp"

	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

type candidate struct {
	pos         int
	rank        Rank
	left, right Rank
}

// appendChunk encodes one chunk and appends the result to dst.
//
// The lowest-ranked mergeable pair is merged first, the leftmost one among
// equals. Every pair created by a merge ranks above the merge that created
// it, so this replays training's rank-ordered, left-to-right application of
// the merges on this chunk.
func (t *Tokenizer) appendChunk(dst []Rank, chunk string) []Rank {
	n := len(chunk)
	if n < 2 || t.vocab.NumMerges() == 0 {
		for i := 0; i < n; i++ {
			dst = append(dst, Rank(chunk[i]))
		}
		return dst
	}

	syms := make([]Rank, n)
	prev := make([]int, n)
	next := make([]int, n)
	for i := 0; i < n; i++ {
		syms[i] = Rank(chunk[i])
		prev[i] = i - 1
		next[i] = i + 1
	}
	next[n-1] = -1

	candidates := binaryheap.NewWith(func(a, b candidate) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	lookup := func(i int) (candidate, bool) {
		if i < 0 || next[i] < 0 {
			return candidate{}, false
		}
		left, right := syms[i], syms[next[i]]
		r, ok := t.vocab.MergeRank(Pair{left, right})
		return candidate{pos: i, rank: r, left: left, right: right}, ok
	}

	initial := make([]candidate, 0, n-1)
	for i := 0; i+1 < n; i++ {
		if c, ok := lookup(i); ok {
			initial = append(initial, c)
		}
	}
	if len(initial) > 0 {
		candidates.Push(initial...)
	}

	for !candidates.Empty() {
		c, _ := candidates.Pop()

		// Symbols only ever change to a newer, larger rank, so a candidate
		// whose recorded symbols still match is current.
		j := next[c.pos]
		if syms[c.pos] != c.left || j < 0 || syms[j] != c.right {
			continue
		}

		syms[c.pos] = c.rank
		syms[j] = noSymbol
		k := next[j]
		next[c.pos] = k
		if k >= 0 {
			prev[k] = c.pos
		}

		if nc, ok := lookup(prev[c.pos]); ok {
			candidates.Push(nc)
		}
		if nc, ok := lookup(c.pos); ok {
			candidates.Push(nc)
		}
	}

	for i := 0; i >= 0; i = next[i] {
		dst = append(dst, syms[i])
	}
	return dst
}
