package bpe

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/born-ml/bpe/internal/parallel"
)

// location is one occurrence of a pair: the word and the position of the
// pair's left symbol.
type location struct {
	word, pos int
}

func compareLocations(a, b location) int {
	if c := cmp.Compare(a.word, b.word); c != 0 {
		return c
	}
	return cmp.Compare(a.pos, b.pos)
}

// PairStats holds weighted counts of every adjacent pair, the occurrence
// index and the candidate queue. It is updated in place by ApplyMerge and
// never recounted from scratch.
type PairStats struct {
	vocab    *Vocabulary
	words    []*word
	counts   map[Pair]int64
	where    map[Pair]map[location]struct{}
	queue    *mergeQueue
	minCount int64
}

// newPairStats counts every adjacent pair of words. Per-shard counts are
// built concurrently and summed in shard order; the occurrence index is
// filled sequentially.
func newPairStats(vocab *Vocabulary, words []*word, minCount int64, cfg parallel.Config) *PairStats {
	s := &PairStats{
		vocab:    vocab,
		words:    words,
		counts:   make(map[Pair]int64),
		where:    make(map[Pair]map[location]struct{}),
		queue:    newMergeQueue(vocab),
		minCount: minCount,
	}

	parts := make([]map[Pair]int64, len(parallel.Ranges(len(words), cfg)))
	parallel.ForRanges(len(words), func(shard int, r parallel.Range) {
		counts := make(map[Pair]int64)
		for _, w := range words[r.Start:r.End] {
			for i := 0; i+1 < len(w.syms); i++ {
				counts[Pair{w.syms[i], w.syms[i+1]}] += w.count
			}
		}
		parts[shard] = counts
	}, cfg)
	for _, counts := range parts {
		for p, c := range counts {
			s.counts[p] += c
		}
	}

	for wi, w := range words {
		for i := 0; i+1 < len(w.syms); i++ {
			p := Pair{w.syms[i], w.syms[i+1]}
			set, ok := s.where[p]
			if !ok {
				set = make(map[location]struct{})
				s.where[p] = set
			}
			set[location{word: wi, pos: i}] = struct{}{}
		}
	}

	entries := make([]queueEntry, 0, len(s.counts))
	for p, c := range s.counts {
		if c >= minCount {
			entries = append(entries, queueEntry{pair: p, count: c})
		}
	}
	s.queue.push(entries...)

	return s
}

// Len returns the number of distinct live pairs.
func (s *PairStats) Len() int { return len(s.counts) }

// Count returns the weighted count of p.
func (s *PairStats) Count(p Pair) int64 { return s.counts[p] }

// Occurrences returns the number of distinct positions where p occurs.
func (s *PairStats) Occurrences(p Pair) int { return len(s.where[p]) }

// Top returns the pair to merge next: highest count, ties going to the
// greater concatenated byte sequence. ok is false when no pair reaches the
// minimum count.
func (s *PairStats) Top() (p Pair, count int64, ok bool) {
	for {
		e, ok := s.queue.peek()
		if !ok {
			return Pair{}, 0, false
		}

		cur := s.counts[e.pair]
		if cur > e.count {
			invariantf("pair (%d, %d) count %d exceeds queued bound %d", e.pair.Left, e.pair.Right, cur, e.count)
		}
		if cur == e.count && cur >= s.minCount {
			return e.pair, cur, true
		}

		s.queue.pop()
		if cur >= s.minCount {
			s.queue.push(queueEntry{pair: e.pair, count: cur})
		}
	}
}

// ApplyMerge rewrites every occurrence of p into newRank, left to right
// within each word, and updates the neighbouring pair counts. An occurrence
// that overlaps one merged earlier in the same call is skipped. It returns
// the weighted number of occurrences merged.
func (s *PairStats) ApplyMerge(p Pair, newRank Rank) int64 {
	set := s.where[p]
	locs := make([]location, 0, len(set))
	for loc := range set {
		locs = append(locs, loc)
	}
	slices.SortFunc(locs, compareLocations)

	var merged int64
	touched := make(map[Pair]struct{})
	for _, loc := range locs {
		if _, ok := set[loc]; !ok {
			continue
		}

		w := s.words[loc.word]
		i := loc.pos
		j := w.next[i]
		if j < 0 || w.syms[i] != p.Left || w.syms[j] != p.Right {
			invariantf("pair (%d, %d) indexed at word %d position %d does not match the symbols there",
				p.Left, p.Right, loc.word, i)
		}

		prev, next := w.prev[i], w.next[j]
		if prev >= 0 {
			s.remove(Pair{w.syms[prev], p.Left}, location{word: loc.word, pos: prev}, w.count)
		}
		if next >= 0 {
			s.remove(Pair{p.Right, w.syms[next]}, location{word: loc.word, pos: j}, w.count)
		}
		s.remove(p, loc, w.count)

		w.syms[i] = newRank
		w.syms[j] = noSymbol
		w.prev[j], w.next[j] = -1, -1
		w.next[i] = next
		if next >= 0 {
			w.prev[next] = i
		}

		if prev >= 0 {
			np := Pair{w.syms[prev], newRank}
			s.add(np, location{word: loc.word, pos: prev}, w.count)
			touched[np] = struct{}{}
		}
		if next >= 0 {
			np := Pair{newRank, w.syms[next]}
			s.add(np, loc, w.count)
			touched[np] = struct{}{}
		}
		merged += w.count
	}

	if c := s.counts[p]; c != 0 {
		invariantf("pair (%d, %d) still has count %d after merging", p.Left, p.Right, c)
	}
	if n := len(s.where[p]); n != 0 {
		invariantf("pair (%d, %d) still has %d occurrences after merging", p.Left, p.Right, n)
	}

	entries := make([]queueEntry, 0, len(touched))
	for np := range touched {
		if c := s.counts[np]; c >= s.minCount {
			entries = append(entries, queueEntry{pair: np, count: c})
		}
	}
	s.queue.push(entries...)

	return merged
}

func (s *PairStats) add(p Pair, loc location, weight int64) {
	set, ok := s.where[p]
	if !ok {
		set = make(map[location]struct{})
		s.where[p] = set
	}
	if _, dup := set[loc]; dup {
		invariantf("pair (%d, %d) already indexed at word %d position %d", p.Left, p.Right, loc.word, loc.pos)
	}
	set[loc] = struct{}{}
	s.counts[p] += weight
}

func (s *PairStats) remove(p Pair, loc location, weight int64) {
	set := s.where[p]
	if _, ok := set[loc]; !ok {
		invariantf("pair (%d, %d) not indexed at word %d position %d", p.Left, p.Right, loc.word, loc.pos)
	}
	delete(set, loc)
	if len(set) == 0 {
		delete(s.where, p)
	}

	c := s.counts[p] - weight
	switch {
	case c < 0:
		invariantf("pair (%d, %d) count went negative (%d)", p.Left, p.Right, c)
	case c == 0:
		delete(s.counts, p)
	default:
		s.counts[p] = c
	}
}

// Verify recounts every pair from the current symbol sequences and compares
// the result with the incremental counts and occurrence index. It also checks
// that every word still spells its original bytes.
func (s *PairStats) Verify() error {
	counts := make(map[Pair]int64)
	where := make(map[Pair]map[location]struct{})

	for wi, w := range s.words {
		if len(w.syms) == 0 {
			continue
		}

		var spelled []byte
		prev := -1
		for i := 0; i >= 0; i = w.next[i] {
			if w.prev[i] != prev {
				return fmt.Errorf("%w: word %d position %d links back to %d, want %d", ErrStatsDrift, wi, i, w.prev[i], prev)
			}
			b, ok := s.vocab.Bytes(w.syms[i])
			if !ok {
				return fmt.Errorf("%w: word %d position %d holds unknown rank %d", ErrStatsDrift, wi, i, w.syms[i])
			}
			spelled = append(spelled, b...)

			if j := w.next[i]; j >= 0 {
				p := Pair{w.syms[i], w.syms[j]}
				counts[p] += w.count
				set, ok := where[p]
				if !ok {
					set = make(map[location]struct{})
					where[p] = set
				}
				set[location{word: wi, pos: i}] = struct{}{}
			}
			prev = i
		}
		if !bytes.Equal(spelled, []byte(w.text)) {
			return fmt.Errorf("%w: word %d spells %q, want %q", ErrStatsDrift, wi, spelled, w.text)
		}
	}

	if len(counts) != len(s.counts) {
		return fmt.Errorf("%w: %d distinct pairs tracked, %d present", ErrStatsDrift, len(s.counts), len(counts))
	}
	for p, c := range counts {
		if got := s.counts[p]; got != c {
			return fmt.Errorf("%w: pair (%d, %d) count %d, want %d", ErrStatsDrift, p.Left, p.Right, got, c)
		}
		got := s.where[p]
		if len(got) != len(where[p]) {
			return fmt.Errorf("%w: pair (%d, %d) has %d indexed occurrences, want %d",
				ErrStatsDrift, p.Left, p.Right, len(got), len(where[p]))
		}
		for loc := range where[p] {
			if _, ok := got[loc]; !ok {
				return fmt.Errorf("%w: pair (%d, %d) missing occurrence at word %d position %d",
					ErrStatsDrift, p.Left, p.Right, loc.word, loc.pos)
			}
		}
	}
	if len(where) != len(s.where) {
		return fmt.Errorf("%w: %d pairs indexed, %d present", ErrStatsDrift, len(s.where), len(where))
	}

	return nil
}
