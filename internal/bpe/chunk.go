package bpe

// noSymbol marks a position whose symbol was merged into its left neighbour.
const noSymbol = ^Rank(0)

// word is one distinct chunk and its current symbols. Positions are stable:
// a merge rewrites the left position, tombstones the right one and unlinks
// it, so (word, position) pairs stay valid keys for the occurrence index.
type word struct {
	text  string
	count int64
	syms  []Rank
	prev  []int
	next  []int
}

func newWord(text string, count int64) *word {
	n := len(text)
	w := &word{
		text:  text,
		count: count,
		syms:  make([]Rank, n),
		prev:  make([]int, n),
		next:  make([]int, n),
	}
	for i := 0; i < n; i++ {
		w.syms[i] = Rank(text[i])
		w.prev[i] = i - 1
		w.next[i] = i + 1
	}
	if n > 0 {
		w.next[n-1] = -1
	}
	return w
}

// symbols returns the live symbols in order.
func (w *word) symbols() []Rank {
	if len(w.syms) == 0 {
		return nil
	}
	var out []Rank
	for i := 0; i >= 0; i = w.next[i] {
		out = append(out, w.syms[i])
	}
	return out
}

// wordTable deduplicates chunks, keeping first-seen order.
type wordTable struct {
	index  map[string]int
	words  []*word
	chunks int64
}

func newWordTable() *wordTable {
	return &wordTable{index: make(map[string]int)}
}

func (t *wordTable) add(chunk string) {
	if chunk == "" {
		return
	}
	t.chunks++
	if i, ok := t.index[chunk]; ok {
		t.words[i].count++
		return
	}
	t.index[chunk] = len(t.words)
	t.words = append(t.words, newWord(chunk, 1))
}
