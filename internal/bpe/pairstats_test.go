package bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/parallel"
)

func statsFor(t *testing.T, minCount int64, chunks ...string) (*PairStats, *Vocabulary) {
	t.Helper()
	table := newWordTable()
	for _, c := range chunks {
		table.add(c)
	}
	v := NewVocabulary()
	s := newPairStats(v, table.words, minCount, parallel.Sequential())
	require.NoError(t, s.Verify())
	return s, v
}

func TestPairStats_InitialCounts(t *testing.T) {
	s, _ := statsFor(t, 1, "hello", " hello", "hello", "!")

	assert.Equal(t, int64(3), s.Count(Pair{'h', 'e'}))
	assert.Equal(t, int64(3), s.Count(Pair{'l', 'l'}))
	assert.Equal(t, int64(1), s.Count(Pair{' ', 'h'}))
	assert.Equal(t, int64(0), s.Count(Pair{'o', 'h'}))

	// "hello" is stored once with weight 2.
	assert.Equal(t, 2, s.Occurrences(Pair{'h', 'e'}))
	assert.Equal(t, 5, s.Len())
}

func TestPairStats_TopTieBreak(t *testing.T) {
	s, _ := statsFor(t, 1, "ab", "cd")

	p, count, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, Pair{'c', 'd'}, p)
	assert.Equal(t, int64(1), count)
}

func TestPairStats_TopPrefersCount(t *testing.T) {
	s, _ := statsFor(t, 1, "zz", "ab", "ab")

	p, count, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, Pair{'a', 'b'}, p)
	assert.Equal(t, int64(2), count)
}

func TestPairStats_ApplyMerge(t *testing.T) {
	s, v := statsFor(t, 1, "xaby", "ab")

	p := Pair{'a', 'b'}
	r, err := v.Add(p)
	require.NoError(t, err)

	merged := s.ApplyMerge(p, r)
	assert.Equal(t, int64(2), merged)
	require.NoError(t, s.Verify())

	assert.Zero(t, s.Count(p))
	assert.Zero(t, s.Count(Pair{'x', 'a'}))
	assert.Zero(t, s.Count(Pair{'b', 'y'}))
	assert.Equal(t, int64(1), s.Count(Pair{'x', r}))
	assert.Equal(t, int64(1), s.Count(Pair{r, 'y'}))
	assert.Equal(t, []Rank{'x', r, 'y'}, s.words[0].symbols())
	assert.Equal(t, []Rank{r}, s.words[1].symbols())
}

func TestPairStats_ApplyMergeOverlapping(t *testing.T) {
	s, v := statsFor(t, 1, "aaaaa")

	p := Pair{'a', 'a'}
	assert.Equal(t, int64(4), s.Count(p))

	r, err := v.Add(p)
	require.NoError(t, err)
	merged := s.ApplyMerge(p, r)
	require.NoError(t, s.Verify())

	// Left to right: [aa][aa][a].
	assert.Equal(t, int64(2), merged)
	assert.Equal(t, []Rank{r, r, 'a'}, s.words[0].symbols())
	assert.Equal(t, int64(1), s.Count(Pair{r, r}))
	assert.Equal(t, int64(1), s.Count(Pair{r, 'a'}))
}

func TestPairStats_ApplyMergeAlternating(t *testing.T) {
	s, v := statsFor(t, 1, "ababab")

	p := Pair{'a', 'b'}
	r, err := v.Add(p)
	require.NoError(t, err)
	s.ApplyMerge(p, r)
	require.NoError(t, s.Verify())

	assert.Equal(t, []Rank{r, r, r}, s.words[0].symbols())
	assert.Equal(t, int64(2), s.Count(Pair{r, r}))
	assert.Zero(t, s.Count(Pair{'b', 'a'}))

	top, count, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, Pair{r, r}, top)
	assert.Equal(t, int64(2), count)
}

func TestPairStats_MinCount(t *testing.T) {
	s, _ := statsFor(t, 2, "ab", "cd", "cd")

	p, _, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, Pair{'c', 'd'}, p)

	s, _ = statsFor(t, 3, "ab", "cd", "cd")
	_, _, ok = s.Top()
	assert.False(t, ok)
}

func TestPairStats_Empty(t *testing.T) {
	s, _ := statsFor(t, 1, "a", "b")
	_, _, ok := s.Top()
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestPairStats_ParallelCountsMatch(t *testing.T) {
	chunks := make([]string, 0, 500)
	for i := range 500 {
		chunks = append(chunks, string(rune('a'+i%7))+"bc"+string(rune('a'+i%11)))
	}

	table := newWordTable()
	for _, c := range chunks {
		table.add(c)
	}
	seq := newPairStats(NewVocabulary(), table.words, 1, parallel.Sequential())
	par := newPairStats(NewVocabulary(), table.words, 1, parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 2})

	assert.Equal(t, seq.counts, par.counts)
	assert.Equal(t, seq.where, par.where)
}

func TestPairStats_VerifyDetectsDrift(t *testing.T) {
	s, _ := statsFor(t, 1, "abc")
	s.counts[Pair{'a', 'b'}]++
	require.ErrorIs(t, s.Verify(), ErrStatsDrift)

	s, _ = statsFor(t, 1, "abc")
	delete(s.where[Pair{'b', 'c'}], location{word: 0, pos: 1})
	require.ErrorIs(t, s.Verify(), ErrStatsDrift)
}

func TestPairStats_InvariantViolationPanics(t *testing.T) {
	s, _ := statsFor(t, 1, "abc")

	assert.Panics(t, func() {
		s.remove(Pair{'x', 'y'}, location{word: 0, pos: 0}, 1)
	})
	assert.Panics(t, func() {
		s.add(Pair{'a', 'b'}, location{word: 0, pos: 0}, 1)
	})
}
