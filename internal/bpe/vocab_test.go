package bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary(t *testing.T) {
	v := NewVocabulary()
	assert.Equal(t, NumBytes, v.Size())
	assert.Equal(t, 0, v.NumMerges())

	for _, r := range []Rank{0, 'a', 255} {
		b, ok := v.Bytes(r)
		require.True(t, ok)
		assert.Equal(t, []byte{byte(r)}, b)
	}
	_, ok := v.Bytes(256)
	assert.False(t, ok)
}

func TestVocabulary_Add(t *testing.T) {
	v := NewVocabulary()

	r, err := v.Add(Pair{'h', 'e'})
	require.NoError(t, err)
	assert.Equal(t, Rank(256), r)

	r, err = v.Add(Pair{256, 'y'})
	require.NoError(t, err)
	assert.Equal(t, Rank(257), r)

	b, ok := v.Bytes(257)
	require.True(t, ok)
	assert.Equal(t, "hey", string(b))

	got, ok := v.MergeRank(Pair{'h', 'e'})
	require.True(t, ok)
	assert.Equal(t, Rank(256), got)

	assert.Equal(t, []Merge{
		{Pair: Pair{'h', 'e'}, Rank: 256},
		{Pair: Pair{256, 'y'}, Rank: 257},
	}, v.Merges())

	t.Run("unknown rank", func(t *testing.T) {
		_, err := v.Add(Pair{'a', 999})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("duplicate merge", func(t *testing.T) {
		_, err := v.Add(Pair{'h', 'e'})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestVocabulary_MergeableRanksAreCopies(t *testing.T) {
	v := NewVocabulary()
	_, err := v.Add(Pair{'a', 'b'})
	require.NoError(t, err)

	entries := v.MergeableRanks()
	require.Len(t, entries, 257)
	assert.Equal(t, "ab", string(entries[256].Bytes))

	entries[256].Bytes[0] = 'z'
	b, _ := v.Bytes(256)
	assert.Equal(t, "ab", string(b))
}

func TestVocabulary_Clone(t *testing.T) {
	v := NewVocabulary()
	_, err := v.Add(Pair{'a', 'b'})
	require.NoError(t, err)

	c := v.Clone()
	_, err = c.Add(Pair{'c', 'd'})
	require.NoError(t, err)

	assert.Equal(t, 257, v.Size())
	assert.Equal(t, 258, c.Size())
	_, ok := v.MergeRank(Pair{'c', 'd'})
	assert.False(t, ok)
}

func TestCompareConcat(t *testing.T) {
	tests := []struct {
		a1, a2, b1, b2 string
		want           int
	}{
		{"a", "b", "a", "b", 0},
		{"ab", "", "a", "b", 0},
		{"a", "c", "a", "b", 1},
		{"a", "b", "ab", "c", -1},
		{"b", "", "a", "zz", 1},
		{"lo", "", "ll", "", 1},
	}

	for _, tt := range tests {
		got := compareConcat([]byte(tt.a1), []byte(tt.a2), []byte(tt.b1), []byte(tt.b2))
		assert.Equal(t, tt.want, got, "%q+%q vs %q+%q", tt.a1, tt.a2, tt.b1, tt.b2)
	}
}

func TestComparePairs(t *testing.T) {
	v := NewVocabulary()
	ab, err := v.Add(Pair{'a', 'b'})
	require.NoError(t, err)
	bc, err := v.Add(Pair{'b', 'c'})
	require.NoError(t, err)

	// "lo" > "ll"
	assert.Positive(t, v.comparePairs(Pair{'l', 'o'}, Pair{'l', 'l'}))

	// Same bytes "abc": the greater left side wins.
	x := Pair{ab, 'c'} // "ab" + "c"
	y := Pair{'a', bc} // "a" + "bc"
	assert.Positive(t, v.comparePairs(x, y))
	assert.Negative(t, v.comparePairs(y, x))
	assert.Zero(t, v.comparePairs(x, x))
}
