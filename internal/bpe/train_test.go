package bpe

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretokenize"
)

func gpt4() pretokenize.Splitter {
	return pretokenize.MustCompile(pretokenize.GPT4Pattern)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Parallel = parallel.Sequential()
	cfg.CheckInvariants = true
	return cfg
}

func mergeStrings(t *testing.T, tok *Tokenizer) []string {
	t.Helper()
	var out []string
	for _, m := range tok.Merges() {
		b, ok := tok.Bytes(m.Rank)
		require.True(t, ok)
		out = append(out, string(b))
	}
	return out
}

// naiveTrain recounts every pair after every merge. It is quadratic and
// exists only to check the incremental engine.
func naiveTrain(chunks []string, vocabSize int, minCount int64) []Pair {
	type entry struct {
		syms  []Rank
		count int64
	}
	index := map[string]int{}
	var words []*entry
	for _, c := range chunks {
		if c == "" {
			continue
		}
		if i, ok := index[c]; ok {
			words[i].count++
			continue
		}
		e := &entry{count: 1}
		for i := 0; i < len(c); i++ {
			e.syms = append(e.syms, Rank(c[i]))
		}
		index[c] = len(words)
		words = append(words, e)
	}

	v := NewVocabulary()
	var merges []Pair
	for v.Size() < vocabSize {
		counts := map[Pair]int64{}
		for _, w := range words {
			for i := 0; i+1 < len(w.syms); i++ {
				counts[Pair{w.syms[i], w.syms[i+1]}] += w.count
			}
		}

		var best Pair
		var bestCount int64
		for p, c := range counts {
			if c > bestCount || (c == bestCount && v.comparePairs(p, best) > 0) {
				best, bestCount = p, c
			}
		}
		if bestCount < minCount || bestCount == 0 {
			break
		}

		r, err := v.Add(best)
		if err != nil {
			panic(err)
		}
		merges = append(merges, best)

		for _, w := range words {
			out := w.syms[:0:0]
			for i := 0; i < len(w.syms); i++ {
				if i+1 < len(w.syms) && w.syms[i] == best.Left && w.syms[i+1] == best.Right {
					out = append(out, r)
					i++
					continue
				}
				out = append(out, w.syms[i])
			}
			w.syms = out
		}
	}
	return merges
}

func randomCorpus(seed uint64, words int) string {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	alphabet := []byte("aabbcdeeee")
	var sb strings.Builder
	for i := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		n := 1 + rng.IntN(8)
		for range n {
			sb.WriteByte(alphabet[rng.IntN(len(alphabet))])
		}
		if rng.IntN(10) == 0 {
			sb.WriteString("!!")
		}
	}
	return sb.String()
}

func TestTrain_InvalidConfig(t *testing.T) {
	for _, size := range []int{-1, 0, 100, 256} {
		_, err := Train("hello", gpt4(), size, DefaultConfig())
		require.ErrorIs(t, err, ErrInvalidConfig, "vocab size %d", size)
	}

	_, err := Train("hello", nil, 300, DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg := DefaultConfig()
	cfg.MinPairCount = -1
	_, err = Train("hello", gpt4(), 300, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTrain_EmptyCorpus(t *testing.T) {
	tok, err := Train("", gpt4(), 300, testConfig())
	require.NoError(t, err)

	assert.Equal(t, NumBytes, tok.VocabSize())
	assert.False(t, tok.IsTrained())
	assert.Len(t, tok.MergeableRanks(), NumBytes)
}

func TestTrain_HelloWorld(t *testing.T) {
	corpus := "hello world! hello rust! hello bpe!"

	tok, err := Train(corpus, gpt4(), 280, testConfig())
	require.NoError(t, err)

	merges := mergeStrings(t, tok)
	require.GreaterOrEqual(t, len(merges), 6)
	assert.Equal(t, []string{"lo", "llo", "he", "hello", " hello", "wo"}, merges[:6])

	// Every chunk ends up as a single token before 280 is reached.
	assert.Len(t, merges, 17)
	assert.Equal(t, 273, tok.VocabSize())

	ranks := tok.MergeableRanks()
	require.Len(t, ranks, 273)
	for i, e := range ranks {
		assert.Equal(t, Rank(i), e.Rank)
	}

	got, err := tok.DecodeString(tok.Encode(corpus))
	require.NoError(t, err)
	assert.Equal(t, corpus, got)
}

func TestTrain_QuickBrownFox(t *testing.T) {
	corpus := "the quick brown fox jumps over the lazy dog"

	tok, err := Train(corpus, gpt4(), 280, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 280, tok.VocabSize())

	for _, text := range []string{"the quick", "brown fox", "lazy dog", "the the the"} {
		ids := tok.Encode(text)
		assert.Equal(t, ids, tok.Encode(text), "encode must be deterministic")

		got, err := tok.DecodeString(ids)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}

	// "the" is learned early; the budget runs out before " the" is.
	ids := tok.Encode("the the the")
	require.Len(t, ids, 5)
	assert.Equal(t, ids[0], ids[2])
	assert.Equal(t, ids[0], ids[4])
	assert.Equal(t, Rank(' '), ids[1])
	assert.Equal(t, Rank(' '), ids[3])

	again, err := Train(corpus, gpt4(), 280, testConfig())
	require.NoError(t, err)
	assert.Equal(t, tok.Merges(), again.Merges())
}

func TestTrain_TieBreakByBytes(t *testing.T) {
	tok, err := Train("ab cd", pretokenize.Func(strings.Fields), 258, testConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"cd", "ab"}, mergeStrings(t, tok))
}

func TestTrain_Overlapping(t *testing.T) {
	tok, err := Train("aaaa", pretokenize.Whole(), 300, testConfig())
	require.NoError(t, err)

	assert.Equal(t, []Merge{
		{Pair: Pair{'a', 'a'}, Rank: 256},
		{Pair: Pair{256, 256}, Rank: 257},
	}, tok.Merges())
	assert.Equal(t, []Rank{257, 'a'}, tok.Encode("aaaaa"))
	assert.Equal(t, []Rank{256, 'a'}, tok.Encode("aaa"))
}

func TestTrain_MinPairCount(t *testing.T) {
	cfg := testConfig()
	cfg.MinPairCount = 3

	tok, err := Train("hello world! hello rust! hello bpe!", gpt4(), 280, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"lo", "llo", "he", "hello"}, mergeStrings(t, tok))
}

func TestTrain_MonotonicRanks(t *testing.T) {
	tok, err := Train(randomCorpus(1, 400), gpt4(), 400, testConfig())
	require.NoError(t, err)

	for k, m := range tok.Merges() {
		assert.Equal(t, Rank(NumBytes+k), m.Rank)
		assert.Less(t, m.Pair.Left, m.Rank)
		assert.Less(t, m.Pair.Right, m.Rank)
	}
}

func TestTrain_MatchesNaiveRecount(t *testing.T) {
	splitter := pretokenize.MustCompile(pretokenize.GPT2Pattern)

	for _, seed := range []uint64{1, 2, 3} {
		corpus := randomCorpus(seed, 300)
		tok, err := Train(corpus, splitter, 420, testConfig())
		require.NoError(t, err)

		var got []Pair
		for _, m := range tok.Merges() {
			got = append(got, m.Pair)
		}
		want := naiveTrain(splitter.Split(corpus), 420, 1)
		assert.Equal(t, want, got, "seed %d", seed)
	}
}

func TestTrain_ParallelMatchesSequential(t *testing.T) {
	docs := make([]string, 0, 200)
	for i := range 200 {
		docs = append(docs, randomCorpus(uint64(i), 20))
	}

	seqCfg := testConfig()
	seqCfg.CheckInvariants = false
	seq, err := TrainFromIterator(context.Background(), Documents(docs...), gpt4(), 500, seqCfg)
	require.NoError(t, err)

	parCfg := seqCfg
	parCfg.Parallel = parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 3}
	parCfg.BatchSize = 16
	par, err := TrainFromIterator(context.Background(), Documents(docs...), gpt4(), 500, parCfg)
	require.NoError(t, err)

	assert.Equal(t, seq.Merges(), par.Merges())
}

func TestTrainFromIterator_DocumentBoundaries(t *testing.T) {
	// Chunks never span documents, so "ab" is never formed across them.
	tok, err := TrainFromIterator(context.Background(), Documents("a", "b", "a", "b"), pretokenize.Whole(), 300, testConfig())
	require.NoError(t, err)
	assert.False(t, tok.IsTrained())

	tok, err = Train("abab", pretokenize.Whole(), 300, testConfig())
	require.NoError(t, err)
	assert.True(t, tok.IsTrained())
}

func TestTrainFromIterator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TrainFromIterator(ctx, Documents("hello hello"), gpt4(), 300, testConfig())
	require.ErrorIs(t, err, context.Canceled)
}
