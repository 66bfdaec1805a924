package serialization

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/pretokenize"
)

func TestTiktoken_RoundTrip(t *testing.T) {
	tok := trained(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTiktoken(&buf, tok.MergeableRanks()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, tok.VocabSize())
	assert.Equal(t, "AA== 0", lines[0])
	assert.Equal(t, "aA== 104", lines['h'])

	ranks, err := ReadTiktoken(&buf)
	require.NoError(t, err)
	assert.Equal(t, tok.MergeableRanks(), ranks)

	got, err := bpe.FromRanks(ranks, tok.Splitter())
	require.NoError(t, err)
	assert.Equal(t, tok.Merges(), got.Merges())
}

func TestReadTiktoken_SortsAndSkipsBlankLines(t *testing.T) {
	ranks, err := ReadTiktoken(strings.NewReader("Yg== 1\n\nYQ== 0\n"))
	require.NoError(t, err)
	assert.Equal(t, []bpe.RankEntry{{Bytes: []byte("a"), Rank: 0}, {Bytes: []byte("b"), Rank: 1}}, ranks)
}

func TestReadTiktoken_Malformed(t *testing.T) {
	for _, in := range []string{"YQ==\n", "!!! 0\n", "YQ== x\n", "YQ== -1\n"} {
		_, err := ReadTiktoken(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrMalformedLine, "input %q", in)
	}
}

func TestSaveLoadTiktoken(t *testing.T) {
	tok := trained(t)
	path := filepath.Join(t.TempDir(), "tok.tiktoken")

	require.NoError(t, SaveTiktoken(path, tok))
	got, err := LoadTiktoken(path, pretokenize.MustCompile(pretokenize.GPT4Pattern))
	require.NoError(t, err)

	assert.Equal(t, tok.Encode(corpus), got.Encode(corpus))
	assert.Equal(t, pretokenize.GPT4Pattern, got.Pattern())
}
