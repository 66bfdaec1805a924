package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/pretokenize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTrainConfig(t *testing.T) {
	path := writeConfig(t, `
vocab_size: 4096
min_pair_count: 2
doc_cap: 500
workers: 1
output: out.bpe
metadata:
  corpus: fineweb
`)

	cfg := defaultTrainConfig()
	require.NoError(t, loadTrainConfig(path, &cfg))

	assert.Equal(t, 4096, cfg.VocabSize)
	assert.EqualValues(t, 2, cfg.MinPairCount)
	assert.Equal(t, 500, cfg.DocCap)
	assert.Equal(t, "out.bpe", cfg.Output)
	assert.Equal(t, "fineweb", cfg.Metadata["corpus"])
	// Keys absent from the file keep their defaults.
	assert.Equal(t, pretokenize.GPT4Pattern, cfg.Pattern)

	bc := cfg.bpeConfig()
	assert.EqualValues(t, 2, bc.MinPairCount)
	assert.False(t, bc.Parallel.Enabled)
}

func TestLoadTrainConfig_Empty(t *testing.T) {
	cfg := defaultTrainConfig()
	require.NoError(t, loadTrainConfig(writeConfig(t, ""), &cfg))
	assert.Equal(t, defaultTrainConfig().VocabSize, cfg.VocabSize)
}

func TestLoadTrainConfig_UnknownKey(t *testing.T) {
	cfg := defaultTrainConfig()
	err := loadTrainConfig(writeConfig(t, "vocab: 300\n"), &cfg)
	assert.ErrorContains(t, err, "vocab")
}

func TestApplyFlags_OverridesFile(t *testing.T) {
	cmd := NewCLI()
	train, _, err := cmd.Find([]string{"train"})
	require.NoError(t, err)
	require.NoError(t, train.Flags().Parse([]string{"--vocab-size", "300", "-o", "x.bpe"}))

	cfg := defaultTrainConfig()
	cfg.VocabSize = 4096
	cfg.DocCap = 7
	require.NoError(t, cfg.applyFlags(train.Flags()))

	assert.Equal(t, 300, cfg.VocabSize)
	assert.Equal(t, "x.bpe", cfg.Output)
	assert.Equal(t, 7, cfg.DocCap, "unset flags must not override the file")
}
