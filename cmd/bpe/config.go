package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/envconfig"
	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretokenize"
)

// trainConfig is the YAML training file. Flags that are set on the command
// line override it.
type trainConfig struct {
	VocabSize    int               `yaml:"vocab_size"`
	Pattern      string            `yaml:"pattern"`
	MinPairCount int64             `yaml:"min_pair_count"`
	MaxChars     int64             `yaml:"max_chars"`
	DocCap       int               `yaml:"doc_cap"`
	Workers      int               `yaml:"workers"`
	BatchSize    int               `yaml:"batch_size"`
	LogInterval  int               `yaml:"log_interval"`
	Output       string            `yaml:"output"`
	Tiktoken     string            `yaml:"tiktoken"`
	Metadata     map[string]string `yaml:"metadata"`
}

func defaultTrainConfig() trainConfig {
	def := bpe.DefaultConfig()
	return trainConfig{
		VocabSize:    32768,
		Pattern:      pretokenize.GPT4Pattern,
		MinPairCount: def.MinPairCount,
		DocCap:       10000,
		Workers:      envconfig.NumWorkers,
		BatchSize:    def.BatchSize,
		LogInterval:  envconfig.LogInterval,
		Output:       "tokenizer.bpe",
	}
}

// loadTrainConfig overlays the YAML file at path onto cfg. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func loadTrainConfig(path string, cfg *trainConfig) error {
	//nolint:gosec // G304: config path comes from the command line
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// applyFlags copies the flags the user set onto cfg.
func (c *trainConfig) applyFlags(flags *pflag.FlagSet) error {
	var err error
	set := func(name string, fn func() error) {
		if err == nil && flags.Changed(name) {
			err = fn()
		}
	}

	set("vocab-size", func() (e error) { c.VocabSize, e = flags.GetInt("vocab-size"); return })
	set("pattern", func() (e error) { c.Pattern, e = flags.GetString("pattern"); return })
	set("min-pair-count", func() (e error) { c.MinPairCount, e = flags.GetInt64("min-pair-count"); return })
	set("max-chars", func() (e error) { c.MaxChars, e = flags.GetInt64("max-chars"); return })
	set("doc-cap", func() (e error) { c.DocCap, e = flags.GetInt("doc-cap"); return })
	set("workers", func() (e error) { c.Workers, e = flags.GetInt("workers"); return })
	set("output", func() (e error) { c.Output, e = flags.GetString("output"); return })
	set("tiktoken", func() (e error) { c.Tiktoken, e = flags.GetString("tiktoken"); return })
	return err
}

// bpeConfig converts the file settings into a training config.
func (c *trainConfig) bpeConfig() bpe.Config {
	cfg := bpe.DefaultConfig()
	cfg.MinPairCount = c.MinPairCount
	if c.BatchSize > 0 {
		cfg.BatchSize = c.BatchSize
	}
	if c.LogInterval > 0 {
		cfg.LogInterval = c.LogInterval
	}
	switch {
	case c.Workers == 1:
		cfg.Parallel = parallel.Sequential()
	case c.Workers > 1:
		cfg.Parallel.Enabled = true
		cfg.Parallel.NumWorkers = c.Workers
	}
	return cfg
}
