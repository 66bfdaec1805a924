package bpe

import (
	"fmt"

	"github.com/born-ml/bpe/internal/parallel"
)

// Config controls training.
type Config struct {
	// MinPairCount is the minimum weighted count a pair needs to be merged.
	// Training stops early once no pair reaches it. Zero means 1.
	MinPairCount int64

	// Parallel controls pre-tokenization of document batches and the
	// initial pair count. The merge loop itself is always sequential.
	Parallel parallel.Config

	// BatchSize is the number of documents pre-tokenized together.
	BatchSize int

	// LogInterval is the number of merges between progress log lines.
	LogInterval int

	// CheckInvariants re-derives all pair statistics after every merge and
	// panics on any difference. Slow; meant for tests and debugging.
	CheckInvariants bool
}

// DefaultConfig returns the training defaults.
func DefaultConfig() Config {
	return Config{
		MinPairCount: 1,
		Parallel:     parallel.DefaultConfig(),
		BatchSize:    1024,
		LogInterval:  1000,
	}
}

func (c Config) normalize() (Config, error) {
	if c.MinPairCount < 0 {
		return c, fmt.Errorf("%w: min pair count must be at least 1, got %d", ErrInvalidConfig, c.MinPairCount)
	}
	if c.MinPairCount == 0 {
		c.MinPairCount = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1024
	}
	if c.LogInterval <= 0 {
		c.LogInterval = 1000
	}
	return c, nil
}
