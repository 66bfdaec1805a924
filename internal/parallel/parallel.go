// Package parallel provides fan-out helpers for the tokenizer's data-parallel passes.
//
// Work is always split into contiguous, ordered ranges so that callers can
// reduce per-range results in range order and get the same output regardless
// of how many workers ran.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a config that runs everything on the calling goroutine.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// Range is a half-open interval [Start, End) of item indices.
type Range struct {
	Start, End int
}

// Len returns the number of items in the range.
func (r Range) Len() int { return r.End - r.Start }

// Ranges splits [0, n) into contiguous ranges in ascending order.
// A disabled config, or n below MinChunkSize, yields a single range.
func Ranges(n int, cfg Config) []Range {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return []Range{{Start: 0, End: n}}
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	out := make([]Range, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		out = append(out, Range{Start: start, End: min(start+chunkSize, n)})
	}
	return out
}

// ForRanges runs f once per range of [0, n), concurrently when cfg allows.
// The shard argument is the index of the range in Ranges(n, cfg), so callers
// can write per-shard results into a slice and merge them in order.
func ForRanges(n int, f func(shard int, r Range), cfg Config) int {
	ranges := Ranges(n, cfg)
	if len(ranges) == 1 {
		f(0, ranges[0])
		return 1
	}

	var wg sync.WaitGroup
	for shard, r := range ranges {
		wg.Add(1)
		go func(shard int, r Range) {
			defer wg.Done()
			f(shard, r)
		}(shard, r)
	}
	wg.Wait()
	return len(ranges)
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	ForRanges(n, func(_ int, r Range) {
		for i := r.Start; i < r.End; i++ {
			f(i)
		}
	}, cfg)
}
