package bpe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for a vocabulary size of 256 or less, a
	// malformed split pattern, or an inconsistent rank table.
	ErrInvalidConfig = errors.New("invalid tokenizer config")

	// ErrUnknownToken is returned when decoding an id outside the vocabulary.
	ErrUnknownToken = errors.New("unknown token")

	// ErrSessionState is returned when a TrainingSession method is called in
	// a state that does not allow it.
	ErrSessionState = errors.New("invalid training session state")

	// ErrStatsDrift is reported by PairStats.Verify when the incremental
	// counts no longer match the symbol sequences.
	ErrStatsDrift = errors.New("pair statistics out of sync")
)

// invariantf aborts on a broken internal invariant. The pair statistics are
// unusable once they drift, so there is nothing to recover.
func invariantf(format string, args ...any) {
	panic(fmt.Sprintf("bpe: invariant violated: "+format, args...))
}
