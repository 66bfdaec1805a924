// Package tokenizer trains and runs byte-level BPE tokenizers.
//
// This package wraps the internal implementations and provides a clean public
// API: training from a string or a document iterator, encoding, the rank
// table, persistence and tiktoken interop.
//
// Example usage:
//
//	import "github.com/born-ml/bpe/tokenizer"
//
//	// Train
//	tok, err := tokenizer.Train(corpus, tokenizer.GPT4Pattern, 4096)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Encode text
//	ids := tok.Encode("Hello, world!")
//
//	// Decode tokens
//	text, err := tok.DecodeString(ids)
//
//	// Save and reload
//	err = tokenizer.Save("tok.bpe", tok, tokenizer.Header{})
//	tok, _, err = tokenizer.Load("tok.bpe")
package tokenizer

import (
	"context"
	"fmt"
	"iter"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/pretokenize"
	"github.com/born-ml/bpe/internal/serialization"
	"github.com/born-ml/bpe/internal/tokenizer"
)

// Tokenizer is a trained, immutable byte-level BPE tokenizer.
type Tokenizer = bpe.Tokenizer

// Rank is a token id.
type Rank = bpe.Rank

// Pair is an ordered pair of adjacent tokens.
type Pair = bpe.Pair

// Merge is a learned merge rule.
type Merge = bpe.Merge

// RankEntry is one row of the rank table.
type RankEntry = bpe.RankEntry

// Config tunes training.
type Config = bpe.Config

// TrainingSession drives training one merge at a time.
type TrainingSession = bpe.TrainingSession

// Splitter pre-tokenizes text into chunks.
type Splitter = pretokenize.Splitter

// Header is the metadata stored in a .bpe file.
type Header = serialization.Header

// Encoder is the interface shared by trained tokenizers and tiktoken encodings.
type Encoder = tokenizer.Tokenizer

// Split patterns.
const (
	GPT4Pattern   = pretokenize.GPT4Pattern
	CL100kPattern = pretokenize.CL100kPattern
	GPT2Pattern   = pretokenize.GPT2Pattern
)

// Errors.
var (
	ErrInvalidConfig  = bpe.ErrInvalidConfig
	ErrInvalidPattern = pretokenize.ErrInvalidPattern
	ErrUnknownToken   = bpe.ErrUnknownToken
	ErrSessionState   = bpe.ErrSessionState
)

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return bpe.DefaultConfig()
}

// NewSplitter compiles pattern. A malformed pattern is reported as both
// ErrInvalidConfig and ErrInvalidPattern.
func NewSplitter(pattern string) (Splitter, error) {
	re, err := pretokenize.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return re, nil
}

// Train learns merges from corpus until the vocabulary holds vocabSize
// entries or no pair repeats.
func Train(corpus, pattern string, vocabSize int) (*Tokenizer, error) {
	splitter, err := NewSplitter(pattern)
	if err != nil {
		return nil, err
	}
	return bpe.Train(corpus, splitter, vocabSize, bpe.DefaultConfig())
}

// TrainFromIterator trains over a sequence of documents. Chunks never span
// documents.
func TrainFromIterator(ctx context.Context, docs iter.Seq[string], pattern string, vocabSize int, cfg Config) (*Tokenizer, error) {
	splitter, err := NewSplitter(pattern)
	if err != nil {
		return nil, err
	}
	return bpe.TrainFromIterator(ctx, docs, splitter, vocabSize, cfg)
}

// NewTrainingSession starts a session for callers that step training themselves.
func NewTrainingSession(pattern string, vocabSize int, cfg Config) (*TrainingSession, error) {
	splitter, err := NewSplitter(pattern)
	if err != nil {
		return nil, err
	}
	return bpe.NewTrainingSession(splitter, vocabSize, cfg)
}

// Untrained returns a tokenizer with no merges. It encodes text to raw byte
// ranks; IsTrained reports false.
func Untrained(pattern string) (*Tokenizer, error) {
	splitter, err := NewSplitter(pattern)
	if err != nil {
		return nil, err
	}
	return bpe.Untrained(splitter), nil
}

// Save writes tok to path in .bpe format.
func Save(path string, tok *Tokenizer, header Header) error {
	return serialization.Save(path, tok, header)
}

// Load reads a .bpe file with full validation.
func Load(path string) (*Tokenizer, Header, error) {
	return serialization.Load(path, serialization.ReaderOptions{})
}

// SaveTiktoken writes tok's rank table in .tiktoken format.
func SaveTiktoken(path string, tok *Tokenizer) error {
	return serialization.SaveTiktoken(path, tok)
}

// LoadTiktoken reads a .tiktoken rank table. The format carries no pattern,
// so it is passed separately.
func LoadTiktoken(path, pattern string) (*Tokenizer, error) {
	splitter, err := NewSplitter(pattern)
	if err != nil {
		return nil, err
	}
	return serialization.LoadTiktoken(path, splitter)
}

// NewTikToken loads a public OpenAI encoding.
//
// Supported encodings: "cl100k_base" (GPT-4), "p50k_base" (GPT-3), "r50k_base".
func NewTikToken(encodingName string) (Encoder, error) {
	return tokenizer.NewTikToken(encodingName)
}

// ToTikToken builds a tiktoken encoder from tok's rank table.
func ToTikToken(name string, tok *Tokenizer) (Encoder, error) {
	return tokenizer.NewTikTokenFromRanks(name, tok.MergeableRanks(), tok.Pattern())
}

// AsEncoder exposes tok through the Encoder interface.
func AsEncoder(name string, tok *Tokenizer) Encoder {
	return tokenizer.NewBPE(name, tok)
}

// CrossCheck encodes texts with both encoders and returns a
// *tokenizer.MismatchError for the first text they disagree on.
func CrossCheck(a, b Encoder, texts []string) error {
	return tokenizer.CrossCheck(a, b, texts)
}
