package bpe

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/bpe/internal/logutil"
	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretokenize"
)

// State is the phase of a TrainingSession.
type State int

const (
	// StateReady accepts the corpus.
	StateReady State = iota
	// StateSelecting picks the next pair to merge.
	StateSelecting
	// StateApplying rewrites the occurrences of the selected pair.
	StateApplying
	// StateDone has a final vocabulary.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateSelecting:
		return "selecting"
	case StateApplying:
		return "applying"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TrainingSession owns all mutable training state. Each Step is atomic: it
// either learns one merge completely or changes nothing, so a caller may stop
// between steps and still snapshot a consistent tokenizer.
//
// A session must not be used from more than one goroutine.
type TrainingSession struct {
	id        uuid.UUID
	cfg       Config
	splitter  pretokenize.Splitter
	vocabSize int

	state   State
	vocab   *Vocabulary
	words   *wordTable
	stats   *PairStats
	started time.Time
}

// NewTrainingSession validates the configuration and returns a session in
// StateReady.
func NewTrainingSession(splitter pretokenize.Splitter, vocabSize int, cfg Config) (*TrainingSession, error) {
	if vocabSize <= NumBytes {
		return nil, fmt.Errorf("%w: vocab size must be greater than %d, got %d", ErrInvalidConfig, NumBytes, vocabSize)
	}
	if splitter == nil {
		return nil, fmt.Errorf("%w: nil splitter", ErrInvalidConfig)
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	return &TrainingSession{
		id:        uuid.New(),
		cfg:       cfg,
		splitter:  splitter,
		vocabSize: vocabSize,
		state:     StateReady,
		vocab:     NewVocabulary(),
		words:     newWordTable(),
	}, nil
}

// ID identifies the training run in logs and saved files.
func (s *TrainingSession) ID() uuid.UUID { return s.id }

// State returns the current phase.
func (s *TrainingSession) State() State { return s.state }

// VocabSize returns the current vocabulary size.
func (s *TrainingSession) VocabSize() int { return s.vocab.Size() }

// Init pre-tokenizes every document and builds the pair statistics.
// Chunks never span documents. Documents are split in batches, concurrently
// within a batch, and folded in document order.
func (s *TrainingSession) Init(ctx context.Context, docs iter.Seq[string]) error {
	if s.state != StateReady {
		return fmt.Errorf("%w: init in state %s", ErrSessionState, s.state)
	}

	s.started = time.Now()
	slog.Debug("training started", "run", s.id, "vocab_size", s.vocabSize,
		"pattern", s.splitter.Pattern(), "min_pair_count", s.cfg.MinPairCount)

	var docCount int
	batch := make([]string, 0, s.cfg.BatchSize)
	for doc := range docs {
		batch = append(batch, doc)
		docCount++
		if len(batch) == s.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				s.state = StateDone
				return err
			}
			s.ingest(batch)
			batch = batch[:0]
		}
	}
	if err := ctx.Err(); err != nil {
		s.state = StateDone
		return err
	}
	s.ingest(batch)

	s.stats = newPairStats(s.vocab, s.words.words, s.cfg.MinPairCount, s.cfg.Parallel)
	s.state = StateSelecting

	slog.Debug("corpus loaded", "run", s.id, "documents", docCount, "chunks", s.words.chunks,
		"unique_chunks", len(s.words.words), "pairs", s.stats.Len(), "elapsed", time.Since(s.started))
	return nil
}

func (s *TrainingSession) ingest(docs []string) {
	if len(docs) == 0 {
		return
	}

	chunks := make([][]string, len(docs))
	parallel.For(len(docs), func(i int) {
		chunks[i] = s.splitter.Split(docs[i])
	}, s.cfg.Parallel)

	for _, cs := range chunks {
		for _, c := range cs {
			s.words.add(c)
		}
	}
}

// Step learns one merge. It returns false once training is complete, either
// because the vocabulary is full or because no pair reaches the minimum
// count.
func (s *TrainingSession) Step() (Merge, bool, error) {
	switch s.state {
	case StateDone:
		return Merge{}, false, nil
	case StateSelecting:
	default:
		return Merge{}, false, fmt.Errorf("%w: step in state %s", ErrSessionState, s.state)
	}

	if s.vocab.Size() >= s.vocabSize {
		s.done("vocabulary full")
		return Merge{}, false, nil
	}

	pair, count, ok := s.stats.Top()
	if !ok {
		s.done("no pair reaches the minimum count")
		return Merge{}, false, nil
	}

	s.state = StateApplying
	rank, err := s.vocab.Add(pair)
	if err != nil {
		invariantf("selected pair (%d, %d) cannot be added: %v", pair.Left, pair.Right, err)
	}
	merged := s.stats.ApplyMerge(pair, rank)
	if s.cfg.CheckInvariants {
		if err := s.stats.Verify(); err != nil {
			panic(err)
		}
	}
	s.state = StateSelecting

	if slog.Default().Enabled(context.TODO(), logutil.LevelTrace) {
		b, _ := s.vocab.Bytes(rank)
		logutil.Trace("merge", "rank", rank, "left", pair.Left, "right", pair.Right,
			"count", count, "merged", merged, "bytes", fmt.Sprintf("%q", b))
	}
	if n := s.vocab.NumMerges(); n%s.cfg.LogInterval == 0 {
		slog.Debug("training progress", "run", s.id, "merges", n, "vocab", s.vocab.Size(),
			"target", s.vocabSize, "last_count", count, "elapsed", time.Since(s.started))
	}

	return Merge{Pair: pair, Rank: rank}, true, nil
}

// Run steps until training is complete or ctx is cancelled. Cancellation is
// checked between steps; the vocabulary learned so far stays valid.
func (s *TrainingSession) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, ok, err := s.Step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Tokenizer returns a tokenizer for the merges learned so far. It does not
// end the session.
func (s *TrainingSession) Tokenizer() (*Tokenizer, error) {
	if s.state == StateReady {
		return nil, fmt.Errorf("%w: no corpus loaded", ErrSessionState)
	}
	return newTokenizer(s.vocab.Clone(), s.splitter), nil
}

// Finish ends the session, releases the chunk arena and pair statistics and
// returns the trained tokenizer.
func (s *TrainingSession) Finish() (*Tokenizer, error) {
	if s.state == StateReady {
		return nil, fmt.Errorf("%w: no corpus loaded", ErrSessionState)
	}
	if s.state != StateDone {
		s.done("finished by caller")
	}
	s.words = nil
	s.stats = nil
	return newTokenizer(s.vocab, s.splitter), nil
}

func (s *TrainingSession) done(reason string) {
	s.state = StateDone
	slog.Debug("training finished", "run", s.id, "reason", reason, "merges", s.vocab.NumMerges(),
		"vocab", s.vocab.Size(), "target", s.vocabSize, "elapsed", time.Since(s.started))
}
