package bpe

import (
	"context"
	"iter"

	"github.com/born-ml/bpe/internal/pretokenize"
)

// Train learns a vocabulary of up to vocabSize entries from a single text.
// An empty text yields the 256 byte tokens.
func Train(text string, splitter pretokenize.Splitter, vocabSize int, cfg Config) (*Tokenizer, error) {
	return TrainFromIterator(context.Background(), Documents(text), splitter, vocabSize, cfg)
}

// TrainFromIterator learns a vocabulary from a stream of documents.
func TrainFromIterator(ctx context.Context, docs iter.Seq[string], splitter pretokenize.Splitter, vocabSize int, cfg Config) (*Tokenizer, error) {
	s, err := NewTrainingSession(splitter, vocabSize, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx, docs); err != nil {
		return nil, err
	}
	if err := s.Run(ctx); err != nil {
		return nil, err
	}
	return s.Finish()
}

// Documents adapts a list of texts to a document stream.
func Documents(texts ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range texts {
			if !yield(t) {
				return
			}
		}
	}
}
