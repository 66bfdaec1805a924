// Package bpe implements byte-level Byte-Pair-Encoding training and encoding.
//
// Training starts from the 256 single-byte tokens and repeatedly merges the
// most frequent adjacent pair of tokens into a new token until the requested
// vocabulary size is reached or no pair occurs often enough:
//
//	splitter := pretokenize.MustCompile(pretokenize.GPT4Pattern)
//	tok, err := bpe.Train(corpus, splitter, 4096, bpe.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	ids := tok.Encode("hello world")
//
// Pair frequencies are maintained incrementally. An occurrence index records,
// for every pair, the exact positions where it occurs, so a merge only touches
// the occurrences it rewrites and their immediate neighbours. Identical chunks
// are stored once with a multiplicity.
//
// Ties between equally frequent pairs go to the pair whose concatenated bytes
// are lexicographically greater, which makes training fully deterministic.
// Repeated pairs inside one chunk ("aaa") are merged left to right without
// overlap.
//
// A Tokenizer is immutable and safe for concurrent use. A TrainingSession is
// not; it is owned by the goroutine that drives it.
package bpe
