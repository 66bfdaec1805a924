// Package pretokenize splits text into the chunks a BPE tokenizer merges
// within. Merges never cross a chunk boundary.
//
// The default splitter uses the GPT-4 pattern:
//
//	s, err := pretokenize.Compile(pretokenize.GPT4Pattern)
//	if err != nil {
//	    return err
//	}
//	chunks := s.Split("hello world!") // ["hello", " world", "!"]
//
// Patterns are compiled with github.com/dlclark/regexp2. Possessive
// quantifiers, which regexp2 does not parse, are rewritten to atomic groups
// before compilation; Pattern still reports the text the caller supplied.
//
// Split output always concatenates back to the input, byte for byte. Text the
// pattern does not match is kept as its own chunk.
package pretokenize
