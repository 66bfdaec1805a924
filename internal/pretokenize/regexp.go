package pretokenize

import (
	"fmt"
	"log/slog"

	"github.com/dlclark/regexp2"
)

// Regexp splits text on the matches of a regular expression.
// It is safe for concurrent use.
type Regexp struct {
	pattern  string
	expanded string
	re       *regexp2.Regexp
}

var _ Splitter = (*Regexp)(nil)

// Compile builds a splitter for pattern.
func Compile(pattern string) (*Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	expanded := Expand(pattern)
	re, err := regexp2.Compile(expanded, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
	}

	return &Regexp{pattern: pattern, expanded: expanded, re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Regexp {
	r, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the pattern passed to Compile.
func (r *Regexp) Pattern() string { return r.pattern }

// Expanded returns the pattern as handed to regexp2, with possessive
// quantifiers rewritten to atomic groups.
func (r *Regexp) Expanded() string { return r.expanded }

// Split returns the matches of the pattern in order, together with any
// unmatched text between them. Empty matches are dropped.
func (r *Regexp) Split(text string) []string {
	if text == "" {
		return nil
	}

	// regexp2 reports positions in runes; offsets maps them back to bytes.
	// Ranging over a string and converting it to []rune agree on how
	// invalid UTF-8 is split, so every byte is accounted for.
	runes := []rune(text)
	offsets := make([]int, 0, len(runes)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	var chunks []string
	last := 0
	m, err := r.re.FindRunesMatch(runes)
	for m != nil && err == nil {
		if m.Length > 0 {
			start, end := offsets[m.Index], offsets[m.Index+m.Length]
			if start > last {
				chunks = append(chunks, text[last:start])
			}
			chunks = append(chunks, text[start:end])
			last = end
		}
		m, err = r.re.FindNextMatch(m)
	}
	if err != nil {
		slog.Warn("split pattern failed, keeping remaining text as one chunk", "pattern", r.pattern, "error", err)
	}
	if last < len(text) {
		chunks = append(chunks, text[last:])
	}

	return chunks
}
