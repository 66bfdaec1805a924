package pretokenize

import "errors"

// ErrInvalidPattern is returned when a split pattern is empty or does not compile.
var ErrInvalidPattern = errors.New("invalid split pattern")

// Splitter divides text into chunks. Implementations must be pure: the same
// text always yields the same chunks, and the chunks concatenate to the text.
type Splitter interface {
	Split(text string) []string
	// Pattern returns the source pattern, or "" for splitters without one.
	Pattern() string
}

// Func adapts a plain function to the Splitter interface.
type Func func(text string) []string

// Split calls f(text).
func (f Func) Split(text string) []string { return f(text) }

// Pattern returns "".
func (f Func) Pattern() string { return "" }

// Whole returns a splitter that keeps the entire text as a single chunk.
func Whole() Splitter {
	return Func(func(text string) []string {
		if text == "" {
			return nil
		}
		return []string{text}
	})
}
