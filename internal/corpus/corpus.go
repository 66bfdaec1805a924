// Package corpus streams training documents from text files and parquet shards.
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/exp/mmap"
)

// ErrUnsupportedFile is returned for paths that are neither text nor parquet.
var ErrUnsupportedFile = errors.New("unsupported corpus file")

const (
	extText    = ".txt"
	extParquet = ".parquet"

	defaultBatchSize = 1024
	maxParagraph     = 1024 * 1024
	minParagraph     = 4096
)

// Row is the parquet schema read from shards: a single "text" column.
type Row struct {
	Text string `parquet:"text,optional"`
}

// Loader reads documents in file order. Text files yield one document per
// blank-line separated paragraph, with paragraphs over 1MB (or 4*DocCap
// bytes) split at line breaks; parquet shards yield one per row. Each
// iteration of Documents starts the counters over.
type Loader struct {
	// MaxChars stops iteration once this many characters have been yielded.
	// Zero means no limit.
	MaxChars int64
	// DocCap truncates each document to this many characters. Zero means no cap.
	DocCap int
	// BatchSize is the number of parquet rows read at a time.
	BatchSize int

	chars int64
	docs  int64
	err   error
}

// Err returns the first error that ended iteration early.
func (l *Loader) Err() error { return l.err }

// Chars returns the number of characters yielded so far.
func (l *Loader) Chars() int64 { return l.chars }

// Docs returns the number of documents yielded so far.
func (l *Loader) Docs() int64 { return l.docs }

// Files expands directories into their .txt and .parquet files, sorted by name.
func Files(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case extText, extParquet:
				if !e.IsDir() {
					out = append(out, filepath.Join(p, e.Name()))
				}
			}
		}
	}
	return out, nil
}

// Documents yields documents from paths in order. Check Err after the loop.
func (l *Loader) Documents(paths ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		l.chars, l.docs, l.err = 0, 0, nil

		files, err := Files(paths...)
		if err != nil {
			l.err = err
			return
		}

		emit := func(doc string) bool {
			if l.DocCap > 0 {
				doc = truncate(doc, l.DocCap)
			}
			if !yield(doc) {
				return false
			}
			l.docs++
			l.chars += int64(utf8.RuneCountInString(doc))
			return l.MaxChars <= 0 || l.chars < l.MaxChars
		}

		for _, f := range files {
			slog.Debug("reading corpus file", "path", f, "docs", l.docs, "chars", l.chars)

			var more bool
			switch filepath.Ext(f) {
			case extText:
				more, err = l.readText(f, emit)
			case extParquet:
				more, err = l.readParquet(f, emit)
			default:
				err = fmt.Errorf("%w: %s", ErrUnsupportedFile, f)
			}
			if err != nil {
				l.err = fmt.Errorf("%s: %w", f, err)
				return
			}
			if !more {
				return
			}
		}
	}
}

func (l *Loader) readText(path string, emit func(string) bool) (bool, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = r.Close() }()

	limit := l.paragraphLimit()
	sc := bufio.NewScanner(io.NewSectionReader(r, 0, int64(r.Len())))
	sc.Buffer(make([]byte, 0, 64*1024), 2*limit)
	sc.Split(paragraphSplitter(limit))
	for sc.Scan() {
		if !emit(sc.Text()) {
			return false, nil
		}
	}
	return true, sc.Err()
}

func (l *Loader) readParquet(path string, emit func(string) bool) (bool, error) {
	//nolint:gosec // G304: corpus paths come from the command line
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	reader := parquet.NewGenericReader[Row](f)
	defer func() { _ = reader.Close() }()

	batch := l.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	rows := make([]Row, batch)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			if !emit(row.Text) {
				return false, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// paragraphLimit is the longest paragraph, in bytes, read as one document.
// With a DocCap, anything past the cap is truncated anyway.
func (l *Loader) paragraphLimit() int {
	if l.DocCap > 0 && l.DocCap < maxParagraph/utf8.UTFMax {
		return max(l.DocCap*utf8.UTFMax, minParagraph)
	}
	return maxParagraph
}

// paragraphSplitter returns a bufio.SplitFunc that yields text separated by
// one or more blank lines, with LF or CRLF line endings. A paragraph longer
// than limit bytes is cut at its last line break before the limit, or at a
// rune boundary if it has none. Empty paragraphs are skipped.
func paragraphSplitter(limit int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		start := 0
		for start < len(data) && (data[start] == '\n' || data[start] == '\r') {
			start++
		}

		for i := start; i < len(data) && i-start <= limit; i++ {
			if data[i] != '\n' {
				continue
			}
			j := i + 1
			if j < len(data) && data[j] == '\r' {
				j++
			}
			if j < len(data) && data[j] == '\n' {
				return j + 1, bytes.TrimRight(data[start:i], "\r\n"), nil
			}
		}

		if len(data)-start >= limit {
			window := data[start : start+limit]
			if cut := bytes.LastIndexByte(window, '\n'); cut > 0 {
				return start + cut + 1, bytes.TrimRight(window[:cut], "\r\n"), nil
			}
			cut := limit
			for cut > 0 && start+cut < len(data) && !utf8.RuneStart(data[start+cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			return start + cut, window[:cut], nil
		}

		if atEOF {
			if start == len(data) {
				return len(data), nil, nil
			}
			return len(data), bytes.TrimRight(data[start:], "\r\n"), nil
		}
		return start, nil, nil
	}
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Describe returns a one-line summary of what l has read.
func (l *Loader) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d documents, %d characters", l.docs, l.chars)
	if l.MaxChars > 0 {
		fmt.Fprintf(&b, " (budget %d)", l.MaxChars)
	}
	return b.String()
}
