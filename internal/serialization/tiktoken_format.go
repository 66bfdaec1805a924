package serialization

import (
	"bufio"
	"cmp"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/pretokenize"
)

// WriteTiktoken writes ranks as "<base64 bytes> <rank>" lines.
func WriteTiktoken(w io.Writer, ranks []bpe.RankEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range ranks {
		if _, err := fmt.Fprintf(bw, "%s %d\n", base64.StdEncoding.EncodeToString(e.Bytes), e.Rank); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTiktoken parses a .tiktoken rank table and returns it sorted by rank.
func ReadTiktoken(r io.Reader) ([]bpe.RankEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxHeaderSize)

	var out []bpe.RankEntry
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		token, rank, ok := strings.Cut(text, " ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: want \"<base64> <rank>\"", ErrMalformedLine, line)
		}
		b, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedLine, line, err)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(rank), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedLine, line, err)
		}
		out = append(out, bpe.RankEntry{Bytes: b, Rank: bpe.Rank(n)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b bpe.RankEntry) int { return cmp.Compare(a.Rank, b.Rank) })
	return out, nil
}

// SaveTiktoken writes tok's mergeable ranks to path, atomically.
func SaveTiktoken(path string, tok *bpe.Tokenizer) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteTiktoken(w, tok.MergeableRanks())
	})
}

// LoadTiktoken reads a .tiktoken rank table and rebuilds its merges. The
// format stores no pattern, so the splitter must be supplied.
func LoadTiktoken(path string, splitter pretokenize.Splitter) (*bpe.Tokenizer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for tokenizer loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ranks, err := ReadTiktoken(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bpe.FromRanks(ranks, splitter)
}
