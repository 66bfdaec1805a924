package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/pretokenize"
)

// ReaderOptions configures .bpe reading behavior.
type ReaderOptions struct {
	// SkipChecksumValidation disables the SHA-256 check of the merge data.
	SkipChecksumValidation bool

	// ValidationLevel controls header validation strictness.
	ValidationLevel ValidationLevel

	// Splitter overrides the pattern stored in the header. Needed for
	// tokenizers trained with a custom, pattern-less splitter.
	Splitter pretokenize.Splitter
}

// Load memory-maps path and reads a .bpe tokenizer from it.
func Load(path string, opts ReaderOptions) (*bpe.Tokenizer, Header, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = r.Close() }()

	return Read(r, int64(r.Len()), opts)
}

// Read decodes a .bpe tokenizer of the given total size from r.
func Read(r io.ReaderAt, size int64, opts ReaderOptions) (*bpe.Tokenizer, Header, error) {
	var header Header

	if size < FixedHeaderSize {
		return nil, header, fmt.Errorf("%w: %d bytes, fixed header needs %d", ErrTruncated, size, FixedHeaderSize)
	}
	fixed := make([]byte, FixedHeaderSize)
	if _, err := r.ReadAt(fixed, 0); err != nil {
		return nil, header, fmt.Errorf("failed to read fixed header: %w", err)
	}

	// 0x00-0x03: magic
	if string(fixed[0:4]) != MagicBytes {
		return nil, header, fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, fixed[0:4], MagicBytes)
	}
	// 0x04-0x07: version
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, header, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	// 0x08-0x0B: flags
	flags := binary.LittleEndian.Uint32(fixed[8:12])
	// 0x10-0x17: header size
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	// 0x18-0x1F: data size
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	// 0x20-0x3F: SHA-256 checksum
	var checksum [32]byte
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, header, ErrHeaderTooLarge
	}
	if dataSize > uint64(MaxMerges)*PairSize {
		return nil, header, &ValidationError{
			Type:    "data_size",
			Details: fmt.Sprintf("%d bytes exceeds %d merges", dataSize, MaxMerges),
		}
	}

	//nolint:gosec // G115: both sizes are bounded above
	offset, dataLen := dataOffset(int64(headerSize)), int64(dataSize)
	if offset+dataLen > size {
		return nil, header, fmt.Errorf("%w: data ends at %d, file has %d bytes", ErrTruncated, offset+dataLen, size)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := r.ReadAt(headerBytes, FixedHeaderSize); err != nil {
		return nil, header, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, header, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&header, flags, dataLen, opts.ValidationLevel); err != nil {
		return nil, header, err
	}

	section := io.NewSectionReader(r, offset, dataLen)
	if !opts.SkipChecksumValidation {
		computed, err := ComputeChecksumReader(section)
		if err != nil {
			return nil, header, fmt.Errorf("failed to read merges for checksum: %w", err)
		}
		if err := ValidateChecksum(computed, checksum); err != nil {
			return nil, header, err
		}
	}

	data := make([]byte, dataLen)
	if dataLen > 0 {
		if _, err := section.ReadAt(data, 0); err != nil {
			return nil, header, fmt.Errorf("failed to read merges: %w", err)
		}
	}
	merges := make([]bpe.Pair, dataLen/PairSize)
	for i := range merges {
		merges[i] = bpe.Pair{
			Left:  binary.LittleEndian.Uint32(data[i*PairSize:]),
			Right: binary.LittleEndian.Uint32(data[i*PairSize+4:]),
		}
	}

	splitter, err := headerSplitter(&header, opts)
	if err != nil {
		return nil, header, err
	}
	tok, err := bpe.NewTokenizer(splitter, merges)
	if err != nil {
		return nil, header, fmt.Errorf("invalid merge list: %w", err)
	}
	return tok, header, nil
}

func headerSplitter(h *Header, opts ReaderOptions) (pretokenize.Splitter, error) {
	if opts.Splitter != nil {
		return opts.Splitter, nil
	}
	if h.Pattern == "" {
		return pretokenize.Whole(), nil
	}
	re, err := pretokenize.Compile(h.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bpe.ErrInvalidConfig, err)
	}
	return re, nil
}
