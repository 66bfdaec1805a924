package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/born-ml/bpe/internal/bpe"
	"github.com/born-ml/bpe/internal/version"
)

// Write encodes tok in .bpe format. The derived header fields (version,
// pattern, sizes) are filled in from tok; RunID, CreatedAt and Metadata are
// taken from header, and CreatedAt defaults to now.
func Write(w io.Writer, tok *bpe.Tokenizer, header Header) error {
	merges := tok.Merges()

	data := make([]byte, len(merges)*PairSize)
	for i, m := range merges {
		binary.LittleEndian.PutUint32(data[i*PairSize:], m.Pair.Left)
		binary.LittleEndian.PutUint32(data[i*PairSize+4:], m.Pair.Right)
	}
	checksum := ComputeChecksum(data)

	header.FormatVersion = FormatVersion
	header.BPEVersion = version.Version
	header.Pattern = tok.Pattern()
	header.VocabSize = tok.VocabSize()
	header.NumMerges = len(merges)
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	if err := ValidateMetadata(header.Metadata); err != nil {
		return err
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], header.flags())
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerEnd := int64(FixedHeaderSize) + int64(len(headerJSON))
	if padding := dataOffset(int64(len(headerJSON))) - headerEnd; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write merges: %w", err)
	}
	return nil
}

// Save writes tok to path in .bpe format. The file is replaced atomically.
func Save(path string, tok *bpe.Tokenizer, header Header) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return Write(w, tok, header)
	})
}
