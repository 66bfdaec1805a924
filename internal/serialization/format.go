package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "BBPE"
	FormatVersion   = 1
	HeaderAlignment = 64   // Merge data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	PairSize        = 8    // Two uint32 ranks per merge
)

// Flags for the .bpe format.
const (
	FlagHasPattern  uint32 = 1 << 0 // bit 0: header carries a split pattern
	FlagHasRunID    uint32 = 1 << 1 // bit 1: header carries a training run id
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .bpe file.
type Header struct {
	FormatVersion int               `json:"format_version"`   // Version of the .bpe format
	BPEVersion    string            `json:"bpe_version"`      // Version of the library that wrote the file
	Pattern       string            `json:"pattern"`          // Pre-tokenization regex; empty for whole-text splitting
	VocabSize     int               `json:"vocab_size"`       // 256 + NumMerges
	NumMerges     int               `json:"num_merges"`       // Number of merge pairs in the data section
	CreatedAt     time.Time         `json:"created_at"`       // When the file was written
	RunID         string            `json:"run_id,omitempty"` // Training session that produced the merges
	Metadata      map[string]string `json:"metadata"`         // Custom metadata
}

// flags derives the fixed-header flag bits from h.
func (h *Header) flags() uint32 {
	var f uint32
	if h.Pattern != "" {
		f |= FlagHasPattern
	}
	if h.RunID != "" {
		f |= FlagHasRunID
	}
	if len(h.Metadata) > 0 {
		f |= FlagHasMetadata
	}
	return f
}

// dataOffset returns where the merge data starts for a JSON header of the given size.
func dataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	padding := (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
	return pos + padding
}
