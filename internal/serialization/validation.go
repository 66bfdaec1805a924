package serialization

import (
	"fmt"
	"strings"

	"github.com/born-ml/bpe/internal/bpe"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize   = 16 * 1024 * 1024 // 16MB - maximum header size
	MaxMerges       = 1 << 24          // Maximum number of merges in a file
	MaxMetadataSize = 1024 * 1024      // 1MB - maximum metadata size
	MaxMetadataKey  = 256              // Maximum metadata key length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default, recommended for production).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks only the sizes needed to read the file safely.
	ValidationNormal
	// ValidationNone skips validation (dangerous! Use only with trusted input).
	ValidationNone
)

// ValidateSizes checks that the merge data described by h fits in dataSize.
// A mismatch means the header and data section disagree, so reading either
// would produce a different tokenizer than the one that was saved.
func ValidateSizes(h *Header, dataSize int64) error {
	if h.NumMerges < 0 || h.NumMerges > MaxMerges {
		return &ValidationError{
			Type:    "merge_count",
			Field:   "num_merges",
			Details: fmt.Sprintf("got %d, max %d", h.NumMerges, MaxMerges),
		}
	}
	if want := int64(h.NumMerges) * PairSize; want != dataSize {
		return &ValidationError{
			Type:    "data_size",
			Field:   "num_merges",
			Details: fmt.Sprintf("%d merges need %d bytes, data section has %d", h.NumMerges, want, dataSize),
		}
	}
	return nil
}

// ValidateMetadata rejects oversized or binary metadata.
func ValidateMetadata(meta map[string]string) error {
	var total int
	for k, v := range meta {
		if k == "" || len(k) > MaxMetadataKey {
			return &ValidationError{
				Type:    "invalid_metadata",
				Field:   k,
				Details: fmt.Sprintf("key length %d, must be 1..%d", len(k), MaxMetadataKey),
			}
		}
		if strings.ContainsRune(k, 0) || strings.ContainsRune(v, 0) {
			return &ValidationError{
				Type:    "invalid_metadata",
				Field:   k,
				Details: "contains null byte",
			}
		}
		total += len(k) + len(v)
	}
	if total > MaxMetadataSize {
		return &ValidationError{
			Type:    "metadata_too_large",
			Details: fmt.Sprintf("%d bytes, max %d", total, MaxMetadataSize),
		}
	}
	return nil
}

// ValidateHeader performs comprehensive header validation.
func ValidateHeader(h *Header, flags uint32, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if err := ValidateSizes(h, dataSize); err != nil {
		return err
	}
	if level != ValidationStrict {
		return nil
	}

	if h.FormatVersion != FormatVersion {
		return &ValidationError{
			Type:    "version_mismatch",
			Field:   "format_version",
			Details: fmt.Sprintf("header says %d, fixed header says %d", h.FormatVersion, FormatVersion),
		}
	}
	if want := bpe.NumBytes + h.NumMerges; h.VocabSize != want {
		return &ValidationError{
			Type:    "vocab_size",
			Field:   "vocab_size",
			Details: fmt.Sprintf("got %d, want %d for %d merges", h.VocabSize, want, h.NumMerges),
		}
	}
	if got := h.flags(); got != flags {
		return &ValidationError{
			Type:    "flags_mismatch",
			Details: fmt.Sprintf("fixed header flags %#x, header implies %#x", flags, got),
		}
	}
	return ValidateMetadata(h.Metadata)
}
