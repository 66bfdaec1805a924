package serialization

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

// TestComputeChecksumReader verifies the streamed checksum matches the direct one.
func TestComputeChecksumReader(t *testing.T) {
	data := []byte{0x68, 0, 0, 0, 0x65, 0, 0, 0, 0, 1, 0, 0, 0x20, 0, 0, 0}

	checksum, err := ComputeChecksumReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ComputeChecksumReader failed: %v", err)
	}
	if checksum != ComputeChecksum(data) {
		t.Error("Reader checksum should match direct checksum")
	}
}

// TestValidateChecksum verifies checksum validation.
func TestValidateChecksum(t *testing.T) {
	checksum := ComputeChecksum([]byte("merges"))

	if err := ValidateChecksum(checksum, checksum); err != nil {
		t.Errorf("Expected no error for matching checksums, got: %v", err)
	}

	wrong := checksum
	wrong[0] ^= 0xff
	if err := ValidateChecksum(checksum, wrong); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got: %v", err)
	}
}

// TestEmptyMergeSectionChecksum pins the checksum stored for an untrained tokenizer.
func TestEmptyMergeSectionChecksum(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	checksum := ComputeChecksum(nil)
	if got := hex.EncodeToString(checksum[:]); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
