// Package serialization saves and loads trained tokenizers.
//
// Two formats are supported. The native .bpe format stores the merge list in
// rank order together with the split pattern:
//
//	Fixed header (64 bytes):
//	  0x00 [4 bytes: Magic "BBPE"]
//	  0x04 [4 bytes: Version (uint32 LE)]
//	  0x08 [4 bytes: Flags (uint32 LE)]
//	  0x0C [4 bytes: Reserved]
//	  0x10 [8 bytes: Header Size (uint64 LE)]
//	  0x18 [8 bytes: Data Size (uint64 LE)]
//	  0x20 [32 bytes: SHA-256 of the data section]
//	0x40 [Header: JSON metadata]
//	     [Padding to 64 bytes]
//	     [Data: one (left, right) uint32 LE pair per merge, rank order]
//
// The .tiktoken text format lists every token as "<base64 bytes> <rank>",
// one per line. It carries no merge list; merges are recovered on load.
//
// Files are written to a temporary file and renamed into place while holding
// an advisory lock on "<path>.lock", so concurrent writers never leave a torn
// file behind.
//
// Example usage:
//
//	if err := serialization.Save("tok.bpe", tok, serialization.Header{RunID: id}); err != nil {
//	    log.Fatal(err)
//	}
//	tok, header, err := serialization.Load("tok.bpe", serialization.ReaderOptions{})
package serialization
