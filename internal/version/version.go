// Package version holds the release version stamped into saved tokenizers.
package version

// Version is overridden at link time with -ldflags "-X github.com/born-ml/bpe/internal/version.Version=...".
var Version = "0.1.0-dev"
