// Package envconfig reads BPE_* environment variables.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via BPE_DEBUG in the environment
	Debug bool
	// Set via BPE_TRACE in the environment
	Trace bool
	// Set via BPE_NUM_WORKERS in the environment
	NumWorkers int
	// Set via BPE_LOG_INTERVAL in the environment
	LogInterval int
	// Set via BPE_TMPDIR in the environment
	TmpDir string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BPE_DEBUG":        {"BPE_DEBUG", Debug, "Show additional debug information (e.g. BPE_DEBUG=1)"},
		"BPE_TRACE":        {"BPE_TRACE", Trace, "Log every merge as it is learned"},
		"BPE_NUM_WORKERS":  {"BPE_NUM_WORKERS", NumWorkers, "Worker goroutines for pre-tokenization and counting (default: number of CPUs)"},
		"BPE_LOG_INTERVAL": {"BPE_LOG_INTERVAL", LogInterval, "Merges between training progress lines (default 1000)"},
		"BPE_TMPDIR":       {"BPE_TMPDIR", TmpDir, "Location for temporary files written before rename"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = false
	if debug := clean("BPE_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	Trace = false
	if trace := clean("BPE_TRACE"); trace != "" {
		d, err := strconv.ParseBool(trace)
		if err == nil {
			Trace = d
		} else {
			Trace = true
		}
	}

	NumWorkers = 0
	if nw := clean("BPE_NUM_WORKERS"); nw != "" {
		val, err := strconv.Atoi(nw)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "BPE_NUM_WORKERS", nw, "error", err)
		} else {
			NumWorkers = val
		}
	}

	LogInterval = 1000
	if li := clean("BPE_LOG_INTERVAL"); li != "" {
		val, err := strconv.Atoi(li)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "BPE_LOG_INTERVAL", li, "error", err)
		} else {
			LogInterval = val
		}
	}

	TmpDir = clean("BPE_TMPDIR")
}
