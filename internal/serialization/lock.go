package serialization

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/born-ml/bpe/internal/envconfig"
)

const lockSuffix = ".lock"

// execOnFileLock runs fn while holding an exclusive advisory lock on lockPath,
// polling until the lock is free.
func execOnFileLock(lockPath string, fn func() error) (err error) {
	fileLock := flock.New(lockPath)

	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("while trying to lock %q: %w", lockPath, err)
		}
		if locked {
			break
		}
		// Wait from 50 to 100 milliseconds.
		time.Sleep(time.Millisecond * time.Duration(50+rand.IntN(50)))
	}

	// Unlock even if fn panics.
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = fmt.Errorf("unlocking file %q: %w", lockPath, unlockErr)
			} else {
				slog.Error("unlocking file", "path", lockPath, "error", unlockErr)
			}
		}
	}()

	return fn()
}

// writeFileAtomic writes path through a temporary file that is renamed into
// place under the path's lock. BPE_TMPDIR moves the temporary file; it must be
// on the same filesystem as path. The lock file is removed after a successful
// write.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmpDir := envconfig.TmpDir
	if tmpDir == "" {
		tmpDir = dir
	}

	lockPath := path + lockSuffix
	err := execOnFileLock(lockPath, func() error {
		tmp, err := os.CreateTemp(tmpDir, filepath.Base(path)+".tmp-*")
		if err != nil {
			return fmt.Errorf("failed to create temporary file: %w", err)
		}
		tmpName := tmp.Name()
		committed := false
		defer func() {
			if !committed {
				_ = tmp.Close()
				_ = os.Remove(tmpName)
			}
		}()

		bw := bufio.NewWriter(tmp)
		if err := write(bw); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("failed to flush %q: %w", tmpName, err)
		}
		if err := tmp.Sync(); err != nil {
			return fmt.Errorf("failed to sync %q: %w", tmpName, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to close %q: %w", tmpName, err)
		}
		if err := os.Rename(tmpName, path); err != nil {
			_ = os.Remove(tmpName)
			committed = true
			return fmt.Errorf("failed to rename into %q: %w", path, err)
		}
		committed = true

		slog.Debug("wrote file", "path", path)
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove lock file", "path", lockPath, "error", err)
	}
	return nil
}
