package ops

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/bssh/internal/errors"
)

// writeAtomic streams fill into a sibling temp file and renames it over
// dest once fill and fsync succeed. The temp file is removed on any failure.
func writeAtomic(dest string, fill func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tmp := dest + "." + hex.EncodeToString(suffix) + ".tmp"

	f, err := openFileNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create temp file: %w", err))
	}
	keep := false
	defer func() {
		if f != nil {
			_ = f.Close()
		}
		if !keep {
			_ = os.Remove(tmp)
		}
	}()

	if err := fill(f); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Windows refuses to rename an open file.
	err = f.Close()
	f = nil
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close temp file: %w", err))
	}

	if isSymlink(dest) {
		return errors.NewInvalidRequest("destination is a symlink")
	}
	if err := os.Rename(tmp, dest); err != nil {
		if _, statErr := os.Stat(dest); statErr == nil && runtime.GOOS == "windows" {
			return errors.NewInvalidRequest("destination already exists; choose a new path or delete the existing file")
		}
		return errors.NewInternal(fmt.Errorf("failed to move file into place: %w", err))
	}
	keep = true
	return nil
}
