package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
)

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("failed to generate temp file name: %w", err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return err
	}
	file = nil

	// os.Rename would follow a symlink at the destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("destination %s is a symlink", path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			// Windows cannot rename over an existing file
			if rmErr := os.Remove(path); rmErr == nil {
				err = os.Rename(tempPath, path)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to finalize %s: %w", path, err)
		}
	}
	success = true
	return nil
}
