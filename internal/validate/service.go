package validate

import (
	"fmt"
	"os"
)

// FilePath checks that path is non-empty and refers to an existing
// regular file, so a `send` command's file list fails with one clear
// error instead of an opaque stat error partway through a batch.
func FilePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidFilePath)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFilePath, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory, not a file", ErrInvalidFilePath, path)
	}
	return nil
}
