package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFilePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(file, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := FilePath(file); err != nil {
		t.Errorf("FilePath(%q) = %v, want nil", file, err)
	}
}

func TestFilePath_Empty(t *testing.T) {
	if err := FilePath(""); !errors.Is(err, ErrInvalidFilePath) {
		t.Errorf("err = %v, want ErrInvalidFilePath", err)
	}
}

func TestFilePath_Missing(t *testing.T) {
	if err := FilePath("/nonexistent/nope.bin"); !errors.Is(err, ErrInvalidFilePath) {
		t.Errorf("err = %v, want ErrInvalidFilePath", err)
	}
}

func TestFilePath_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := FilePath(dir); !errors.Is(err, ErrInvalidFilePath) {
		t.Errorf("err = %v, want ErrInvalidFilePath", err)
	}
}
