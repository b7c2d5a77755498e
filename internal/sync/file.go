package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes JSONL data to a local file, replacing it atomically.
type FileDestination struct {
	path string
}

func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("rename to %s: %w", d.path, err)
	}
	return nil
}
