package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// DefaultGranularity is the number of leading id characters used to name a
// partition directory.
const DefaultGranularity = 2

// Strategy maps a build id to the file that stores it. Path fails for ids
// that cannot be stored.
type Strategy interface {
	Path(id string) (string, error)
}

// Partitioning stores each build at Root/id[0:Granularity]/id.json so that
// no single directory grows without bound.
type Partitioning struct {
	Root        string
	Granularity int
}

// NewPartitioning returns a partitioning strategy rooted at root with the
// default granularity.
func NewPartitioning(root string) Partitioning {
	return Partitioning{Root: root, Granularity: DefaultGranularity}
}

func (p Partitioning) Path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	g := p.Granularity
	if g <= 0 {
		g = DefaultGranularity
	}
	prefix := id
	if len(id) > g {
		prefix = id[:g]
	}
	path := filepath.Join(p.Root, prefix, id+".json")
	rel, err := filepath.Rel(filepath.Clean(p.Root), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside %s", ErrInvalidID, id, p.Root)
	}
	return path, nil
}

// DefaultRoot returns the default cache directory, ~/.buildproc/cache.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".buildproc", "cache"), nil
}

// FileSystem stores one JSON document per build on local disk.
type FileSystem struct {
	strategy Strategy
	logger   *slog.Logger
}

// NewFileSystem creates a filesystem cache laid out by strategy.
func NewFileSystem(strategy Strategy, logger *slog.Logger) *FileSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSystem{strategy: strategy, logger: logger}
}

// Load reads the build for id. A file that cannot be decoded is removed and
// reported as a miss.
func (c *FileSystem) Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error) {
	path, err := c.strategy.Path(id)
	if err != nil {
		c.logger.Warn("ignoring cache lookup", "build_id", id, "err", err)
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var b model.Build
	if err := json.Unmarshal(data, &b); err != nil || b.ID != id {
		c.logger.Warn("removing unreadable cache entry", "build_id", id, "path", path, "err", err)
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.Warn("removing cache entry failed", "path", path, "err", rmErr)
		}
		return nil, false, nil
	}
	if !b.Satisfies(required) {
		return nil, false, nil
	}
	return &b, true, nil
}

// Save writes the full build document, replacing any previous file. The
// document is written to a temporary file and renamed into place so readers
// never observe a partial write.
func (c *FileSystem) Save(ctx context.Context, b *model.Build) error {
	path, err := c.strategy.Path(b.ID)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding build %s: %w", b.ID, err)
	}

	tmp, err := os.CreateTemp(dir, b.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
