// Package cache stores builds between processing runs so that models which
// were already fetched are not requested from the server again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// ErrInvalidID is returned for a build id that cannot name a cache entry.
var ErrInvalidID = errors.New("invalid build id")

// ValidateID rejects ids that would escape a tier's directory or key prefix
// once joined into a path: empty ids, ids containing a path separator or a
// NUL byte, and ids containing "..".
func ValidateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\\x00") || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Cache is the storage contract shared by every tier.
//
// Load reports a hit only when the stored build satisfies required, so a
// build that exists but lacks a required model is a miss. Save replaces any
// previous copy of the build wholesale: a save with fewer models than the
// stored copy drops the extra models.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error)
	Save(ctx context.Context, b *model.Build) error
}

// Noop is a Cache that never hits and discards every save (used when no
// cache is configured).
type Noop struct{}

func (Noop) Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error) {
	return nil, false, nil
}

func (Noop) Save(ctx context.Context, b *model.Build) error {
	return nil
}
