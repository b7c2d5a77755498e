// Package store defines durable build storage that outlives a single host,
// used as the slowest tier of the cache chain.
package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/cache"
)

// Store is a cache tier with housekeeping operations.
type Store interface {
	cache.Cache

	// Delete removes the build with the given id. Deleting a missing id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored builds.
	Count(ctx context.Context) (int, error)

	// Prune removes builds last saved before the given time and returns how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
