package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// Composite chains caches, cheapest first. A hit in a later cache is copied
// into every cache ahead of it. A failing cache does not hide the caches
// behind it: its error is logged and the next one is checked.
type Composite struct {
	caches []Cache
	logger *slog.Logger
}

// NewComposite creates a composite that checks caches in the given order.
func NewComposite(caches ...Cache) *Composite {
	return &Composite{caches: append([]Cache(nil), caches...), logger: slog.Default()}
}

// WithLogger sets the logger used for cache failures that do not fail a
// Load.
func (c *Composite) WithLogger(logger *slog.Logger) *Composite {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// FirstChecking starts a composite with c as its first cache.
func FirstChecking(c Cache) *Composite {
	return NewComposite(c)
}

// FollowedBy returns a composite that checks next after the existing caches.
func (c *Composite) FollowedBy(next Cache) *Composite {
	return NewComposite(append(append([]Cache(nil), c.caches...), next)...).WithLogger(c.logger)
}

// Load returns the first hit. Load errors are returned only when no cache
// hits; failed backfills are logged.
func (c *Composite) Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error) {
	var errs []error
	for i, cache := range c.caches {
		b, ok, err := cache.Load(ctx, id, required)
		if err != nil {
			c.logger.Warn("cache load failed, checking next cache", "cache", i, "build_id", id, "err", err)
			errs = append(errs, fmt.Errorf("cache %d: %w", i, err))
			continue
		}
		if !ok {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if err := c.caches[j].Save(ctx, b); err != nil {
				c.logger.Warn("cache backfill failed", "cache", j, "build_id", id, "err", err)
			}
		}
		return b, true, nil
	}
	return nil, false, errors.Join(errs...)
}

// Save writes b to every cache. Every cache is attempted even when an
// earlier one fails.
func (c *Composite) Save(ctx context.Context, b *model.Build) error {
	var errs []error
	for i, cache := range c.caches {
		if err := cache.Save(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("cache %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
