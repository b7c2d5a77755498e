package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/client"
	"github.com/alfredjeanlab/buildproc/internal/model"
)

// run holds the state of a single Process call.
type run struct {
	p      *Processor
	id     string
	query  string
	logger *slog.Logger

	// backoffs counts how often the server rejected a request as too large.
	backoffs int
	// uncached counts builds since the cursor that still need fetching.
	uncached int
	// cursor is the id of the last build handed to the listeners.
	cursor string

	cached  int
	fetched int
}

func (r *run) batchSize() int {
	return shrink(r.p.cfg.MaxBuildsPerRequest, r.p.cfg.BackoffFactor, r.backoffs)
}

func (r *run) pageSize() int {
	return shrink(r.p.cfg.DiscoveryPageSize, r.p.cfg.BackoffFactor, r.backoffs)
}

// discover lists builds newest first until it reaches one older than since.
func (r *run) discover(ctx context.Context, since time.Time) ([]*model.Build, error) {
	sinceMs := since.UnixMilli()
	var (
		builds []*model.Build
		cursor string
	)
	for {
		page, backedOff, err := r.fetch(ctx, client.BuildsQuery{
			Query:     r.query,
			MaxBuilds: r.pageSize(),
			FromBuild: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("discovering builds: %w", err)
		}
		if backedOff {
			continue
		}
		if len(page) == 0 {
			return builds, nil
		}
		if page[len(page)-1].AvailableAt < sinceMs {
			for _, b := range page {
				if b.AvailableAt >= sinceMs {
					builds = append(builds, b)
				}
			}
			return builds, nil
		}
		builds = append(builds, page...)
		cursor = page[len(page)-1].ID
	}
}

// reconcile walks the discovered builds in order, serving cache hits
// directly and batching runs of misses into fetches. Builds are dispatched
// strictly in discovery order.
func (r *run) reconcile(ctx context.Context, discovered []*model.Build) error {
	c := r.p.cfg.Cache
	required := r.p.required

	for _, b := range discovered {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("processing builds: %w", err)
		}
		if required.IsEmpty() {
			r.onFetched(b)
			continue
		}

		cached, hit, err := c.Load(ctx, b.ID, required)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("processing builds: %w", ctx.Err())
			}
			r.logger.Warn("cache load failed", "build_id", b.ID, "error", err)
			hit = false
		}

		if r.uncached >= r.batchSize() || (hit && r.uncached > 0) {
			if err := r.flush(ctx); err != nil {
				return err
			}
		}

		if hit {
			r.onCached(cached)
			r.cursor = b.ID
		} else {
			r.uncached++
		}
	}

	if r.uncached > 0 {
		return r.flush(ctx)
	}
	return nil
}

// flush fetches the pending uncached builds that follow the cursor.
func (r *run) flush(ctx context.Context) error {
	for r.uncached > 0 {
		n := min(r.batchSize(), r.uncached)
		builds, backedOff, err := r.fetch(ctx, client.BuildsQuery{
			Query:     r.query,
			MaxBuilds: n,
			FromBuild: r.cursor,
			Models:    r.p.required,
		})
		if err != nil {
			return fmt.Errorf("fetching uncached builds: %w", err)
		}
		if backedOff {
			continue
		}
		if len(builds) == 0 {
			r.logger.Warn("server returned no builds for pending batch", "pending", r.uncached, "cursor", r.cursor)
			r.uncached = 0
			return nil
		}
		if len(builds) > n {
			builds = builds[:n]
		}
		for _, b := range builds {
			if err := r.p.cfg.Cache.Save(ctx, b); err != nil {
				r.logger.Warn("cache save failed", "build_id", b.ID, "error", err)
			}
			r.cursor = b.ID
			r.uncached--
			r.onFetched(b)
		}
	}
	return nil
}

func (r *run) onCached(b *model.Build) {
	r.cached++
	r.emit(func(l ProcessListener) {
		if l.OnCached != nil {
			l.OnCached(CachedBuild{Time: r.p.cfg.Now(), RunID: r.id, Build: b})
		}
	})
	r.dispatch(b)
}

func (r *run) onFetched(b *model.Build) {
	r.fetched++
	r.emit(func(l ProcessListener) {
		if l.OnFetched != nil {
			l.OnFetched(FetchedBuild{Time: r.p.cfg.Now(), RunID: r.id, Build: b})
		}
	})
	r.dispatch(b)
}

func (r *run) dispatch(b *model.Build) {
	for _, l := range r.p.cfg.BuildListeners {
		l.dispatch(b)
	}
}

func (r *run) emit(fn func(ProcessListener)) {
	for _, l := range r.p.cfg.ProcessListeners {
		fn(l)
	}
}
