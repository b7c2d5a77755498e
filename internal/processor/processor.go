// Package processor discovers the builds published since a point in time,
// serves what it can from the cache, fetches the rest from the server in
// batches and hands every build to the registered listeners.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/client"
	"github.com/alfredjeanlab/buildproc/internal/idgen"
	"github.com/alfredjeanlab/buildproc/internal/model"
)

// Processor runs processing passes against one server. A Processor holds no
// per-run state, so Process may be called concurrently.
type Processor struct {
	client   client.Client
	cfg      Config
	required model.ModelSet
}

// New returns a Processor for c, applying defaults to zero-valued fields of
// cfg. It returns a *ConfigError if cfg is invalid.
func New(c client.Client, cfg Config) (*Processor, error) {
	if c == nil {
		return nil, fmt.Errorf("processor: client is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sets := make([]model.ModelSet, 0, len(cfg.BuildListeners))
	for _, l := range cfg.BuildListeners {
		sets = append(sets, l.Models)
	}
	return &Processor{
		client:   c,
		cfg:      cfg,
		required: model.Union(sets...),
	}, nil
}

// Required returns the union of the models the build listeners declared.
func (p *Processor) Required() model.ModelSet {
	return p.required
}

// Process handles every build that became available at or after since and
// matches query (empty matches everything). Builds reach the listeners
// newest first. Events already emitted are not rolled back on error.
func (p *Processor) Process(ctx context.Context, since time.Time, query string) error {
	runID, err := idgen.RunID(p.cfg.Now())
	if err != nil {
		return fmt.Errorf("generating run id: %w", err)
	}
	r := &run{
		p:      p,
		id:     runID,
		query:  query,
		logger: p.cfg.Logger.With("run_id", runID),
	}

	r.logger.Debug("discovery started", "since", since, "query", query)
	r.emit(func(l ProcessListener) {
		if l.OnDiscoveryStarted != nil {
			l.OnDiscoveryStarted(DiscoveryStarted{Time: p.cfg.Now(), RunID: runID, Since: since, Query: query})
		}
	})

	discovered, err := r.discover(ctx, since)
	if err != nil {
		return err
	}
	r.logger.Debug("discovery finished", "builds", len(discovered))
	r.emit(func(l ProcessListener) {
		if l.OnDiscoveryFinished != nil {
			l.OnDiscoveryFinished(DiscoveryFinished{Time: p.cfg.Now(), RunID: runID, Builds: discovered})
		}
	})
	r.emit(func(l ProcessListener) {
		if l.OnProcessingStarted != nil {
			l.OnProcessingStarted(ProcessingStarted{Time: p.cfg.Now(), RunID: runID})
		}
	})

	if err := r.reconcile(ctx, discovered); err != nil {
		return err
	}

	r.logger.Info("processing finished", "cached", r.cached, "fetched", r.fetched)
	r.emit(func(l ProcessListener) {
		if l.OnProcessingFinished != nil {
			l.OnProcessingFinished(ProcessingFinished{Time: p.cfg.Now(), RunID: runID, Cached: r.cached, Fetched: r.fetched})
		}
	})
	return nil
}
