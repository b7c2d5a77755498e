package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/cache"
	"github.com/alfredjeanlab/buildproc/internal/client"
	"github.com/alfredjeanlab/buildproc/internal/events"
	"github.com/alfredjeanlab/buildproc/internal/processor"
	"github.com/alfredjeanlab/buildproc/internal/store/postgres"
)

// newClient connects to the configured server, resolving its access key
// from BP_ACCESS_KEY, the active server profile, or the Develocity key
// files, in that order. A server with no key is accessed anonymously.
func newClient() (*client.HTTPClient, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("no server configured; pass --server, set BP_SERVER_URL or run 'bp server use <name>'")
	}
	key := cfg.AccessKey
	if key == "" {
		key = activeServerAccessKey()
	}
	if key == "" {
		found, err := client.LookupAccessKey(serverURL)
		switch {
		case errors.Is(err, client.ErrNoAccessKey):
			logger.Debug("no access key found, connecting anonymously", "server", serverURL)
		case err != nil:
			return nil, err
		default:
			key = found
		}
	}
	return client.NewHTTPClient(serverURL, key), nil
}

// cacheChain is the composite cache plus whatever must be released once
// processing is done.
type cacheChain struct {
	cache.Cache
	closers []func() error
}

func (c *cacheChain) Close() error {
	var errs []error
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// openCache builds the cache chain from fastest to slowest: memory, local
// disk, S3, then postgres. Tiers are enabled by configuration.
func openCache(ctx context.Context) (*cacheChain, error) {
	chain := &cacheChain{}
	var tiers []cache.Cache

	if cfg.CacheMemorySize > 0 {
		mem, err := cache.NewMemory(cfg.CacheMemorySize)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, mem)
	}

	if !cfg.CacheDisabled() {
		root := cfg.CacheDir
		if root == "" {
			var err error
			if root, err = cache.DefaultRoot(); err != nil {
				return nil, err
			}
		}
		tiers = append(tiers, cache.NewFileSystem(cache.NewPartitioning(root), logger))
		logger.Debug("filesystem cache enabled", "root", root)
	}

	if cfg.CacheS3Bucket != "" {
		s3c, err := cache.NewS3(ctx, cache.S3Options{
			Bucket:   cfg.CacheS3Bucket,
			Prefix:   cfg.CacheS3Prefix,
			Region:   cfg.CacheS3Region,
			Endpoint: cfg.CacheS3Endpoint,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, s3c)
		logger.Debug("s3 cache enabled", "bucket", cfg.CacheS3Bucket, "prefix", cfg.CacheS3Prefix)
	}

	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, pg)
		chain.closers = append(chain.closers, pg.Close)
		logger.Debug("postgres cache enabled")
	}

	switch len(tiers) {
	case 0:
		chain.Cache = cache.Noop{}
	case 1:
		chain.Cache = tiers[0]
	default:
		chain.Cache = cache.NewComposite(tiers...).WithLogger(logger)
	}
	return chain, nil
}

// newPublisher connects to NATS when BP_NATS_URL or the active server
// profile names one.
func newPublisher() (events.Publisher, error) {
	url := cfg.NATSURL
	if url == "" {
		url = activeServerNATSURL()
	}
	if url == "" {
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", url)
	return pub, nil
}

// processorConfig maps the BP_* tuning settings onto a processor.Config.
func processorConfig(c cache.Cache) processor.Config {
	return processor.Config{
		MaxBuildsPerRequest: cfg.MaxBuildsPerRequest,
		BackoffLimit:        cfg.BackoffLimit,
		BackoffFactor:       cfg.BackoffFactor,
		RetryLimit:          cfg.RetryLimit,
		RetryFactor:         cfg.RetryFactor,
		RetryDelay:          cfg.RetryDelay,
		Cache:               c,
		Logger:              logger,
	}
}

// parseSince accepts a duration relative to now ("24h"), an RFC 3339
// timestamp, or a date ("2026-01-31", midnight UTC).
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("--since duration must not be negative")
		}
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q (want a duration like 24h, an RFC 3339 time or a date)", s)
}
