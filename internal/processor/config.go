package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/cache"
)

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultMaxBuildsPerRequest = 100
	DefaultDiscoveryPageSize   = 1000
	DefaultBackoffLimit        = 8
	DefaultBackoffFactor       = 0.75
	DefaultRetryLimit          = 5
	DefaultRetryFactor         = 1.5
	DefaultRetryDelay          = time.Second

	// MaxBuildsPerRequestLimit is the most builds the server returns per request.
	MaxBuildsPerRequestLimit = 1000
)

// Config tunes a Processor. Zero values are replaced by the defaults above;
// anything else out of range is rejected by Validate.
type Config struct {
	// MaxBuildsPerRequest caps the number of uncached builds fetched in one
	// request, before any backoff is applied.
	MaxBuildsPerRequest int

	// DiscoveryPageSize caps the number of builds listed per discovery page.
	DiscoveryPageSize int

	// BackoffLimit is how many times the request size may be shrunk before
	// processing gives up.
	BackoffLimit int

	// BackoffFactor multiplies the request size after every backoff.
	BackoffFactor float64

	// RetryLimit is how many times a rate-limited request is retried.
	RetryLimit int

	// RetryFactor multiplies RetryDelay after every retry.
	RetryFactor float64

	// RetryDelay is the wait before the first retry.
	RetryDelay time.Duration

	Cache            cache.Cache
	BuildListeners   []BuildListener
	ProcessListeners []ProcessListener
	Logger           *slog.Logger

	// Sleep waits for d or until ctx is done. Tests replace it to avoid
	// real delays.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now stamps lifecycle events.
	Now func() time.Time
}

// ConfigError lists every constraint a Config violates.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid processor configuration: " + strings.Join(e.Problems, ", ")
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.MaxBuildsPerRequest == 0 {
		c.MaxBuildsPerRequest = DefaultMaxBuildsPerRequest
	}
	if c.DiscoveryPageSize == 0 {
		c.DiscoveryPageSize = DefaultDiscoveryPageSize
	}
	if c.BackoffLimit == 0 {
		c.BackoffLimit = DefaultBackoffLimit
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = DefaultRetryLimit
	}
	if c.RetryFactor == 0 {
		c.RetryFactor = DefaultRetryFactor
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Cache == nil {
		c.Cache = cache.Noop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Sleep == nil {
		c.Sleep = sleep
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Validate checks every tuning parameter and reports all violations at once.
func (c Config) Validate() error {
	var problems []string
	if c.MaxBuildsPerRequest < 1 || c.MaxBuildsPerRequest > MaxBuildsPerRequestLimit {
		problems = append(problems, fmt.Sprintf("maxBuildsPerRequest must be between 1 (inclusive) and %d (inclusive)", MaxBuildsPerRequestLimit))
	}
	if c.DiscoveryPageSize < 1 || c.DiscoveryPageSize > MaxBuildsPerRequestLimit {
		problems = append(problems, fmt.Sprintf("discoveryPageSize must be between 1 (inclusive) and %d (inclusive)", MaxBuildsPerRequestLimit))
	}
	if c.BackoffLimit < 1 {
		problems = append(problems, "backoffLimit must be greater than 0")
	}
	if c.BackoffFactor <= 0 || c.BackoffFactor >= 1 {
		problems = append(problems, "backoffFactor must be between 0 (exclusive) and 1 (exclusive)")
	}
	if c.RetryLimit < 1 {
		problems = append(problems, "retryLimit must be greater than 0")
	}
	if c.RetryFactor <= 1 {
		problems = append(problems, "retryFactor must be greater than 1")
	}
	if c.RetryDelay <= 0 {
		problems = append(problems, "retryDelay must be greater than 0")
	}
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
