package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alfredjeanlab/buildproc/internal/client"
	"github.com/alfredjeanlab/buildproc/internal/model"
)

// fetch issues a listing request, retrying rate-limited responses with an
// exponential delay. A response rejected as too large shrinks the request
// size for the rest of the run and reports backedOff so the caller can
// re-issue the request at the new size.
func (r *run) fetch(ctx context.Context, q client.BuildsQuery) (builds []*model.Build, backedOff bool, err error) {
	cfg := r.p.cfg
	timer := &sleepTimer{ctx: ctx, sleep: cfg.Sleep}

	var tooLarge *client.APIError
	op := func() error {
		if timer.err != nil {
			return backoff.Permanent(fmt.Errorf("waiting to retry: %w", timer.err))
		}
		var err error
		builds, err = r.p.client.GetBuilds(ctx, q)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("fetching builds: %w", ctx.Err()))
		}
		var apiErr *client.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.TooLarge():
			tooLarge = apiErr
			return backoff.Permanent(err)
		case errors.As(err, &apiErr) && apiErr.Retryable():
			return err
		default:
			return backoff.Permanent(fmt.Errorf("fetching builds: %w", err))
		}
	}

	attempt := 0
	notify := func(err error, delay time.Duration) {
		attempt++
		status := 0
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		r.logger.Warn("server busy, retrying",
			"status", status,
			"attempt", attempt,
			"delay", delay)
	}

	err = backoff.RetryNotifyWithTimer(op, retryPolicy(ctx, cfg), notify, timer)
	switch {
	case err == nil:
		return builds, false, nil

	case tooLarge != nil:
		r.backoffs++
		if r.backoffs > cfg.BackoffLimit {
			return nil, false, &BackoffLimitExceededError{Limit: cfg.BackoffLimit, Err: err}
		}
		r.logger.Warn("request too large, backing off",
			"status", tooLarge.StatusCode,
			"backoffs", r.backoffs,
			"batch_size", r.batchSize())
		return nil, true, nil

	case err == ctx.Err():
		// canceled between attempts
		return nil, false, fmt.Errorf("waiting to retry: %w", err)
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Retryable() {
		return nil, false, &RetryLimitExceededError{Limit: cfg.RetryLimit, Err: err}
	}
	return nil, false, err
}

// retryPolicy waits RetryDelay * RetryFactor^n before retry n, without
// jitter, for at most RetryLimit retries.
func retryPolicy(ctx context.Context, cfg Config) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.RetryDelay
	b.Multiplier = cfg.RetryFactor
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.RetryLimit)), ctx)
}

// sleepTimer adapts Config.Sleep to backoff.Timer. Start blocks for the
// delay, so C is always ready by the time the retry loop reads it; a failed
// sleep is kept for the next attempt to report.
type sleepTimer struct {
	ctx   context.Context
	sleep func(context.Context, time.Duration) error
	ch    chan time.Time
	err   error
}

func (t *sleepTimer) Start(d time.Duration) {
	t.ch = make(chan time.Time, 1)
	if err := t.sleep(t.ctx, d); err != nil {
		t.err = err
		if t.ctx.Err() != nil {
			return // the retry loop returns on ctx.Done
		}
	}
	t.ch <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.ch }

// shrink applies n backoffs to size, never going below one.
func shrink(size int, factor float64, n int) int {
	return max(1, int(math.Floor(float64(size)*math.Pow(factor, float64(n)))))
}
