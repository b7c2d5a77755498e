// Package sync runs processing on a schedule and exports the builds it
// encounters to S3, a git repository or a local file.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Destination is the interface for an export target (S3, git, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// WriteAll sends data to every destination, attempting all of them even when
// some fail.
func WriteAll(ctx context.Context, data []byte, destinations []Destination) error {
	var errs []error
	for i, dest := range destinations {
		if err := dest.Write(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("destination %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a job periodically until stopped.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that runs job at the given interval.
func NewScheduler(job Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the job once immediately, then on each tick. Runs never
// overlap: a tick that fires while the job is running is skipped.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("scheduled run failed", "err", err, "elapsed", time.Since(start))
		return
	}
	s.logger.Info("scheduled run completed", "elapsed", time.Since(start))
}
