// Package cron runs periodic maintenance jobs under a Redis lock so only one
// worker executes a cycle at a time.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const defaultInterval = 5 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service executes registered cron jobs on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes one cycle immediately and then one per interval until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle_failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logg.Error(ctx, "cron.cycle_failed", err)
			}
		}
	}
}

// RunOnce runs every registered job once if the lock can be taken. All jobs
// run even when some fail; their errors are combined.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	locked, lockErr := s.lock.Acquire(ctx)
	if lockErr != nil {
		return fmt.Errorf("lock acquire: %w", lockErr)
	}
	if !locked {
		s.logg.Info(ctx, "cron.lock_held_elsewhere")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("lock release: %w", relErr))
		}
	}()

	for _, job := range s.registry.Jobs() {
		err = multierr.Append(err, s.runJob(ctx, job))
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(start)
	s.metrics.Observe(job.Name(), took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "cron.job_completed")
	return nil
}
