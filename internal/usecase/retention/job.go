// Package retention prunes old usage rows and expired entitlements on a schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/metrics"
)

// Job deletes usage older than RetentionDays and, when ents is set, expired entitlements.
// Running it twice is harmless.
type Job struct {
	usage         UsagePruner
	ents          EntitlementPruner
	cal           *clock.Calendar
	retentionDays int
	logger        *zap.Logger
}

// New creates a retention job. ents can be nil to keep expired entitlements.
func New(usage UsagePruner, ents EntitlementPruner, cal *clock.Calendar, retentionDays int, logger *zap.Logger) (*Job, error) {
	if retentionDays < 1 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{usage: usage, ents: ents, cal: cal, retentionDays: retentionDays, logger: logger}, nil
}

// Cutoff returns the first day that is kept.
func (j *Job) Cutoff() clock.Day {
	return j.cal.Today().Add(-j.retentionDays)
}

// Run performs one sweep.
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.Cutoff()

	usageDeleted, err := j.usage.DeleteBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("Usage pruning failed", zap.Stringer("cutoff", cutoff), zap.Error(err))
		return fmt.Errorf("prune usage: %w", err)
	}
	metrics.UsagePrunedTotal.WithLabelValues("usage").Add(float64(usageDeleted))

	var entsDeleted int64
	if j.ents != nil {
		entsDeleted, err = j.ents.DeleteExpired(ctx, j.cal.Now())
		if err != nil {
			j.logger.Error("Entitlement pruning failed", zap.Error(err))
			return fmt.Errorf("prune entitlements: %w", err)
		}
		metrics.UsagePrunedTotal.WithLabelValues("entitlements").Add(float64(entsDeleted))
	}

	j.logger.Info("Retention sweep completed",
		zap.Stringer("cutoff", cutoff),
		zap.Int64("usage_deleted", usageDeleted),
		zap.Int64("entitlements_deleted", entsDeleted),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	job     *Job
	timeout time.Duration
	logger  *zap.Logger
}

// Schedule registers job under a standard five-field cron spec evaluated in loc.
// Each run is bounded by timeout. Overlapping runs are skipped.
func Schedule(job *Job, spec string, loc *time.Location, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{job: job, timeout: timeout, logger: logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.job.Run(ctx); err != nil {
		s.logger.Warn("Scheduled retention sweep failed", zap.Error(err))
	}
}

// Start begins the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Retention schedule started", zap.Time("next_run", s.cron.Entries()[0].Next))
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
