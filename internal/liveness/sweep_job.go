package liveness

import (
	"context"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/lock"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
)

// SweepJob runs the liveness sweep periodically. A distributed lock
// keeps only one instance sweeping at a time.
type SweepJob struct {
	tracker  *Tracker
	lock     lock.DistributedLock
	interval time.Duration
}

// NewSweepJob creates the periodic sweep job
func NewSweepJob(tracker *Tracker, distLock lock.DistributedLock, interval time.Duration) *SweepJob {
	return &SweepJob{
		tracker:  tracker,
		lock:     distLock,
		interval: interval,
	}
}

func (j *SweepJob) Name() string {
	return "liveness-sweep"
}

func (j *SweepJob) Interval() time.Duration {
	return j.interval
}

func (j *SweepJob) Run(ctx context.Context) error {
	acquired, err := j.lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		logger.DebugCtx(ctx, "liveness sweep skipped, another instance holds the lock")
		return nil
	}
	defer func() {
		if err := j.lock.Unlock(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to release sweep lock: %v", err)
		}
	}()

	flagged, err := j.tracker.Sweep(ctx)
	if err != nil {
		return err
	}
	if flagged > 0 {
		logger.InfoCtx(ctx, "liveness sweep completed, flagged: %d", flagged)
	}
	return nil
}
