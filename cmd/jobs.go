package main

import (
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/jobs"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/liveness"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/lock"
)

// initJobs initializes background tasks
func (app *Application) initJobs() error {
	app.jobsManager = jobs.NewManager(app.ctx)

	// Liveness sweep, one instance at a time cluster-wide
	sweepLock := lock.NewRedisDistributedLock(app.redisClient.GetClient(), "liveness:sweep-lock")
	sweepInterval := time.Duration(app.config.Worker.SweepInterval) * time.Second
	app.jobsManager.Register(liveness.NewSweepJob(app.livenessTracker, sweepLock, sweepInterval))

	return nil
}
