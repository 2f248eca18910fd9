package liveness

import (
	"context"
	"errors"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"
)

// Tracker observes worker heartbeats and flags silent workers
type Tracker struct {
	workerRepo       *redisstore.WorkerRepository
	heartbeatTimeout time.Duration
}

// NewTracker creates a liveness tracker
func NewTracker(workerRepo *redisstore.WorkerRepository, heartbeatTimeout time.Duration) *Tracker {
	return &Tracker{
		workerRepo:       workerRepo,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// Heartbeat refreshes a worker's liveness. An optional status lets the
// worker report ACTIVE or IDLE; a heartbeat from an UNHEALTHY worker
// recovers it.
func (t *Tracker) Heartbeat(ctx context.Context, workerID string, status model.WorkerStatus) (*model.Worker, error) {
	if workerID == "" {
		return nil, apperr.InvalidArgument("worker_id is required")
	}
	if status != "" && status != model.WorkerStatusUnspecified {
		if status != model.WorkerStatusActive && status != model.WorkerStatusIdle {
			return nil, apperr.InvalidArgument("heartbeat status must be ACTIVE or IDLE, got: %s", status)
		}
	}

	worker, err := t.workerRepo.Get(ctx, workerID)
	if err != nil {
		if errors.Is(err, redisstore.ErrWorkerNotFound) {
			return nil, apperr.NotFound("worker not found: %s", workerID)
		}
		return nil, apperr.Internal("failed to get worker", err)
	}

	worker.LastHeartbeat = time.Now()
	if status != "" && status != model.WorkerStatusUnspecified {
		worker.Status = status
	} else if worker.Status == model.WorkerStatusUnhealthy {
		// heartbeat alone is enough to recover
		worker.Status = model.WorkerStatusActive
	}

	if err := t.workerRepo.Save(ctx, worker); err != nil {
		return nil, apperr.Internal("failed to update heartbeat", err)
	}

	logger.DebugCtx(ctx, "heartbeat received, worker_id: %s, status: %s", workerID, worker.Status)
	return worker, nil
}

// Sweep marks workers whose last heartbeat is older than the timeout
// as UNHEALTHY. Workers are never removed here, deregistration stays an
// explicit operation. Returns the number of workers flagged.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	workers, err := t.workerRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	flagged := 0

	for _, worker := range workers {
		if worker.Status != model.WorkerStatusActive && worker.Status != model.WorkerStatusIdle {
			continue
		}
		silence := now.Sub(worker.LastHeartbeat)
		if silence <= t.heartbeatTimeout {
			continue
		}

		// Conditional on the heartbeat we observed: a heartbeat that
		// lands between the scan and this write aborts the transition
		// instead of being overwritten.
		ok, err := t.workerRepo.FlagUnhealthyIfStale(ctx, worker.ID, worker.LastHeartbeat)
		if err != nil {
			logger.ErrorCtx(ctx, "failed to flag unhealthy worker, worker_id: %s, error: %v", worker.ID, err)
			continue
		}
		if !ok {
			continue
		}

		flagged++
		logger.InfoCtx(ctx, "worker flagged unhealthy, worker_id: %s, last_heartbeat: %v ago",
			worker.ID, silence)
	}

	return flagged, nil
}
