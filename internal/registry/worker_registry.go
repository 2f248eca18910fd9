package registry

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"
)

// WorkerRegistry tracks worker lifecycle
type WorkerRegistry struct {
	workerRepo *redisstore.WorkerRepository
}

// NewWorkerRegistry creates a new worker registry
func NewWorkerRegistry(workerRepo *redisstore.WorkerRepository) *WorkerRegistry {
	return &WorkerRegistry{workerRepo: workerRepo}
}

// Register admits a new worker. The id is claimed atomically, so two
// concurrent registrations for the same id resolve to exactly one
// winner.
func (r *WorkerRegistry) Register(ctx context.Context, req *model.RegisterWorkerRequest) (*model.Worker, error) {
	if req.WorkerID == "" {
		return nil, apperr.InvalidArgument("worker_id is required")
	}

	now := time.Now()
	worker := &model.Worker{
		ID:            req.WorkerID,
		Metadata:      req.Metadata,
		Status:        model.WorkerStatusActive,
		RegisteredAt:  now,
		LastHeartbeat: now,
	}

	if err := r.workerRepo.Insert(ctx, worker); err != nil {
		if errors.Is(err, redisstore.ErrWorkerExists) {
			return nil, apperr.AlreadyExists("worker already registered: %s", req.WorkerID)
		}
		return nil, apperr.Internal("failed to register worker", err)
	}

	logger.InfoCtx(ctx, "worker registered, worker_id: %s", worker.ID)
	return worker, nil
}

// Deregister removes a worker from the registry. The returned worker
// carries the terminal status.
func (r *WorkerRegistry) Deregister(ctx context.Context, workerID string) (*model.Worker, error) {
	if workerID == "" {
		return nil, apperr.InvalidArgument("worker_id is required")
	}

	worker, err := r.workerRepo.Get(ctx, workerID)
	if err != nil {
		if errors.Is(err, redisstore.ErrWorkerNotFound) {
			return nil, apperr.NotFound("worker not found: %s", workerID)
		}
		return nil, apperr.Internal("failed to get worker", err)
	}

	if err := r.workerRepo.Delete(ctx, workerID); err != nil {
		if errors.Is(err, redisstore.ErrWorkerNotFound) {
			return nil, apperr.NotFound("worker not found: %s", workerID)
		}
		return nil, apperr.Internal("failed to deregister worker", err)
	}

	worker.Status = model.WorkerStatusTerminated

	logger.InfoCtx(ctx, "worker deregistered, worker_id: %s", workerID)
	return worker, nil
}

// GetWorker retrieves a single worker
func (r *WorkerRegistry) GetWorker(ctx context.Context, workerID string) (*model.Worker, error) {
	worker, err := r.workerRepo.Get(ctx, workerID)
	if err != nil {
		if errors.Is(err, redisstore.ErrWorkerNotFound) {
			return nil, apperr.NotFound("worker not found: %s", workerID)
		}
		return nil, apperr.Internal("failed to get worker", err)
	}
	return worker, nil
}

// ListWorkers lists workers, optionally filtered by status, ordered by
// registration time then id for a stable listing.
func (r *WorkerRegistry) ListWorkers(ctx context.Context, status model.WorkerStatus) ([]*model.Worker, error) {
	if status != "" && status != model.WorkerStatusUnspecified && !status.Valid() {
		return nil, apperr.InvalidArgument("invalid worker status filter: %s", status)
	}

	workers, err := r.workerRepo.GetAll(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list workers", err)
	}

	if status != "" && status != model.WorkerStatusUnspecified {
		filtered := make([]*model.Worker, 0, len(workers))
		for _, w := range workers {
			if w.Status == status {
				filtered = append(filtered, w)
			}
		}
		workers = filtered
	}

	sort.Slice(workers, func(i, j int) bool {
		if !workers[i].RegisteredAt.Equal(workers[j].RegisteredAt) {
			return workers[i].RegisteredAt.Before(workers[j].RegisteredAt)
		}
		return workers[i].ID < workers[j].ID
	})

	return workers, nil
}

// Count returns the number of registered workers
func (r *WorkerRegistry) Count(ctx context.Context) (int64, error) {
	return r.workerRepo.Count(ctx)
}
