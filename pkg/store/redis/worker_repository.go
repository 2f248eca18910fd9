package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	workerKeyPrefix = "worker:"     // worker record, JSON
	workerSetKey    = "workers:all" // id set of registered workers
)

// ErrWorkerExists is returned by Insert when the worker id is taken.
var ErrWorkerExists = fmt.Errorf("worker already registered")

// ErrWorkerNotFound is returned when the worker id is unknown.
var ErrWorkerNotFound = fmt.Errorf("worker not found")

// WorkerRepository owns the worker table in Redis. Records live until
// explicit deregistration; the liveness sweep only flips status.
type WorkerRepository struct {
	redis *redis.Client
}

// NewWorkerRepository creates Worker repository
func NewWorkerRepository(redisClient *RedisClient) *WorkerRepository {
	return &WorkerRepository{
		redis: redisClient.GetClient(),
	}
}

// Insert creates a worker record iff the id is free. SetNX makes the
// existence check and the write one atomic step, so two concurrent
// registrations of the same id cannot both succeed.
func (r *WorkerRepository) Insert(ctx context.Context, worker *model.Worker) error {
	key := workerKeyPrefix + worker.ID
	data, err := json.Marshal(worker)
	if err != nil {
		return fmt.Errorf("failed to marshal worker: %w", err)
	}

	ok, err := r.redis.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert worker: %w", err)
	}
	if !ok {
		return ErrWorkerExists
	}

	if err := r.redis.SAdd(ctx, workerSetKey, worker.ID).Err(); err != nil {
		return fmt.Errorf("failed to index worker: %w", err)
	}
	return nil
}

// Save overwrites an existing worker record.
func (r *WorkerRepository) Save(ctx context.Context, worker *model.Worker) error {
	key := workerKeyPrefix + worker.ID
	data, err := json.Marshal(worker)
	if err != nil {
		return fmt.Errorf("failed to marshal worker: %w", err)
	}

	pipe := r.redis.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, workerSetKey, worker.ID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// FlagUnhealthyIfStale transitions an ACTIVE/IDLE worker to UNHEALTHY
// only while its heartbeat is still the one the caller observed. The
// record is watched, so a heartbeat landing mid-transition aborts the
// write instead of being overwritten. Returns whether the worker was
// flagged.
func (r *WorkerRepository) FlagUnhealthyIfStale(ctx context.Context, workerID string, observedHeartbeat time.Time) (bool, error) {
	key := workerKeyPrefix + workerID
	flagged := false

	err := r.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			// deregistered in between, nothing to flag
			return nil
		}
		if err != nil {
			return err
		}

		var worker model.Worker
		if err := json.Unmarshal([]byte(data), &worker); err != nil {
			return fmt.Errorf("failed to unmarshal worker: %w", err)
		}
		if worker.Status != model.WorkerStatusActive && worker.Status != model.WorkerStatusIdle {
			return nil
		}
		if !worker.LastHeartbeat.Equal(observedHeartbeat) {
			// a fresh heartbeat arrived, leave the record alone
			return nil
		}

		worker.Status = model.WorkerStatusUnhealthy
		payload, err := json.Marshal(&worker)
		if err != nil {
			return fmt.Errorf("failed to marshal worker: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		flagged = true
		return nil
	}, key)

	if err == redis.TxFailedErr {
		// a concurrent write won the race, skip this worker
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to flag worker: %w", err)
	}
	return flagged, nil
}

// Get retrieves Worker information
func (r *WorkerRepository) Get(ctx context.Context, workerID string) (*model.Worker, error) {
	key := workerKeyPrefix + workerID
	data, err := r.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrWorkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}

	var worker model.Worker
	if err := json.Unmarshal([]byte(data), &worker); err != nil {
		return nil, fmt.Errorf("failed to unmarshal worker: %w", err)
	}
	return &worker, nil
}

// GetAll retrieves all registered workers.
func (r *WorkerRepository) GetAll(ctx context.Context) ([]*model.Worker, error) {
	workerIDs, err := r.redis.SMembers(ctx, workerSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get worker list: %w", err)
	}

	if len(workerIDs) == 0 {
		return []*model.Worker{}, nil
	}

	// Batch fetch in one round-trip
	pipe := r.redis.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(workerIDs))
	for _, workerID := range workerIDs {
		cmds = append(cmds, pipe.Get(ctx, workerKeyPrefix+workerID))
	}
	if _, err = pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch workers: %w", err)
	}

	workers := make([]*model.Worker, 0, len(workerIDs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			// record deleted between SMembers and Get, skip
			continue
		}
		var worker model.Worker
		if err := json.Unmarshal([]byte(data), &worker); err != nil {
			continue
		}
		workers = append(workers, &worker)
	}
	return workers, nil
}

// Delete removes a worker record and its index entry.
func (r *WorkerRepository) Delete(ctx context.Context, workerID string) error {
	key := workerKeyPrefix + workerID

	deleted, err := r.redis.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}
	if deleted == 0 {
		return ErrWorkerNotFound
	}

	if err := r.redis.SRem(ctx, workerSetKey, workerID).Err(); err != nil {
		return fmt.Errorf("failed to unindex worker: %w", err)
	}
	return nil
}

// Count returns the number of registered workers.
func (r *WorkerRepository) Count(ctx context.Context) (int64, error) {
	return r.redis.SCard(ctx, workerSetKey).Result()
}
