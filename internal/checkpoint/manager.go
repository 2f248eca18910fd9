package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/registry"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/config"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
	queue "github.com/lloredia/pulsecheckpoint-runtime/pkg/queue/asynq"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/store/blob"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/store/mysql"

	"github.com/google/uuid"
)

// BlobPurger defers removal of orphaned blobs to a retried background
// task. Nil disables deferral, orphans are only logged.
type BlobPurger interface {
	EnqueueBlobPurge(ctx context.Context, payload *queue.BlobPurgePayload) error
}

// Manager owns checkpoint persistence: durable blob writes with
// integrity metadata in the index, idempotent replay, and
// index-first deletion.
type Manager struct {
	repo      Repository
	store     blob.Store
	workers   *registry.WorkerRegistry
	purger    BlobPurger
	keyLocks  *keyLock
	cfg       config.CheckpointConfig
	maxUpload int64
}

// NewManager creates a checkpoint manager
func NewManager(repo Repository, store blob.Store, workers *registry.WorkerRegistry, purger BlobPurger, cfg config.CheckpointConfig, maxUpload int64) *Manager {
	return &Manager{
		repo:      repo,
		store:     store,
		workers:   workers,
		purger:    purger,
		keyLocks:  newKeyLock(),
		cfg:       cfg,
		maxUpload: maxUpload,
	}
}

// newCheckpointID mints a chk_ prefixed 12-hex id
func newCheckpointID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "chk_" + raw[:12]
}

// storageKey lays blobs out per worker and day so buckets stay
// browsable: checkpoints/{worker}/{yyyy/mm/dd}/{id}.bin
func storageKey(workerID, checkpointID string, t time.Time) string {
	return fmt.Sprintf("checkpoints/%s/%s/%s.bin", workerID, t.UTC().Format("2006/01/02"), checkpointID)
}

// SaveCheckpoint durably persists a checkpoint payload. Saves sharing
// an idempotency key are serialized end to end, so a replayed key
// observes either the finished record or a released reservation, never
// a half-written one.
func (m *Manager) SaveCheckpoint(ctx context.Context, req *model.SaveCheckpointRequest) (*model.Checkpoint, error) {
	if req.WorkerID == "" {
		return nil, apperr.InvalidArgument("worker_id is required")
	}
	if len(req.Data) == 0 {
		return nil, apperr.InvalidArgument("checkpoint data is required")
	}
	if m.maxUpload > 0 && int64(len(req.Data)) > m.maxUpload {
		return nil, apperr.InvalidArgument("checkpoint data exceeds max upload size: %d > %d", len(req.Data), m.maxUpload)
	}

	if _, err := m.workers.GetWorker(ctx, req.WorkerID); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.Data)
	checksum := hex.EncodeToString(sum[:])

	if req.IdempotencyKey != "" {
		release := m.keyLocks.Acquire(req.IdempotencyKey)
		defer release()

		existing, err := m.repo.GetCompletedByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, apperr.StorageFailure("failed to look up idempotency key", err)
		}
		if existing != nil {
			if existing.Checksum != checksum && m.cfg.PayloadMismatch == config.PayloadMismatchReject {
				return nil, apperr.InvalidArgument("idempotency key %s replayed with a different payload", req.IdempotencyKey)
			}
			logger.InfoCtx(ctx, "checkpoint save short-circuited, idempotency_key: %s, checkpoint_id: %s",
				req.IdempotencyKey, existing.ID)
			return existing, nil
		}
	}

	now := time.Now()
	cp := &model.Checkpoint{
		ID:             newCheckpointID(),
		WorkerID:       req.WorkerID,
		StoragePath:    storageKey(req.WorkerID, "", now), // finalized below
		SizeBytes:      int64(len(req.Data)),
		Checksum:       checksum,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		Status:         model.CheckpointStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}
	cp.StoragePath = storageKey(req.WorkerID, cp.ID, now)

	if err := m.repo.Create(ctx, cp); err != nil {
		if errors.Is(err, mysql.ErrDuplicateKey) {
			// another instance holds the reservation
			return nil, apperr.Unavailable("idempotency key reservation in flight, retry later", err)
		}
		return nil, apperr.StorageFailure("failed to create checkpoint record", err)
	}

	if err := m.repo.UpdateStatus(ctx, cp.ID, model.CheckpointStatusPending, model.CheckpointStatusUploading); err != nil {
		m.failCheckpoint(ctx, cp.ID)
		return nil, apperr.StorageFailure("failed to start checkpoint upload", err)
	}
	cp.Status = model.CheckpointStatusUploading

	written, err := m.uploadWithRetry(ctx, cp.StoragePath, req.Data)
	if err != nil {
		m.failCheckpoint(ctx, cp.ID)
		return nil, apperr.Unavailable("checkpoint upload failed", err)
	}
	if written != cp.SizeBytes {
		m.failCheckpoint(ctx, cp.ID)
		return nil, apperr.StorageFailure("checkpoint upload truncated",
			fmt.Errorf("wrote %d bytes, expected %d", written, cp.SizeBytes))
	}

	if err := m.repo.MarkCompleted(ctx, cp.ID, cp.StoragePath); err != nil {
		m.failCheckpoint(ctx, cp.ID)
		return nil, apperr.StorageFailure("failed to complete checkpoint", err)
	}
	cp.Status = model.CheckpointStatusCompleted

	logger.InfoCtx(ctx, "checkpoint saved, checkpoint_id: %s, worker_id: %s, size: %d, checksum: %s",
		cp.ID, cp.WorkerID, cp.SizeBytes, cp.Checksum)

	return cp, nil
}

// uploadWithRetry writes the blob with bounded exponential backoff
func (m *Manager) uploadWithRetry(ctx context.Context, key string, data []byte) (int64, error) {
	retry := m.cfg.Retry
	attempts := retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := time.Duration(retry.InitialDelayMS) * time.Millisecond
	maxDelay := time.Duration(retry.MaxDelayMS) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		written, err := m.store.Put(ctx, key, data)
		if err == nil {
			return written, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		logger.WarnCtx(ctx, "checkpoint upload attempt %d/%d failed, retrying in %v: %v",
			attempt, attempts, delay, err)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * retry.Multiplier)
		if maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}
	}

	return 0, fmt.Errorf("upload failed after %d attempts: %w", attempts, lastErr)
}

// failCheckpoint moves the record to FAILED and releases the
// idempotency key so the caller can retry with the same key
func (m *Manager) failCheckpoint(ctx context.Context, checkpointID string) {
	if err := m.repo.MarkFailed(ctx, checkpointID); err != nil {
		logger.ErrorCtx(ctx, "failed to mark checkpoint FAILED, checkpoint_id: %s, error: %v", checkpointID, err)
	}
}

// GetCheckpoint retrieves a checkpoint record, optionally with its
// payload. Payload reads verify size and checksum against the index.
func (m *Manager) GetCheckpoint(ctx context.Context, checkpointID string, includeData bool) (*model.Checkpoint, []byte, error) {
	if checkpointID == "" {
		return nil, nil, apperr.InvalidArgument("checkpoint_id is required")
	}

	cp, err := m.repo.GetByCheckpointID(ctx, checkpointID)
	if err != nil {
		return nil, nil, apperr.StorageFailure("failed to get checkpoint", err)
	}
	if cp == nil {
		return nil, nil, apperr.NotFound("checkpoint not found: %s", checkpointID)
	}

	if !includeData {
		return cp, nil, nil
	}

	if cp.Status != model.CheckpointStatusCompleted {
		return nil, nil, apperr.InvalidArgument("checkpoint %s has no payload yet, status: %s", checkpointID, cp.Status)
	}

	data, err := m.store.Get(ctx, cp.StoragePath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, apperr.Internal("checkpoint blob missing: "+cp.StoragePath, err)
		}
		return nil, nil, apperr.StorageFailure("failed to read checkpoint blob", err)
	}

	if int64(len(data)) != cp.SizeBytes {
		return nil, nil, apperr.IntegrityFailure("checkpoint %s size mismatch: stored %d, expected %d",
			checkpointID, len(data), cp.SizeBytes)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != cp.Checksum {
		return nil, nil, apperr.IntegrityFailure("checkpoint %s checksum mismatch", checkpointID)
	}

	return cp, data, nil
}

// ListCheckpoints lists checkpoint records most recent first
func (m *Manager) ListCheckpoints(ctx context.Context, workerID string, status model.CheckpointStatus) ([]*model.Checkpoint, error) {
	if status != "" && status != model.CheckpointStatusUnspecified && !status.Valid() {
		return nil, apperr.InvalidArgument("invalid checkpoint status filter: %s", status)
	}

	checkpoints, err := m.repo.List(ctx, workerID, status)
	if err != nil {
		return nil, apperr.StorageFailure("failed to list checkpoints", err)
	}
	return checkpoints, nil
}

// DeleteCheckpoint removes the index record first so readers never see
// a checkpoint whose blob is gone. Blob removal is best effort, an
// orphaned blob is handed to the purge queue.
func (m *Manager) DeleteCheckpoint(ctx context.Context, checkpointID string) (*model.Checkpoint, error) {
	if checkpointID == "" {
		return nil, apperr.InvalidArgument("checkpoint_id is required")
	}

	cp, err := m.repo.GetByCheckpointID(ctx, checkpointID)
	if err != nil {
		return nil, apperr.StorageFailure("failed to get checkpoint", err)
	}
	if cp == nil {
		return nil, apperr.NotFound("checkpoint not found: %s", checkpointID)
	}

	deleted, err := m.repo.Delete(ctx, checkpointID)
	if err != nil {
		return nil, apperr.StorageFailure("failed to delete checkpoint record", err)
	}
	if !deleted {
		return nil, apperr.NotFound("checkpoint not found: %s", checkpointID)
	}

	if err := m.store.Delete(ctx, cp.StoragePath); err != nil {
		logger.WarnCtx(ctx, "blob delete failed, deferring to purge queue, checkpoint_id: %s, path: %s, error: %v",
			checkpointID, cp.StoragePath, err)
		if m.purger != nil {
			if qErr := m.purger.EnqueueBlobPurge(ctx, &queue.BlobPurgePayload{
				CheckpointID: cp.ID,
				StoragePath:  cp.StoragePath,
			}); qErr != nil {
				logger.ErrorCtx(ctx, "failed to enqueue blob purge, checkpoint_id: %s, error: %v", checkpointID, qErr)
			}
		}
	}

	logger.InfoCtx(ctx, "checkpoint deleted, checkpoint_id: %s, worker_id: %s", checkpointID, cp.WorkerID)
	return cp, nil
}

// Count returns the total number of checkpoint records
func (m *Manager) Count(ctx context.Context) (int64, error) {
	count, err := m.repo.Count(ctx)
	if err != nil {
		return 0, apperr.StorageFailure("failed to count checkpoints", err)
	}
	return count, nil
}
