package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"

	"gorm.io/gorm"
)

// ErrDuplicateKey is returned by Create when the checkpoint id or the
// idempotency key collides with an existing row.
var ErrDuplicateKey = fmt.Errorf("duplicate key")

// CheckpointRepository handles checkpoint index persistence in MySQL
type CheckpointRepository struct {
	ds *Datastore
}

// NewCheckpointRepository creates a new checkpoint repository
func NewCheckpointRepository(ds *Datastore) *CheckpointRepository {
	return &CheckpointRepository{ds: ds}
}

// Create inserts a new checkpoint record. The unique index on
// idempotency_key rejects a second in-flight reservation for the same
// key, which Create surfaces as ErrDuplicateKey.
func (r *CheckpointRepository) Create(ctx context.Context, cp *model.Checkpoint) error {
	row := fromDomain(cp)
	err := r.ds.DB(ctx).Create(row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return nil
}

// GetByCheckpointID retrieves a checkpoint by its public id; returns
// (nil, nil) when absent.
func (r *CheckpointRepository) GetByCheckpointID(ctx context.Context, checkpointID string) (*model.Checkpoint, error) {
	var row Checkpoint
	err := r.ds.DB(ctx).Where("checkpoint_id = ?", checkpointID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return toDomain(&row), nil
}

// GetCompletedByIdempotencyKey retrieves the COMPLETED checkpoint bound
// to key; returns (nil, nil) when no completed record holds it. FAILED
// attempts release the key, so they never match.
func (r *CheckpointRepository) GetCompletedByIdempotencyKey(ctx context.Context, key string) (*model.Checkpoint, error) {
	var row Checkpoint
	err := r.ds.DB(ctx).
		Where("idempotency_key = ? AND status = ?", key, string(model.CheckpointStatusCompleted)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint by idempotency key: %w", err)
	}
	return toDomain(&row), nil
}

// UpdateStatus performs an atomic state transition (CAS). Returns an
// error when the row is missing or the current status doesn't match
// fromStatus.
func (r *CheckpointRepository) UpdateStatus(ctx context.Context, checkpointID string, fromStatus, toStatus model.CheckpointStatus) error {
	result := r.ds.DB(ctx).Model(&Checkpoint{}).
		Where("checkpoint_id = ? AND status = ?", checkpointID, string(fromStatus)).
		Updates(map[string]interface{}{
			"status":     string(toStatus),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update checkpoint status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("checkpoint not found or invalid status transition: checkpoint_id=%s, from=%s, to=%s",
			checkpointID, fromStatus, toStatus)
	}
	return nil
}

// MarkCompleted transitions UPLOADING -> COMPLETED and records the
// final storage path.
func (r *CheckpointRepository) MarkCompleted(ctx context.Context, checkpointID, storagePath string) error {
	result := r.ds.DB(ctx).Model(&Checkpoint{}).
		Where("checkpoint_id = ? AND status = ?", checkpointID, string(model.CheckpointStatusUploading)).
		Updates(map[string]interface{}{
			"status":       string(model.CheckpointStatusCompleted),
			"storage_path": storagePath,
			"updated_at":   time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete checkpoint: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("checkpoint not found or not uploading: checkpoint_id=%s", checkpointID)
	}
	return nil
}

// MarkFailed transitions to FAILED and releases the idempotency key so
// a retry with the same key can reserve it again.
func (r *CheckpointRepository) MarkFailed(ctx context.Context, checkpointID string) error {
	result := r.ds.DB(ctx).Model(&Checkpoint{}).
		Where("checkpoint_id = ?", checkpointID).
		Updates(map[string]interface{}{
			"status":          string(model.CheckpointStatusFailed),
			"idempotency_key": nil,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark checkpoint failed: %w", result.Error)
	}
	return nil
}

// List retrieves checkpoints most recent first, optionally filtered by
// worker and status.
func (r *CheckpointRepository) List(ctx context.Context, workerID string, status model.CheckpointStatus) ([]*model.Checkpoint, error) {
	query := r.ds.DB(ctx).Model(&Checkpoint{})
	if workerID != "" {
		query = query.Where("worker_id = ?", workerID)
	}
	if status != "" && status != model.CheckpointStatusUnspecified {
		query = query.Where("status = ?", string(status))
	}

	var rows []Checkpoint
	if err := query.Order("created_at DESC, checkpoint_id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	checkpoints := make([]*model.Checkpoint, 0, len(rows))
	for i := range rows {
		checkpoints = append(checkpoints, toDomain(&rows[i]))
	}
	return checkpoints, nil
}

// Delete removes a checkpoint row. Returns false when the id is
// unknown.
func (r *CheckpointRepository) Delete(ctx context.Context, checkpointID string) (bool, error) {
	result := r.ds.DB(ctx).Where("checkpoint_id = ?", checkpointID).Delete(&Checkpoint{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete checkpoint: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Count returns the total number of checkpoint records.
func (r *CheckpointRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.ds.DB(ctx).Model(&Checkpoint{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count checkpoints: %w", err)
	}
	return count, nil
}
