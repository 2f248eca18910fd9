package checkpoint

import (
	"context"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
)

// Repository is the checkpoint index contract the manager runs
// against. The MySQL implementation lives in pkg/store/mysql; tests
// substitute an in-memory fake.
type Repository interface {
	// Create inserts a PENDING record. When the idempotency key is
	// already reserved by another row, the error satisfies
	// errors.Is(err, mysql.ErrDuplicateKey).
	Create(ctx context.Context, cp *model.Checkpoint) error

	// GetByCheckpointID returns (nil, nil) when the id is unknown.
	GetByCheckpointID(ctx context.Context, checkpointID string) (*model.Checkpoint, error)

	// GetCompletedByIdempotencyKey returns the COMPLETED record bound
	// to key, or (nil, nil).
	GetCompletedByIdempotencyKey(ctx context.Context, key string) (*model.Checkpoint, error)

	// UpdateStatus performs a compare-and-swap status transition.
	UpdateStatus(ctx context.Context, checkpointID string, fromStatus, toStatus model.CheckpointStatus) error

	// MarkCompleted transitions UPLOADING -> COMPLETED and records the
	// final storage path.
	MarkCompleted(ctx context.Context, checkpointID, storagePath string) error

	// MarkFailed transitions to FAILED and releases the idempotency
	// key.
	MarkFailed(ctx context.Context, checkpointID string) error

	// List returns checkpoints most recent first, optionally filtered.
	List(ctx context.Context, workerID string, status model.CheckpointStatus) ([]*model.Checkpoint, error)

	// Delete removes a record, reporting whether it existed.
	Delete(ctx context.Context, checkpointID string) (bool, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)
}
