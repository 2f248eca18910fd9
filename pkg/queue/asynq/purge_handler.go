package asynq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/store/blob"

	"github.com/hibiken/asynq"
)

// BlobPurgeHandler deletes orphaned blobs from the backing store.
// Failures are returned so asynq retries with backoff.
type BlobPurgeHandler struct {
	store blob.Store
}

// NewBlobPurgeHandler creates a purge handler
func NewBlobPurgeHandler(store blob.Store) *BlobPurgeHandler {
	return &BlobPurgeHandler{store: store}
}

// ProcessTask implements asynq.Handler
func (h *BlobPurgeHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload BlobPurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal purge payload: %w", err)
	}

	if err := h.store.Delete(ctx, payload.StoragePath); err != nil {
		logger.WarnCtx(ctx, "blob purge failed, checkpoint_id: %s, path: %s, err: %v",
			payload.CheckpointID, payload.StoragePath, err)
		return err
	}

	logger.InfoCtx(ctx, "orphaned blob purged, checkpoint_id: %s, path: %s",
		payload.CheckpointID, payload.StoragePath)
	return nil
}
