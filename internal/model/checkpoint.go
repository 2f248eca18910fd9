package model

import (
	"time"
)

// CheckpointStatus checkpoint lifecycle status
type CheckpointStatus string

const (
	CheckpointStatusUnspecified CheckpointStatus = "UNSPECIFIED"
	CheckpointStatusPending     CheckpointStatus = "PENDING"   // accepted, not yet persisting
	CheckpointStatusUploading   CheckpointStatus = "UPLOADING" // blob write in flight
	CheckpointStatusCompleted   CheckpointStatus = "COMPLETED" // durable, checksum verified
	CheckpointStatusFailed      CheckpointStatus = "FAILED"    // persistence error, retryable
)

// Valid reports whether s is a recognized checkpoint status.
func (s CheckpointStatus) Valid() bool {
	switch s {
	case CheckpointStatusPending, CheckpointStatusUploading, CheckpointStatusCompleted, CheckpointStatusFailed:
		return true
	}
	return false
}

// Checkpoint an immutable snapshot of computation state. The manager is
// the sole writer of Status transitions; for a given IdempotencyKey at
// most one record reaches COMPLETED.
type Checkpoint struct {
	ID             string            `json:"checkpoint_id"`
	WorkerID       string            `json:"worker_id"`
	StoragePath    string            `json:"storage_path"`
	SizeBytes      int64             `json:"size_bytes"`
	Checksum       string            `json:"checksum"` // sha256 hex of the payload
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Status         CheckpointStatus  `json:"status"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// SaveCheckpointRequest checkpoint save request. Data is base64 on the
// JSON surface; the websocket stream endpoint carries raw chunks instead.
type SaveCheckpointRequest struct {
	WorkerID       string            `json:"worker_id" binding:"required"`
	Data           []byte            `json:"data"`
	Metadata       map[string]string `json:"metadata"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// StreamHeader first frame of a websocket checkpoint upload.
type StreamHeader struct {
	WorkerID       string            `json:"worker_id"`
	Metadata       map[string]string `json:"metadata"`
	IdempotencyKey string            `json:"idempotency_key"`
}
