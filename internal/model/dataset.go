package model

import (
	"time"
)

// Dataset a registered dataset locator. Re-registration upserts: the
// path and metadata are overwritten, registered_at keeps the first
// registration time.
type Dataset struct {
	ID           string            `json:"dataset_id"`
	Path         string            `json:"path"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// RegisterDatasetRequest dataset registration request
type RegisterDatasetRequest struct {
	DatasetID string            `json:"dataset_id" binding:"required"`
	Path      string            `json:"path" binding:"required"`
	Metadata  map[string]string `json:"metadata"`
}
