package mysql

import (
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
)

func fromDomain(cp *model.Checkpoint) *Checkpoint {
	row := &Checkpoint{
		CheckpointID: cp.ID,
		WorkerID:     cp.WorkerID,
		StoragePath:  cp.StoragePath,
		SizeBytes:    cp.SizeBytes,
		Checksum:     cp.Checksum,
		Metadata:     JSONStringMap(cp.Metadata),
		Status:       string(cp.Status),
		CreatedAt:    cp.CreatedAt,
	}
	if cp.IdempotencyKey != "" {
		key := cp.IdempotencyKey
		row.IdempotencyKey = &key
	}
	return row
}

func toDomain(row *Checkpoint) *model.Checkpoint {
	cp := &model.Checkpoint{
		ID:          row.CheckpointID,
		WorkerID:    row.WorkerID,
		StoragePath: row.StoragePath,
		SizeBytes:   row.SizeBytes,
		Checksum:    row.Checksum,
		Metadata:    map[string]string(row.Metadata),
		Status:      model.CheckpointStatus(row.Status),
		CreatedAt:   row.CreatedAt,
	}
	if row.IdempotencyKey != nil {
		cp.IdempotencyKey = *row.IdempotencyKey
	}
	return cp
}
