package mysql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONStringMap is a custom type for JSON columns (map[string]string)
type JSONStringMap map[string]string

// Scan implements sql.Scanner interface
func (j *JSONStringMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONStringMap value: %v", value)
	}
	result := make(map[string]string)
	err := json.Unmarshal(bytes, &result)
	*j = JSONStringMap(result)
	return err
}

// Value implements driver.Valuer interface
func (j JSONStringMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Checkpoint MySQL model for the checkpoints table. The unique index on
// idempotency_key is what backs the at-most-once guarantee across
// process restarts.
type Checkpoint struct {
	ID             int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	CheckpointID   string        `gorm:"column:checkpoint_id;type:varchar(64);not null;uniqueIndex:idx_checkpoint_id_unique" json:"checkpoint_id"`
	WorkerID       string        `gorm:"column:worker_id;type:varchar(255);not null;index:idx_worker_id" json:"worker_id"`
	StoragePath    string        `gorm:"column:storage_path;type:varchar(1000)" json:"storage_path"`
	SizeBytes      int64         `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Checksum       string        `gorm:"column:checksum;type:varchar(64)" json:"checksum"`
	Metadata       JSONStringMap `gorm:"column:metadata;type:json" json:"metadata"`
	Status         string        `gorm:"column:status;type:varchar(50);not null;index:idx_status" json:"status"`
	IdempotencyKey *string       `gorm:"column:idempotency_key;type:varchar(255);uniqueIndex:idx_idempotency_key_unique" json:"idempotency_key"`
	CreatedAt      time.Time     `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3);index:idx_created_at" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for Checkpoint
func (Checkpoint) TableName() string {
	return "checkpoints"
}
