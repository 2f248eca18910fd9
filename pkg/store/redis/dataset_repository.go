package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	datasetKeyPrefix = "dataset:"
	datasetSetKey    = "datasets:all"
)

// DatasetRepository owns the dataset table in Redis.
type DatasetRepository struct {
	redis *redis.Client
}

// NewDatasetRepository creates Dataset repository
func NewDatasetRepository(redisClient *RedisClient) *DatasetRepository {
	return &DatasetRepository{
		redis: redisClient.GetClient(),
	}
}

// Save upserts a dataset record.
func (r *DatasetRepository) Save(ctx context.Context, dataset *model.Dataset) error {
	key := datasetKeyPrefix + dataset.ID
	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	pipe := r.redis.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, datasetSetKey, dataset.ID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

// Get retrieves a dataset by id; returns (nil, nil) when absent.
func (r *DatasetRepository) Get(ctx context.Context, datasetID string) (*model.Dataset, error) {
	data, err := r.redis.Get(ctx, datasetKeyPrefix+datasetID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	var dataset model.Dataset
	if err := json.Unmarshal([]byte(data), &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return &dataset, nil
}

// GetAll retrieves all registered datasets.
func (r *DatasetRepository) GetAll(ctx context.Context) ([]*model.Dataset, error) {
	datasetIDs, err := r.redis.SMembers(ctx, datasetSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset list: %w", err)
	}

	if len(datasetIDs) == 0 {
		return []*model.Dataset{}, nil
	}

	pipe := r.redis.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(datasetIDs))
	for _, datasetID := range datasetIDs {
		cmds = append(cmds, pipe.Get(ctx, datasetKeyPrefix+datasetID))
	}
	if _, err = pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch datasets: %w", err)
	}

	datasets := make([]*model.Dataset, 0, len(datasetIDs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var dataset model.Dataset
		if err := json.Unmarshal([]byte(data), &dataset); err != nil {
			continue
		}
		datasets = append(datasets, &dataset)
	}
	return datasets, nil
}

// Count returns the number of registered datasets.
func (r *DatasetRepository) Count(ctx context.Context) (int64, error) {
	return r.redis.SCard(ctx, datasetSetKey).Result()
}
