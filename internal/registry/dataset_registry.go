package registry

import (
	"context"
	"sort"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"
)

// DatasetRegistry tracks dataset registrations
type DatasetRegistry struct {
	datasetRepo *redisstore.DatasetRepository
}

// NewDatasetRegistry creates a new dataset registry
func NewDatasetRegistry(datasetRepo *redisstore.DatasetRepository) *DatasetRegistry {
	return &DatasetRegistry{datasetRepo: datasetRepo}
}

// Register records a dataset. Re-registering an existing id is an
// upsert: path and metadata are replaced, the original registration
// time is preserved.
func (r *DatasetRegistry) Register(ctx context.Context, req *model.RegisterDatasetRequest) (*model.Dataset, error) {
	if req.DatasetID == "" {
		return nil, apperr.InvalidArgument("dataset_id is required")
	}
	if req.Path == "" {
		return nil, apperr.InvalidArgument("path is required")
	}

	dataset := &model.Dataset{
		ID:           req.DatasetID,
		Path:         req.Path,
		Metadata:     req.Metadata,
		RegisteredAt: time.Now(),
	}

	existing, err := r.datasetRepo.Get(ctx, req.DatasetID)
	if err != nil {
		return nil, apperr.Internal("failed to get dataset", err)
	}
	if existing != nil {
		dataset.RegisteredAt = existing.RegisteredAt
	}

	if err := r.datasetRepo.Save(ctx, dataset); err != nil {
		return nil, apperr.Internal("failed to register dataset", err)
	}

	logger.InfoCtx(ctx, "dataset registered, dataset_id: %s, path: %s", dataset.ID, dataset.Path)
	return dataset, nil
}

// GetDataset retrieves a single dataset
func (r *DatasetRegistry) GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	dataset, err := r.datasetRepo.Get(ctx, datasetID)
	if err != nil {
		return nil, apperr.Internal("failed to get dataset", err)
	}
	if dataset == nil {
		return nil, apperr.NotFound("dataset not found: %s", datasetID)
	}
	return dataset, nil
}

// ListDatasets lists all datasets ordered by registration time then id
func (r *DatasetRegistry) ListDatasets(ctx context.Context) ([]*model.Dataset, error) {
	datasets, err := r.datasetRepo.GetAll(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list datasets", err)
	}

	sort.Slice(datasets, func(i, j int) bool {
		if !datasets[i].RegisteredAt.Equal(datasets[j].RegisteredAt) {
			return datasets[i].RegisteredAt.Before(datasets[j].RegisteredAt)
		}
		return datasets[i].ID < datasets[j].ID
	})

	return datasets, nil
}

// Count returns the number of registered datasets
func (r *DatasetRegistry) Count(ctx context.Context) (int64, error) {
	return r.datasetRepo.Count(ctx)
}
