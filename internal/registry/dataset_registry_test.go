package registry

import (
	"context"
	"testing"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatasetRegistry(t *testing.T) *DatasetRegistry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDatasetRegistry(redisstore.NewDatasetRepository(redisstore.NewRedisClientFromRaw(client)))
}

func TestDatasetRegistry_Register(t *testing.T) {
	reg := newTestDatasetRegistry(t)
	ctx := context.Background()

	dataset, err := reg.Register(ctx, &model.RegisterDatasetRequest{
		DatasetID: "imagenet",
		Path:      "s3://datasets/imagenet",
		Metadata:  map[string]string{"version": "2012"},
	})
	require.NoError(t, err)

	assert.Equal(t, "imagenet", dataset.ID)
	assert.Equal(t, "s3://datasets/imagenet", dataset.Path)
	assert.False(t, dataset.RegisteredAt.IsZero())
}

func TestDatasetRegistry_Register_UpsertKeepsRegistrationTime(t *testing.T) {
	reg := newTestDatasetRegistry(t)
	ctx := context.Background()

	first, err := reg.Register(ctx, &model.RegisterDatasetRequest{
		DatasetID: "d1", Path: "s3://old",
	})
	require.NoError(t, err)

	second, err := reg.Register(ctx, &model.RegisterDatasetRequest{
		DatasetID: "d1", Path: "s3://new", Metadata: map[string]string{"rev": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "s3://new", second.Path)
	assert.Equal(t, first.RegisteredAt.Unix(), second.RegisteredAt.Unix())

	got, err := reg.GetDataset(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "s3://new", got.Path)
	assert.Equal(t, "2", got.Metadata["rev"])

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDatasetRegistry_Register_Validation(t *testing.T) {
	reg := newTestDatasetRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, &model.RegisterDatasetRequest{Path: "s3://x"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = reg.Register(ctx, &model.RegisterDatasetRequest{DatasetID: "d1"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestDatasetRegistry_GetDataset_NotFound(t *testing.T) {
	reg := newTestDatasetRegistry(t)

	_, err := reg.GetDataset(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDatasetRegistry_ListDatasets(t *testing.T) {
	reg := newTestDatasetRegistry(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := reg.Register(ctx, &model.RegisterDatasetRequest{DatasetID: id, Path: "s3://" + id})
		require.NoError(t, err)
	}

	datasets, err := reg.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 3)

	for i := 1; i < len(datasets); i++ {
		prev, cur := datasets[i-1], datasets[i]
		ordered := prev.RegisteredAt.Before(cur.RegisteredAt) ||
			(prev.RegisteredAt.Equal(cur.RegisteredAt) && prev.ID < cur.ID)
		assert.True(t, ordered)
	}
}
