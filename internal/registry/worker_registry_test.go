package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkerRegistry(t *testing.T) *WorkerRegistry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWorkerRegistry(redisstore.NewWorkerRepository(redisstore.NewRedisClientFromRaw(client)))
}

func TestWorkerRegistry_Register(t *testing.T) {
	reg := newTestWorkerRegistry(t)
	ctx := context.Background()

	worker, err := reg.Register(ctx, &model.RegisterWorkerRequest{
		WorkerID: "w1",
		Metadata: map[string]string{"zone": "us-east-1a"},
	})
	require.NoError(t, err)

	assert.Equal(t, "w1", worker.ID)
	assert.Equal(t, model.WorkerStatusActive, worker.Status)
	assert.Equal(t, "us-east-1a", worker.Metadata["zone"])
	assert.False(t, worker.RegisteredAt.IsZero())
	assert.False(t, worker.LastHeartbeat.IsZero())
}

func TestWorkerRegistry_Register_Duplicate(t *testing.T) {
	reg := newTestWorkerRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: "w1"})
	require.NoError(t, err)

	_, err = reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: "w1"})
	require.Error(t, err)
	assert.True(t, apperr.IsAlreadyExists(err))
}

func TestWorkerRegistry_Register_ConcurrentSameID(t *testing.T) {
	reg := newTestWorkerRegistry(t)
	ctx := context.Background()

	const racers = 20
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: "contested"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, apperr.IsAlreadyExists(err))
		}
	}
	assert.Equal(t, 1, winners, "exactly one registration should win")
}

func TestWorkerRegistry_Register_MissingID(t *testing.T) {
	reg := newTestWorkerRegistry(t)

	_, err := reg.Register(context.Background(), &model.RegisterWorkerRequest{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestWorkerRegistry_Deregister(t *testing.T) {
	reg := newTestWorkerRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: "w1"})
	require.NoError(t, err)

	worker, err := reg.Deregister(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusTerminated, worker.Status)

	// gone from the registry
	_, err = reg.GetWorker(ctx, "w1")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	// id is free for re-registration
	_, err = reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: "w1"})
	assert.NoError(t, err)
}

func TestWorkerRegistry_Deregister_NotFound(t *testing.T) {
	reg := newTestWorkerRegistry(t)

	_, err := reg.Deregister(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestWorkerRegistry_ListWorkers(t *testing.T) {
	reg := newTestWorkerRegistry(t)
	ctx := context.Background()

	for _, id := range []string{"w3", "w1", "w2"} {
		_, err := reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: id})
		require.NoError(t, err)
	}

	workers, err := reg.ListWorkers(ctx, "")
	require.NoError(t, err)
	require.Len(t, workers, 3)

	// stable order: registration time, then id
	for i := 1; i < len(workers); i++ {
		prev, cur := workers[i-1], workers[i]
		ordered := prev.RegisteredAt.Before(cur.RegisteredAt) ||
			(prev.RegisteredAt.Equal(cur.RegisteredAt) && prev.ID < cur.ID)
		assert.True(t, ordered)
	}

	active, err := reg.ListWorkers(ctx, model.WorkerStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	idle, err := reg.ListWorkers(ctx, model.WorkerStatusIdle)
	require.NoError(t, err)
	assert.Empty(t, idle)

	_, err = reg.ListWorkers(ctx, model.WorkerStatus("BOGUS"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestWorkerRegistry_Count(t *testing.T) {
	reg := newTestWorkerRegistry(t)
	ctx := context.Background()

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = reg.Register(ctx, &model.RegisterWorkerRequest{WorkerID: "w1"})
	require.NoError(t, err)

	count, err = reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
