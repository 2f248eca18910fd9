package liveness

import (
	"context"
	"testing"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, timeout time.Duration) (*Tracker, *redisstore.WorkerRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := redisstore.NewWorkerRepository(redisstore.NewRedisClientFromRaw(client))
	return NewTracker(repo, timeout), repo
}

func registerWorker(t *testing.T, repo *redisstore.WorkerRepository, id string, status model.WorkerStatus, lastHeartbeat time.Time) {
	t.Helper()
	err := repo.Insert(context.Background(), &model.Worker{
		ID:            id,
		Status:        status,
		RegisteredAt:  lastHeartbeat,
		LastHeartbeat: lastHeartbeat,
	})
	require.NoError(t, err)
}

func TestHeartbeat_UpdatesLiveness(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	stale := time.Now().Add(-time.Hour)
	registerWorker(t, repo, "w1", model.WorkerStatusActive, stale)

	worker, err := tracker.Heartbeat(ctx, "w1", "")
	require.NoError(t, err)
	assert.True(t, worker.LastHeartbeat.After(stale))
	assert.Equal(t, model.WorkerStatusActive, worker.Status)
}

func TestHeartbeat_ReportsStatus(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "w1", model.WorkerStatusActive, time.Now())

	worker, err := tracker.Heartbeat(ctx, "w1", model.WorkerStatusIdle)
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusIdle, worker.Status)
}

func TestHeartbeat_RecoversUnhealthyWorker(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "w1", model.WorkerStatusUnhealthy, time.Now().Add(-time.Hour))

	worker, err := tracker.Heartbeat(ctx, "w1", "")
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusActive, worker.Status)
}

func TestHeartbeat_UnknownWorker(t *testing.T) {
	tracker, _ := newTestTracker(t, 90*time.Second)

	_, err := tracker.Heartbeat(context.Background(), "ghost", "")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestHeartbeat_RejectsInvalidStatus(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "w1", model.WorkerStatusActive, time.Now())

	for _, status := range []model.WorkerStatus{model.WorkerStatusUnhealthy, model.WorkerStatusTerminated, "BOGUS"} {
		_, err := tracker.Heartbeat(ctx, "w1", status)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	}
}

func TestSweep_FlagsSilentWorkers(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	now := time.Now()
	registerWorker(t, repo, "silent-active", model.WorkerStatusActive, now.Add(-2*time.Minute))
	registerWorker(t, repo, "silent-idle", model.WorkerStatusIdle, now.Add(-2*time.Minute))
	registerWorker(t, repo, "alive", model.WorkerStatusActive, now)

	flagged, err := tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)

	for _, id := range []string{"silent-active", "silent-idle"} {
		worker, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.WorkerStatusUnhealthy, worker.Status)
	}

	alive, err := repo.Get(ctx, "alive")
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusActive, alive.Status)
}

func TestSweep_NeverRemovesWorkers(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "silent", model.WorkerStatusActive, time.Now().Add(-time.Hour))

	_, err := tracker.Sweep(ctx)
	require.NoError(t, err)

	// flagged, not deregistered
	worker, err := repo.Get(ctx, "silent")
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusUnhealthy, worker.Status)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSweep_SkipsAlreadyFlaggedWorkers(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "flagged", model.WorkerStatusUnhealthy, time.Now().Add(-time.Hour))

	flagged, err := tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
}

func TestSweep_Idempotent(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "silent", model.WorkerStatusActive, time.Now().Add(-time.Hour))

	flagged, err := tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	flagged, err = tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
}

func TestSweep_DoesNotClobberConcurrentHeartbeat(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	registerWorker(t, repo, "w1", model.WorkerStatusActive, time.Now().Add(-time.Hour))

	// Race the sweep against a heartbeat. Whatever the interleaving,
	// the heartbeat's timestamp must survive: a sweep that loses the
	// race skips the worker instead of overwriting the record.
	for i := 0; i < 100; i++ {
		stale := time.Now().Add(-time.Hour)
		worker, err := repo.Get(ctx, "w1")
		require.NoError(t, err)
		worker.Status = model.WorkerStatusActive
		worker.LastHeartbeat = stale
		require.NoError(t, repo.Save(ctx, worker))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = tracker.Sweep(ctx)
		}()
		_, err = tracker.Heartbeat(ctx, "w1", "")
		require.NoError(t, err)
		<-done

		persisted, err := repo.Get(ctx, "w1")
		require.NoError(t, err)
		assert.True(t, persisted.LastHeartbeat.After(stale),
			"iteration %d: heartbeat lost, persisted last_heartbeat=%v status=%s",
			i, persisted.LastHeartbeat, persisted.Status)
	}
}

func TestSweep_SkipsWorkerRefreshedSinceScan(t *testing.T) {
	tracker, repo := newTestTracker(t, 90*time.Second)
	ctx := context.Background()

	stale := time.Now().Add(-time.Hour)
	registerWorker(t, repo, "w1", model.WorkerStatusActive, stale)

	// The conditional transition sees a heartbeat newer than the one
	// observed at scan time and leaves the record alone.
	flagged, err := repo.FlagUnhealthyIfStale(ctx, "w1", stale.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, flagged)

	worker, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, model.WorkerStatusActive, worker.Status)

	swept, err := tracker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}
