package asynq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/config"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeBlobPurge = "blob:purge"

	purgeConcurrency = 10
	purgeMaxRetry    = 10
	purgeTimeout     = 30 * time.Second
)

// BlobPurgePayload describes an orphaned blob that must be removed
// after its index record is already gone.
type BlobPurgePayload struct {
	CheckpointID string `json:"checkpoint_id"`
	StoragePath  string `json:"storage_path"`
}

// Manager queue manager for deferred blob purges
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	queue  string
}

// NewManager creates queue manager
func NewManager(cfg *config.Config) (*Manager, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisOpt)

	queue := cfg.Checkpoint.PurgeQueue

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: purgeConcurrency,
			Queues: map[string]int{
				queue: 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Second
			},
		},
	)

	mux := asynq.NewServeMux()

	return &Manager{
		client: client,
		server: server,
		mux:    mux,
		queue:  queue,
	}, nil
}

// EnqueueBlobPurge schedules removal of an orphaned blob with retries
func (m *Manager) EnqueueBlobPurge(ctx context.Context, payload *BlobPurgePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal purge payload: %w", err)
	}

	task := asynq.NewTask(TypeBlobPurge, data)

	opts := []asynq.Option{
		asynq.TaskID(payload.CheckpointID),
		asynq.Queue(m.queue),
		asynq.Timeout(purgeTimeout),
		asynq.MaxRetry(purgeMaxRetry),
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue blob purge: %w", err)
	}

	logger.InfoCtx(ctx, "blob purge enqueued, checkpoint_id: %s, queue: %s", payload.CheckpointID, info.Queue)

	return nil
}

// RegisterHandler registers task handler
func (m *Manager) RegisterHandler(pattern string, handler asynq.Handler) {
	m.mux.Handle(pattern, handler)
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting queue server")
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}

// GetPendingTaskCount retrieves pending purge count
func (m *Manager) GetPendingTaskCount() (int, error) {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     config.GlobalConfig.Redis.Addr,
		Password: config.GlobalConfig.Redis.Password,
		DB:       config.GlobalConfig.Redis.DB,
	})
	defer inspector.Close()

	stats, err := inspector.GetQueueInfo(m.queue)
	if err != nil {
		return 0, err
	}

	return stats.Pending, nil
}
