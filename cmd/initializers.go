package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/app/handler"
	"github.com/lloredia/pulsecheckpoint-runtime/app/router"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/checkpoint"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/liveness"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/registry"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/config"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"
	queue "github.com/lloredia/pulsecheckpoint-runtime/pkg/queue/asynq"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/store/blob"
	mysqlstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/mysql"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
	})
	return nil
}

// initMySQL initializes the checkpoint index store
func (app *Application) initMySQL() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	ds, err := mysqlstore.NewDatastore(dsn)
	if err != nil {
		return err
	}
	if err := ds.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate checkpoint schema: %w", err)
	}

	app.datastore = ds
	app.checkpointRepo = mysqlstore.NewCheckpointRepository(ds)
	app.registerCleanup(func() {
		ds.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes the worker and dataset registries' store
func (app *Application) initRedis() error {
	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.workerRepo = redisstore.NewWorkerRepository(client)
	app.datasetRepo = redisstore.NewDatasetRepository(client)
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initBlobStore initializes the checkpoint payload store
func (app *Application) initBlobStore() error {
	switch app.config.Storage.Provider {
	case "memory":
		app.blobStore = blob.NewMemoryStore()
	default:
		store, err := blob.NewS3Store(app.ctx, &app.config.Storage)
		if err != nil {
			return err
		}
		app.blobStore = store
	}
	return nil
}

// initQueue initializes the deferred blob purge queue
func (app *Application) initQueue() error {
	mgr, err := queue.NewManager(app.config)
	if err != nil {
		return err
	}

	mgr.RegisterHandler(queue.TypeBlobPurge, queue.NewBlobPurgeHandler(app.blobStore))

	app.queueManager = mgr
	app.registerCleanup(func() {
		mgr.Close()
		logger.InfoCtx(app.ctx, "Queue client has been closed")
	})

	return nil
}

// initCore initializes registries, liveness tracking and the
// checkpoint manager
func (app *Application) initCore() error {
	app.workerRegistry = registry.NewWorkerRegistry(app.workerRepo)
	app.datasetRegistry = registry.NewDatasetRegistry(app.datasetRepo)

	heartbeatTimeout := time.Duration(app.config.Worker.HeartbeatTimeout) * time.Second
	app.livenessTracker = liveness.NewTracker(app.workerRepo, heartbeatTimeout)

	app.checkpointManager = checkpoint.NewManager(
		app.checkpointRepo,
		app.blobStore,
		app.workerRegistry,
		app.queueManager,
		app.config.Checkpoint,
		app.config.Storage.MaxUploadBytes,
	)

	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.workerHandler = handler.NewWorkerHandler(app.workerRegistry, app.livenessTracker)
	app.datasetHandler = handler.NewDatasetHandler(app.datasetRegistry)
	app.checkpointHandler = handler.NewCheckpointHandler(app.checkpointManager)
	app.streamHandler = handler.NewStreamHandler(app.checkpointManager, app.config.Storage.MaxUploadBytes)
	app.healthHandler = handler.NewHealthHandler(app.redisClient, app.datastore, app.blobStore)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	gin.SetMode(app.config.Server.Mode)
	app.ginEngine = gin.New()

	r := router.NewRouter(
		app.workerHandler,
		app.datasetHandler,
		app.checkpointHandler,
		app.streamHandler,
		app.healthHandler,
	)
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
