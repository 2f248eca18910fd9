package router

import (
	"github.com/lloredia/pulsecheckpoint-runtime/app/handler"
	"github.com/lloredia/pulsecheckpoint-runtime/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	workerHandler     *handler.WorkerHandler
	datasetHandler    *handler.DatasetHandler
	checkpointHandler *handler.CheckpointHandler
	streamHandler     *handler.StreamHandler
	healthHandler     *handler.HealthHandler
}

// NewRouter creates a new Router
func NewRouter(workerHandler *handler.WorkerHandler, datasetHandler *handler.DatasetHandler, checkpointHandler *handler.CheckpointHandler, streamHandler *handler.StreamHandler, healthHandler *handler.HealthHandler) *Router {
	return &Router{
		workerHandler:     workerHandler,
		datasetHandler:    datasetHandler,
		checkpointHandler: checkpointHandler,
		streamHandler:     streamHandler,
		healthHandler:     healthHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		// Worker lifecycle
		workers := v1.Group("/workers")
		{
			workers.POST("", r.workerHandler.Register)
			workers.GET("", r.workerHandler.List)
			workers.GET("/:worker_id", r.workerHandler.Get)
			workers.DELETE("/:worker_id", r.workerHandler.Deregister)
			workers.POST("/:worker_id/heartbeat", r.workerHandler.Heartbeat)
		}

		// Dataset registration
		datasets := v1.Group("/datasets")
		{
			datasets.POST("", r.datasetHandler.Register)
			datasets.GET("", r.datasetHandler.List)
			datasets.GET("/:dataset_id", r.datasetHandler.Get)
		}

		// Checkpoint persistence
		checkpoints := v1.Group("/checkpoints")
		{
			checkpoints.POST("", r.checkpointHandler.Save)
			checkpoints.GET("", r.checkpointHandler.List)
			checkpoints.GET("/stream", r.streamHandler.Upload)
			checkpoints.GET("/:checkpoint_id", r.checkpointHandler.Get)
			checkpoints.DELETE("/:checkpoint_id", r.checkpointHandler.Delete)
		}
	}

	// Health check
	engine.GET("/health", r.healthHandler.Check)
}
