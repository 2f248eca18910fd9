package handler

import (
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/liveness"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/registry"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WorkerHandler handles worker lifecycle operations
type WorkerHandler struct {
	workers *registry.WorkerRegistry
	tracker *liveness.Tracker
}

// NewWorkerHandler creates a new worker handler
func NewWorkerHandler(workers *registry.WorkerRegistry, tracker *liveness.Tracker) *WorkerHandler {
	return &WorkerHandler{
		workers: workers,
		tracker: tracker,
	}
}

// Register admits a new worker
// POST /v1/workers
func (h *WorkerHandler) Register(c *gin.Context) {
	var req model.RegisterWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}

	worker, err := h.workers.Register(c.Request.Context(), &req)
	if err != nil {
		logger.WarnCtx(c.Request.Context(), "worker registration rejected: %v", err)
		writeError(c, err)
		return
	}

	writeCreated(c, worker)
}

// Deregister removes a worker
// DELETE /v1/workers/:worker_id
func (h *WorkerHandler) Deregister(c *gin.Context) {
	workerID := c.Param("worker_id")

	worker, err := h.workers.Deregister(c.Request.Context(), workerID)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, worker)
}

// Heartbeat refreshes worker liveness
// POST /v1/workers/:worker_id/heartbeat
func (h *WorkerHandler) Heartbeat(c *gin.Context) {
	workerID := c.Param("worker_id")

	var req model.HeartbeatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apperr.InvalidArgument("invalid request body: %v", err))
			return
		}
	}

	worker, err := h.tracker.Heartbeat(c.Request.Context(), workerID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	// server_time lets workers detect clock skew against the sweep
	writeOK(c, gin.H{
		"worker":      worker,
		"server_time": time.Now().UTC(),
	})
}

// List lists registered workers, optionally filtered by status
// GET /v1/workers?status=ACTIVE
func (h *WorkerHandler) List(c *gin.Context) {
	status := model.WorkerStatus(c.Query("status"))

	workers, err := h.workers.ListWorkers(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, gin.H{
		"workers": workers,
		"count":   len(workers),
	})
}

// Get retrieves a single worker
// GET /v1/workers/:worker_id
func (h *WorkerHandler) Get(c *gin.Context) {
	workerID := c.Param("worker_id")

	worker, err := h.workers.GetWorker(c.Request.Context(), workerID)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, worker)
}
