package handler

import (
	"encoding/base64"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/checkpoint"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CheckpointHandler handles checkpoint persistence operations
type CheckpointHandler struct {
	manager *checkpoint.Manager
}

// NewCheckpointHandler creates a new checkpoint handler
func NewCheckpointHandler(manager *checkpoint.Manager) *CheckpointHandler {
	return &CheckpointHandler{manager: manager}
}

// Save durably persists a checkpoint payload
// POST /v1/checkpoints
func (h *CheckpointHandler) Save(c *gin.Context) {
	var req model.SaveCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}

	cp, err := h.manager.SaveCheckpoint(c.Request.Context(), &req)
	if err != nil {
		logger.WarnCtx(c.Request.Context(), "checkpoint save failed, worker_id: %s, error: %v", req.WorkerID, err)
		writeError(c, err)
		return
	}

	writeCreated(c, cp)
}

// Get retrieves a checkpoint record, with payload when include_data=true
// GET /v1/checkpoints/:checkpoint_id?include_data=true
func (h *CheckpointHandler) Get(c *gin.Context) {
	checkpointID := c.Param("checkpoint_id")
	includeData := c.Query("include_data") == "true"

	cp, data, err := h.manager.GetCheckpoint(c.Request.Context(), checkpointID, includeData)
	if err != nil {
		writeError(c, err)
		return
	}

	if !includeData {
		writeOK(c, cp)
		return
	}

	writeOK(c, gin.H{
		"checkpoint": cp,
		"data":       base64.StdEncoding.EncodeToString(data),
	})
}

// List lists checkpoints most recent first
// GET /v1/checkpoints?worker_id=w1&status=COMPLETED
func (h *CheckpointHandler) List(c *gin.Context) {
	workerID := c.Query("worker_id")
	status := model.CheckpointStatus(c.Query("status"))

	checkpoints, err := h.manager.ListCheckpoints(c.Request.Context(), workerID, status)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, gin.H{
		"checkpoints": checkpoints,
		"count":       len(checkpoints),
	})
}

// Delete removes a checkpoint record and its blob
// DELETE /v1/checkpoints/:checkpoint_id
func (h *CheckpointHandler) Delete(c *gin.Context) {
	checkpointID := c.Param("checkpoint_id")

	cp, err := h.manager.DeleteCheckpoint(c.Request.Context(), checkpointID)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, cp)
}
