package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/checkpoint"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, production should use stricter checks
	},
}

// streamDoneMarker ends the chunk sequence
const streamDoneMarker = "done"

// StreamHandler accepts chunked checkpoint uploads over websocket.
// Protocol: one JSON text frame (header), then binary chunk frames,
// then a "done" text frame. The response is the same envelope the JSON
// endpoint returns.
type StreamHandler struct {
	manager   *checkpoint.Manager
	maxUpload int64
}

// NewStreamHandler creates a websocket upload handler
func NewStreamHandler(manager *checkpoint.Manager, maxUpload int64) *StreamHandler {
	return &StreamHandler{
		manager:   manager,
		maxUpload: maxUpload,
	}
}

// Upload handles a streamed checkpoint save
// GET /v1/checkpoints/stream (websocket)
func (h *StreamHandler) Upload(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "websocket upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()

	msgType, msg, err := ws.ReadMessage()
	if err != nil {
		logger.WarnCtx(ctx, "stream upload aborted before header: %v", err)
		return
	}
	if msgType != websocket.TextMessage {
		h.writeStreamError(ws, "first frame must be a JSON header")
		return
	}

	var header model.StreamHeader
	if err := json.Unmarshal(msg, &header); err != nil {
		h.writeStreamError(ws, "invalid stream header: "+err.Error())
		return
	}

	var data []byte
	for {
		msgType, chunk, err := ws.ReadMessage()
		if err != nil {
			logger.WarnCtx(ctx, "stream upload aborted mid-transfer, worker_id: %s: %v", header.WorkerID, err)
			return
		}

		if msgType == websocket.TextMessage {
			if string(chunk) == streamDoneMarker {
				break
			}
			h.writeStreamError(ws, "unexpected text frame during chunk transfer")
			return
		}

		data = append(data, chunk...)
		if h.maxUpload > 0 && int64(len(data)) > h.maxUpload {
			h.writeStreamError(ws, "stream exceeds max upload size")
			return
		}
	}

	cp, err := h.manager.SaveCheckpoint(ctx, &model.SaveCheckpointRequest{
		WorkerID:       header.WorkerID,
		Data:           data,
		Metadata:       header.Metadata,
		IdempotencyKey: header.IdempotencyKey,
	})
	if err != nil {
		logger.WarnCtx(ctx, "streamed checkpoint save failed, worker_id: %s, error: %v", header.WorkerID, err)
		h.writeStreamResult(ws, Response{
			Success: false,
			Code:    apperr.CodeOf(err),
			Message: err.Error(),
		})
		return
	}

	h.writeStreamResult(ws, Response{
		Success: true,
		Code:    apperr.CodeOK,
		Data:    cp,
	})
}

func (h *StreamHandler) writeStreamError(ws *websocket.Conn, msg string) {
	h.writeStreamResult(ws, Response{
		Success: false,
		Code:    apperr.CodeInvalidArgument,
		Message: msg,
	})
}

func (h *StreamHandler) writeStreamResult(ws *websocket.Conn, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		logger.Warnf("failed to write stream result: %v", err)
	}
}
