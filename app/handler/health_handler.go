package handler

import (
	"net/http"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/store/blob"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/store/mysql"
	redisstore "github.com/lloredia/pulsecheckpoint-runtime/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// HealthHandler reports per-component health
type HealthHandler struct {
	redisClient *redisstore.RedisClient
	datastore   *mysql.Datastore
	blobStore   blob.Store
	startedAt   time.Time
}

// NewHealthHandler creates a health handler
func NewHealthHandler(redisClient *redisstore.RedisClient, datastore *mysql.Datastore, blobStore blob.Store) *HealthHandler {
	return &HealthHandler{
		redisClient: redisClient,
		datastore:   datastore,
		blobStore:   blobStore,
		startedAt:   time.Now(),
	}
}

// Check probes each backing component
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	components := map[string]string{}
	healthy := true

	if err := h.redisClient.Ping(ctx); err != nil {
		components["redis"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		components["redis"] = "healthy"
	}

	if err := h.datastore.Ping(ctx); err != nil {
		components["mysql"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		components["mysql"] = "healthy"
	}

	if _, err := h.blobStore.Exists(ctx, "health/probe"); err != nil {
		components["storage"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		components["storage"] = "healthy"
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"version":    Version,
		"uptime":     time.Since(h.startedAt).Truncate(time.Second).String(),
		"components": components,
	})
}
