package handler

import (
	"github.com/lloredia/pulsecheckpoint-runtime/internal/apperr"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/model"
	"github.com/lloredia/pulsecheckpoint-runtime/internal/registry"

	"github.com/gin-gonic/gin"
)

// DatasetHandler handles dataset registration operations
type DatasetHandler struct {
	datasets *registry.DatasetRegistry
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(datasets *registry.DatasetRegistry) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

// Register records a dataset (upsert)
// POST /v1/datasets
func (h *DatasetHandler) Register(c *gin.Context) {
	var req model.RegisterDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}

	dataset, err := h.datasets.Register(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, dataset)
}

// Get retrieves a single dataset
// GET /v1/datasets/:dataset_id
func (h *DatasetHandler) Get(c *gin.Context) {
	datasetID := c.Param("dataset_id")

	dataset, err := h.datasets.GetDataset(c.Request.Context(), datasetID)
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, dataset)
}

// List lists all registered datasets
// GET /v1/datasets
func (h *DatasetHandler) List(c *gin.Context) {
	datasets, err := h.datasets.ListDatasets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	writeOK(c, gin.H{
		"datasets": datasets,
		"count":    len(datasets),
	})
}
