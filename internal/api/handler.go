package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pipeline/internal/models"
	"pipeline/internal/pipeline"
	"pipeline/internal/repository"
	"pipeline/internal/systeminfo"
)

// Handler holds the read-only dependencies the admin routes report on.
type Handler struct {
	Registry *models.WorkerRegistry
	Executor *pipeline.Executor
	Jobs     repository.JobRepository
}

// NewHandler returns a Handler bound to the server's shared registry,
// executor (for its worker pools) and job store.
func NewHandler(registry *models.WorkerRegistry, executor *pipeline.Executor, jobs repository.JobRepository) *Handler {
	return &Handler{Registry: registry, Executor: executor, Jobs: jobs}
}

// Healthz reports the same readiness state as the stdio protocol's
// {"cmd":"health"} response, over HTTP.
func (h *Handler) Healthz(c *gin.Context) {
	loaded, errs := h.Registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"ready":         h.Registry.IsReady(),
		"models_loaded": loaded,
		"model_errors":  errs,
	})
}

// Metrics reports host memory and per-pool queue depth, the minimum an
// operator needs to see whether a stage is backing up.
func (h *Handler) Metrics(c *gin.Context) {
	metrics := gin.H{}

	if total, err := systeminfo.TotalMemoryBytes(); err == nil {
		metrics["total_memory_bytes"] = total
	}

	pools := make(map[string]any, len(h.Executor.Pools))
	for name, p := range h.Executor.Pools {
		pools[name] = p.Stats()
	}
	metrics["pools"] = pools

	c.JSON(http.StatusOK, metrics)
}

// GetJob reports one job's persisted record. 404 when unknown, 503 when no
// job store was configured.
func (h *Handler) GetJob(c *gin.Context) {
	if h.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job store not configured"})
		return
	}

	record, err := h.Jobs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	artifacts, _ := record.Artifacts()
	c.JSON(http.StatusOK, gin.H{
		"job_id":        record.JobID,
		"status":        record.Status,
		"artifacts":     artifacts,
		"error_message": record.ErrorMessage,
		"failed_stage":  record.FailedStage,
		"created_at":    record.CreatedAt,
		"updated_at":    record.UpdatedAt,
	})
}
