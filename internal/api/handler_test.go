package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pipeline/internal/models"
	"pipeline/internal/pipeline"
	"pipeline/internal/queue"
	"pipeline/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.JobRecord{}))
	return db
}

func TestHealthz_ReportsLoaderState(t *testing.T) {
	registry := models.NewWorkerRegistry()
	registry.MarkLoaded("resolver", nil)
	registry.CloseReady()

	router := SetupRoutes(NewHandler(registry, pipeline.New(t.TempDir()), nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":true`)
}

func TestMetrics_ReportsPoolStats(t *testing.T) {
	exec := pipeline.New(t.TempDir())
	exec.Pools["transcribe"] = queue.NewPool("transcribe", 2)

	router := SetupRoutes(NewHandler(models.NewWorkerRegistry(), exec, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "transcribe")
}

func TestGetJob_UnavailableWithoutStore(t *testing.T) {
	router := SetupRoutes(NewHandler(models.NewWorkerRegistry(), pipeline.New(t.TempDir()), nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/jobs/does-not-exist", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 503, rec.Code)
}

func TestGetJob_ReturnsPersistedRecord(t *testing.T) {
	jobs := repository.NewJobRepository(newTestDB(t))
	router := SetupRoutes(NewHandler(models.NewWorkerRegistry(), pipeline.New(t.TempDir()), jobs))

	require.NoError(t, jobs.Create(context.Background(), &models.JobRecord{
		JobID:        "job-789",
		Status:       models.JobDone,
		AudioRefJSON: "{}",
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/jobs/job-789", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_id":"job-789"`)
}
