// Package api implements the read-only HTTP admin surface (A5): health,
// metrics, and per-job status, running alongside the stdio control channel
// from C9. No authentication - these routes never accept input beyond a
// job id and never mutate state.
package api

import (
	"github.com/gin-gonic/gin"

	"pipeline/pkg/logger"
	"pipeline/pkg/middleware"
)

// SetupRoutes builds the admin router bound to handler. It mirrors the
// construction order of a Gin router built for a larger authenticated
// surface - recovery first, then access logging, then compression - minus
// the CORS and auth layers that surface had no use for here.
func SetupRoutes(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger.SetGinOutput()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(middleware.CompressionMiddleware())

	router.GET("/healthz", handler.Healthz)
	router.GET("/metrics", handler.Metrics)
	router.GET("/jobs/:id", handler.GetJob)

	return router
}
