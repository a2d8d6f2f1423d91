package handlers

import (
	"linewatch/internal/logger"
	"linewatch/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Health endpoint
	router.GET("/health", h.health)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerScoringRoutes(api)
		h.registerAlertRoutes(api)
	}
}

func (h *Handler) registerScoringRoutes(api *gin.RouterGroup) {
	// Body example: {"readings":[{"timestamp":"2026-01-02T15:04:05Z", ...}]}
	api.POST("/scores", h.scoreBatch)
	api.POST("/backtest", h.backtest)

	pipe := api.Group("/pipeline")
	{
		pipe.POST("/fit", h.fitPipeline)
		pipe.GET("/state", h.pipelineState)
	}
}

func (h *Handler) registerAlertRoutes(api *gin.RouterGroup) {
	api.GET("/alerts", h.getAlerts)
}
