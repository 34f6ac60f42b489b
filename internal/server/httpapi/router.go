package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/notecompanion/pipeline/internal/logging"
)

// NewRouter assembles the gin engine with auth middleware and routes.
func NewRouter(h *Handlers, logger logging.Logger, jwtSecret []byte, cronSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	api := router.Group("/api")

	// Cron-triggered worker pass.
	api.GET("/process", CronAuthMiddleware(cronSecret), h.Trigger)

	// Client-facing endpoints.
	authed := api.Group("", AuthMiddleware(jwtSecret))
	authed.POST("/upload", h.Upload)
	authed.GET("/files/:id/status", h.Status)
	authed.POST("/files/:id/reprocess", h.Reprocess)
	authed.GET("/usage", h.Usage)

	return router
}
