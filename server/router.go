// Package server exposes the player over HTTP: upload and train,
// generate and download, and settings.
package server

import (
	"github.com/felipetovarhenao/markov-feedback/config"
	"github.com/felipetovarhenao/markov-feedback/player"
	"github.com/gin-gonic/gin"
)

// maxUpload bounds the memory used to parse multipart uploads.
const maxUpload = 32 << 20

// SetupRouter wires the handlers of the player. Sentry middleware is
// only installed when a DSN is configured.
func SetupRouter(p *player.Player, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUpload

	router.Use(Recover())
	if cfg.SentryDSN != "" {
		router.Use(SentryMiddleware())
	}
	router.Use(RequestTracking())

	h := NewHandler(p)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
		api.POST("/train", h.Train)
		api.POST("/generate", h.Generate)
		api.GET("/model", h.Model)
	}
	return router
}
