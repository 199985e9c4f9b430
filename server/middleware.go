package server

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const sentryFlushTimeout = 2 * time.Second

// RequestTracking adds a request ID to every request and logs its
// completion.
func RequestTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		logger := log.WithFields(log.Fields{
			"request_id":  requestID,
			"duration_ms": time.Since(start).Milliseconds(),
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"client_ip":   c.ClientIP(),
		})
		switch {
		case statusCode >= http.StatusInternalServerError:
			logger.Error("Request failed with server error")
		case statusCode >= http.StatusBadRequest:
			logger.Warn("Request failed with client error")
		default:
			logger.Info("Request completed")
		}
	}
}

// SentryMiddleware reports panics and captured errors to Sentry.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// Recover turns panics into 500 responses. It runs outside of
// SentryMiddleware, which has already reported the panic when it
// re-panics.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(log.Fields{
					"request_id": c.GetString("request_id"),
					"path":       c.Request.URL.Path,
				}).Errorf("Panic recovered: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": c.GetString("request_id"),
				})
			}
		}()
		c.Next()
	}
}

// capture sends a server side error to Sentry when it is configured.
func capture(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", c.GetString("request_id"))
			hub.CaptureException(err)
		})
	}
}
