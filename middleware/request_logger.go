package middleware

import (
	"time"

	"groundbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLogger attaches a request-scoped logger to the context and logs
// each request once it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		logger := utils.GetLogger().With(zap.String("requestId", requestID))
		c.Set("logger", logger)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", getClientIP(c)),
			zap.Duration("latency", time.Since(start)))
	}
}
