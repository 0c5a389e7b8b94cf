package handlers

import (
	"net/http"

	"groundbook/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles GET /healthz from the last background snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy && !status.CheckedAt.IsZero() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "message": "Hi, I'm Groundbook"})
}
