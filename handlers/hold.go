package handlers

import (
	"net/http"

	"groundbook/middleware"
	"groundbook/models"
	"groundbook/services/hold"

	"github.com/gin-gonic/gin"
)

type HoldHandler struct {
	Service hold.HoldService
}

func NewHoldHandler(svc hold.HoldService) *HoldHandler {
	return &HoldHandler{Service: svc}
}

// AcquireHoldHandler handles POST /api/holds.
func (h *HoldHandler) AcquireHoldHandler(c *gin.Context) {
	var req models.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.RequesterID = middleware.ActorFrom(c).ID

	receipt, err := h.Service.Acquire(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ReleaseHoldHandler handles DELETE /api/holds/:id. Releasing twice is fine.
func (h *HoldHandler) ReleaseHoldHandler(c *gin.Context) {
	if err := h.Service.Release(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
