package handlers

import (
	"net/http"

	"groundbook/services/availability"

	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	Service availability.AvailabilityService
}

func NewAvailabilityHandler(svc availability.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc}
}

// GetAvailabilityHandler handles GET /api/grounds/:id/availability?date=YYYY-MM-DD.
// The grid is advisory; creating a booking re-checks the slot.
func (h *AvailabilityHandler) GetAvailabilityHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "date is required", "field": "date"})
		return
	}
	grid, err := h.Service.DayGrid(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}
