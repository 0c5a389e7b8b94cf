package handlers

import (
	"net/http"

	"groundbook/middleware"
	"groundbook/services/reconcile"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes operator-triggered maintenance.
type AdminHandler struct {
	Reconcile reconcile.ReconcileService
}

func NewAdminHandler(rs reconcile.ReconcileService) *AdminHandler {
	return &AdminHandler{Reconcile: rs}
}

// RepairDuplicatesHandler handles POST /api/admin/reconcile/duplicates.
func (ah *AdminHandler) RepairDuplicatesHandler(c *gin.Context) {
	report, err := ah.Reconcile.RepairDuplicates(c.Request.Context())
	if err != nil {
		zap.L().Error("Failed to repair duplicate bookings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to repair duplicates"})
		return
	}
	zap.L().Info("Duplicate repair triggered", zap.String("operatorId", middleware.ActorFrom(c).ID), zap.Int("groups", report.Groups))
	c.JSON(http.StatusOK, report)
}

// ExpireNowHandler handles POST /api/admin/reconcile/expire and runs both
// expiry sweeps immediately.
func (ah *AdminHandler) ExpireNowHandler(c *gin.Context) {
	ctx := c.Request.Context()
	bookings, err := ah.Reconcile.ExpireUnpaid(ctx)
	if err != nil {
		zap.L().Error("Failed to expire unpaid bookings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to expire unpaid bookings"})
		return
	}
	holds, err := ah.Reconcile.ExpireHolds(ctx)
	if err != nil {
		zap.L().Error("Failed to expire holds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to expire holds"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expiredBookings": bookings, "expiredHolds": holds})
}
