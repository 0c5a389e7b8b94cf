package handlers

import (
	"errors"
	"net/http"

	"groundbook/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeServiceError maps the booking error taxonomy onto HTTP responses.
func writeServiceError(c *gin.Context, err error) {
	var (
		verr     *models.ValidationError
		conflict *models.ConflictError
		terr     *models.TransitionError
		mismatch *models.PaymentMismatchError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "conflictingRange": conflict.ConflictingRange.String()})
	case errors.As(err, &terr):
		c.JSON(http.StatusConflict, gin.H{"error": terr.Error(), "status": terr.From})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusOK, gin.H{"requiresRefund": true, "message": "your payment is being refunded"})
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrExpiredHold):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrRateNotConfigured):
		getLogger(c).Error("Ground pricing is misconfigured", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		getLogger(c).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
