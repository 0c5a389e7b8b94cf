package handlers

import (
	"net/http"

	"groundbook/middleware"
	"groundbook/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	Service booking.PaymentService
}

func NewPaymentHandler(svc booking.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

// CheckoutHandler handles POST /api/bookings/:id/checkout.
func (h *PaymentHandler) CheckoutHandler(c *gin.Context) {
	sess, err := h.Service.StartCheckout(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// VerifyPaymentHandler handles POST /api/payments/verify.
func (h *PaymentHandler) VerifyPaymentHandler(c *gin.Context) {
	var input struct {
		BookingID string `json:"bookingId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	res, err := h.Service.VerifyCheckout(c.Request.Context(), input.BookingID, middleware.ActorFrom(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if res.RequiresRefund {
		getLogger(c).Warn("Payment verified for a lost slot", zap.String("bookingId", input.BookingID), zap.Float64("refund", res.RefundAmount))
	}
	c.JSON(http.StatusOK, res)
}
