package handlers

import (
	"errors"
	"net/http"

	"groundbook/middleware"
	"groundbook/models"
	"groundbook/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	Reservation booking.ReservationService
	Lifecycle   booking.LifecycleService
}

func NewBookingHandler(rs booking.ReservationService, ls booking.LifecycleService) *BookingHandler {
	return &BookingHandler{Reservation: rs, Lifecycle: ls}
}

// CreateBookingHandler handles POST /api/bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	logger := getLogger(c)
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	if actor.Role == models.ActorRequester {
		id := actor.ID
		req.RequesterID = &id
	}

	b, err := h.Reservation.CreateBooking(c.Request.Context(), req)
	if err != nil {
		logger.Info("Booking rejected", zap.String("resourceId", req.ResourceID), zap.String("date", req.Date), zap.String("range", req.Range), zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBookingHandler handles GET /api/bookings/:id. Requesters only see their own bookings.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Reservation.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	actor := middleware.ActorFrom(c)
	if !booking.VisibleTo(b, actor) {
		writeServiceError(c, models.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateBookingStatusHandler handles PATCH /api/bookings/:id.
func (h *BookingHandler) UpdateBookingStatusHandler(c *gin.Context) {
	var input struct {
		Status models.BookingStatus `json:"status" binding:"required"`
		Reason string               `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if !input.Status.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown status", "field": "status"})
		return
	}

	b, err := h.Lifecycle.UpdateStatus(c.Request.Context(), c.Param("id"), input.Status, middleware.ActorFrom(c), input.Reason)
	if errors.Is(err, models.ErrAlreadyConfirmed) {
		c.JSON(http.StatusOK, gin.H{"booking": b, "alreadyConfirmed": true})
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp := gin.H{"booking": b}
	if b.Cancellation != nil && b.Status == models.StatusCancelled {
		resp["refundAmount"] = b.Cancellation.RefundAmount
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteBookingHandler handles DELETE /api/bookings/:id.
func (h *BookingHandler) DeleteBookingHandler(c *gin.Context) {
	if err := h.Lifecycle.Delete(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
