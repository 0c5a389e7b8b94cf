package events

import (
	"context"
	"time"

	"groundbook/models"
)

// Routing keys published on the lifecycle exchange.
const (
	BookingCreated         = "booking.created"
	BookingConfirmed       = "booking.confirmed"
	BookingCancelled       = "booking.cancelled"
	BookingExpired         = "booking.expired"
	BookingCompleted       = "booking.completed"
	BookingNoShow          = "booking.no_show"
	BookingRefundRequested = "booking.refund_requested"
)

// Event is the message body for every booking lifecycle change.
type Event struct {
	Type         string               `json:"type"`
	BookingID    string               `json:"bookingId"`
	Code         string               `json:"code"`
	ResourceID   string               `json:"resourceId"`
	Date         string               `json:"date"`
	Range        string               `json:"range"`
	Status       models.BookingStatus `json:"status"`
	Actor        string               `json:"actor,omitempty"`
	RefundAmount float64              `json:"refundAmount,omitempty"`
	OccurredAt   time.Time            `json:"occurredAt"`
}

// FromBooking builds an event of type typ for b.
func FromBooking(typ string, b *models.Booking, at time.Time) Event {
	e := Event{
		Type:       typ,
		BookingID:  b.ID,
		Code:       b.Code,
		ResourceID: b.ResourceID,
		Date:       b.Date,
		Range:      b.Range.String(),
		Status:     b.Status,
		OccurredAt: at,
	}
	if b.Cancellation != nil {
		e.Actor = b.Cancellation.CancelledBy
		e.RefundAmount = b.Cancellation.RefundAmount
	}
	return e
}

// Publisher delivers lifecycle events. Delivery is best effort: a failed
// publish never undoes the state change that produced it.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
