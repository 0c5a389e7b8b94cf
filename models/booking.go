package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
)

// ActiveStatuses are the statuses that occupy a slot.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted}

// IsActive reports whether the status occupies its slot.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Payment statuses recorded on a booking.
const (
	PaymentStatusNone      = "none"
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunding = "refunding"
	PaymentStatusRefunded  = "refunded"
)

// Actors that can drive a transition.
const (
	ActorRequester = "requester"
	ActorOperator  = "operator"
	ActorSystem    = "system"
)

// Booking is the central reservation record for one ground, date and time range.
type Booking struct {
	ID           string        `bson:"id" json:"id"`                                       // Internal identifier (UUID)
	Code         string        `bson:"code" json:"code"`                                   // Human-readable code, immutable once assigned
	ResourceID   string        `bson:"resourceId" json:"resourceId"`                       // Ground being booked
	RequesterID  *string       `bson:"requesterId,omitempty" json:"requesterId,omitempty"` // nil for operator-created bookings
	Requester    RequesterInfo `bson:"requester" json:"requester"`                         // Contact details captured at creation
	Date         string        `bson:"date" json:"date"`                                   // Calendar day "YYYY-MM-DD"
	Range        TimeRange     `bson:"range" json:"range"`                                 // Requested slot
	Duration     float64       `bson:"duration" json:"duration"`                           // Hours, derived from Range
	Slots        []int         `bson:"slots" json:"slots"`                                 // Hour buckets covered; part of the uniqueness key
	Active       bool          `bson:"active" json:"-"`                                    // true while Status occupies the slot
	Status       BookingStatus `bson:"status" json:"status"`
	Pricing      Pricing       `bson:"pricing" json:"pricing"`
	Payment      PaymentInfo   `bson:"payment" json:"payment"`
	Hold         *HoldInfo     `bson:"hold,omitempty" json:"hold,omitempty"`                 // Present only while awaiting payment
	Cancellation *Cancellation `bson:"cancellation,omitempty" json:"cancellation,omitempty"` // Audit only
	Confirmation *Confirmation `bson:"confirmation,omitempty" json:"confirmation,omitempty"` // Audit only
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// RequesterInfo is the contact block supplied with a booking request.
type RequesterInfo struct {
	Name    string `bson:"name" json:"name" validate:"required,max=120"`
	Phone   string `bson:"phone" json:"phone" validate:"required,min=7,max=20"`
	Email   string `bson:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
	Players int    `bson:"players" json:"players" validate:"required,min=1"`
	Note    string `bson:"note,omitempty" json:"note,omitempty" validate:"max=500"`
}

// Pricing is the rate-weighted breakdown of a booking.
type Pricing struct {
	Base     float64 `bson:"base" json:"base"`
	Discount float64 `bson:"discount" json:"discount"`
	Fee      float64 `bson:"fee" json:"fee"`
	Total    float64 `bson:"total" json:"total"`
}

// PaymentInfo tracks the external payment session for a booking.
type PaymentInfo struct {
	SessionID   string     `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	CheckoutURL string     `bson:"checkoutUrl,omitempty" json:"checkoutUrl,omitempty"`
	PaymentID   string     `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Status      string     `bson:"status" json:"status"`
	PaidAt      *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// HoldInfo is the hold embedded in a booking awaiting payment.
type HoldInfo struct {
	ID        string    `bson:"id" json:"id"`
	Active    bool      `bson:"active" json:"active"`
	StartedAt time.Time `bson:"startedAt" json:"startedAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// Cancellation records who cancelled a booking and what was refunded.
type Cancellation struct {
	CancelledBy  string    `bson:"cancelledBy" json:"cancelledBy"`
	ActorID      string    `bson:"actorId,omitempty" json:"actorId,omitempty"`
	Reason       string    `bson:"reason" json:"reason"`
	RefundAmount float64   `bson:"refundAmount" json:"refundAmount"`
	CancelledAt  time.Time `bson:"cancelledAt" json:"cancelledAt"`
}

// Confirmation records how a booking was confirmed.
type Confirmation struct {
	ConfirmedBy string    `bson:"confirmedBy" json:"confirmedBy"`
	SessionID   string    `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	ConfirmedAt time.Time `bson:"confirmedAt" json:"confirmedAt"`
}

// CreateBookingRequest is the input to the reservation coordinator.
type CreateBookingRequest struct {
	ResourceID  string        `json:"resourceId" binding:"required"`
	Date        string        `json:"date" binding:"required"`
	Range       string        `json:"range" binding:"required"` // "HH:MM-HH:MM"
	HoldID      string        `json:"holdId,omitempty"`         // standalone hold owned by the caller, if any
	Requester   RequesterInfo `json:"requester"`
	RequesterID *string       `json:"-"`
}

// Actor is whoever asks for a transition.
type Actor struct {
	Role string // ActorRequester, ActorOperator or ActorSystem
	ID   string
}

// SystemActor is used by sweeps and payment reconciliation.
var SystemActor = Actor{Role: ActorSystem}
