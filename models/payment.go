package models

import "time"

// PaymentOutcome is what the gateway reports for a session.
type PaymentOutcome string

const (
	OutcomePaid    PaymentOutcome = "paid"
	OutcomeFailed  PaymentOutcome = "failed"
	OutcomePending PaymentOutcome = "pending"
)

// PaymentSession is a checkout session created with the gateway.
type PaymentSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// PaymentVerification is the result of asking the gateway about a session.
type PaymentVerification struct {
	SessionID string         `json:"sessionId"`
	PaymentID string         `json:"paymentId,omitempty"`
	Outcome   PaymentOutcome `json:"outcome"`
	Amount    float64        `json:"amount"`
}

// RefundRequest is queued for the gateway and retried until it lands.
type RefundRequest struct {
	BookingID   string    `json:"bookingId"`
	BookingCode string    `json:"bookingCode"`
	SessionID   string    `json:"sessionId,omitempty"`
	PaymentID   string    `json:"paymentId,omitempty"`
	Amount      float64   `json:"amount"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requestedAt"`
}

// ReconcileResult is the typed outcome of feeding a payment result to the engine.
type ReconcileResult struct {
	Booking          *Booking `json:"booking,omitempty"`
	Confirmed        bool     `json:"confirmed"`
	AlreadyConfirmed bool     `json:"alreadyConfirmed,omitempty"`
	RequiresRefund   bool     `json:"requiresRefund"`
	RefundAmount     float64  `json:"refundAmount,omitempty"`
	Message          string   `json:"message"`
}
