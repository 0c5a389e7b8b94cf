package models

import "time"

// Transition is a conditional update applied atomically to one booking.
// The update only lands when the stored booking still satisfies every precondition.
type Transition struct {
	From                []BookingStatus
	CreatedBefore       *time.Time
	PaymentNotCompleted bool
	PaymentIs           string // when set, the stored payment status must equal it

	To           BookingStatus // empty leaves the status unchanged
	Payment      *PaymentInfo  // Status is always written; other fields only when set
	Cancellation *Cancellation
	Confirmation *Confirmation
	ClearHold    bool
	At           time.Time
}

// Allows reports whether b currently satisfies the transition's preconditions.
func (t Transition) Allows(b *Booking) bool {
	if len(t.From) > 0 {
		ok := false
		for _, s := range t.From {
			if b.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if t.CreatedBefore != nil && b.CreatedAt.After(*t.CreatedBefore) {
		return false
	}
	if t.PaymentNotCompleted && b.Payment.Status == PaymentStatusCompleted {
		return false
	}
	if t.PaymentIs != "" && b.Payment.Status != t.PaymentIs {
		return false
	}
	return true
}

// Apply writes the transition onto b. Stores that cannot express the update
// natively call this inside their own atomic section.
func (t Transition) Apply(b *Booking) {
	if t.To != "" {
		b.Status = t.To
		b.Active = t.To.IsActive()
	}
	if t.Payment != nil {
		b.Payment.Status = t.Payment.Status
		if t.Payment.SessionID != "" {
			b.Payment.SessionID = t.Payment.SessionID
		}
		if t.Payment.PaymentID != "" {
			b.Payment.PaymentID = t.Payment.PaymentID
		}
		if t.Payment.PaidAt != nil {
			paid := *t.Payment.PaidAt
			b.Payment.PaidAt = &paid
		}
	}
	if t.Cancellation != nil {
		c := *t.Cancellation
		b.Cancellation = &c
	}
	if t.Confirmation != nil {
		c := *t.Confirmation
		b.Confirmation = &c
	}
	if t.ClearHold {
		b.Hold = nil
	}
	b.UpdatedAt = t.At
}

// Target returns the status the transition moves to, or from when unchanged.
func (t Transition) Target(from BookingStatus) BookingStatus {
	if t.To == "" {
		return from
	}
	return t.To
}
