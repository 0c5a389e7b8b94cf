package models

import (
	"testing"
	"time"
)

func TestTransitionAllows(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	b := &Booking{Status: StatusPending, CreatedAt: created, Payment: PaymentInfo{Status: PaymentStatusPending}}

	cutoff := created.Add(-time.Second)
	tests := []struct {
		name string
		tr   Transition
		want bool
	}{
		{"status matches", Transition{From: []BookingStatus{StatusPending}}, true},
		{"status differs", Transition{From: []BookingStatus{StatusConfirmed}}, false},
		{"created too recently", Transition{From: []BookingStatus{StatusPending}, CreatedBefore: &cutoff}, false},
		{"created at cutoff", Transition{From: []BookingStatus{StatusPending}, CreatedBefore: &created}, true},
		{"payment not completed", Transition{PaymentNotCompleted: true}, true},
		{"payment status matches", Transition{PaymentIs: PaymentStatusPending}, true},
		{"payment status differs", Transition{PaymentIs: PaymentStatusRefunding}, false},
	}
	for _, tt := range tests {
		if got := tt.tr.Allows(b); got != tt.want {
			t.Errorf("%s: Allows = %v, want %v", tt.name, got, tt.want)
		}
	}

	b.Payment.Status = PaymentStatusCompleted
	if (Transition{PaymentNotCompleted: true}).Allows(b) {
		t.Error("completed payment allowed an unpaid-only transition")
	}
}

func TestTransitionApply(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	b := &Booking{
		Status:  StatusPending,
		Active:  true,
		Payment: PaymentInfo{SessionID: "cs_1", Status: PaymentStatusPending},
		Hold:    &HoldInfo{ID: "h1", Active: true},
	}
	Transition{
		To:           StatusCancelled,
		Payment:      &PaymentInfo{Status: PaymentStatusFailed},
		Cancellation: &Cancellation{CancelledBy: ActorSystem, Reason: "unpaid"},
		ClearHold:    true,
		At:           now,
	}.Apply(b)

	if b.Status != StatusCancelled || b.Active {
		t.Errorf("status %s active %v", b.Status, b.Active)
	}
	if b.Payment.SessionID != "cs_1" || b.Payment.Status != PaymentStatusFailed {
		t.Errorf("payment = %+v", b.Payment)
	}
	if b.Hold != nil || b.Cancellation == nil || !b.UpdatedAt.Equal(now) {
		t.Errorf("unexpected booking after apply: %+v", b)
	}
}
