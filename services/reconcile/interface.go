package reconcile

import (
	"context"

	"groundbook/models"
)

// ReconcileService runs the periodic sweeps that keep bookings and holds
// consistent when no request is driving them.
type ReconcileService interface {
	// ExpireUnpaid cancels pending bookings whose payment never completed.
	ExpireUnpaid(ctx context.Context) (int, error)
	// ExpireHolds drops expired standalone holds and expired embedded holds.
	ExpireHolds(ctx context.Context) (int64, error)
	// RepairDuplicates keeps the oldest of each group of identical active
	// bookings and cancels the rest.
	RepairDuplicates(ctx context.Context) (*RepairReport, error)
	// RedriveRefunds queues again the refunds of bookings that have been
	// refunding for longer than the retry window.
	RedriveRefunds(ctx context.Context) (int, error)
	// RefundIssued marks a refunding booking refunded once the gateway
	// accepted the refund.
	RefundIssued(ctx context.Context, req models.RefundRequest) error
}

// RepairReport summarises one duplicate repair run.
type RepairReport struct {
	Groups    int      `json:"groups"`
	Cancelled []string `json:"cancelled"`
	Refunded  []string `json:"refunded"`
	Skipped   []string `json:"skipped"`
}
