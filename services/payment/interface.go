package payment

import (
	"context"

	"groundbook/models"
)

// Gateway is the external payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, b *models.Booking) (*models.PaymentSession, error)
	Verify(ctx context.Context, sessionID string) (*models.PaymentVerification, error)
	Refund(ctx context.Context, req models.RefundRequest) error
}

// RefundRecorder is told when the gateway has accepted a refund, so the
// booking can leave the refunding state.
type RefundRecorder interface {
	RefundIssued(ctx context.Context, req models.RefundRequest) error
}

// RefundQueue hands refunds to the gateway asynchronously with retries.
// Enqueue must be safe to call more than once for the same booking.
type RefundQueue interface {
	Enqueue(ctx context.Context, req models.RefundRequest) error
}
