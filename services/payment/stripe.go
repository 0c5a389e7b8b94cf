package payment

import (
	"context"
	"fmt"
	"math"

	"groundbook/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// StripeGateway takes payments through Stripe Checkout. stripe.Key must be
// set before use.
type StripeGateway struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	Logger     *zap.Logger
}

// minorUnits converts an amount to the currency's smallest unit.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreateSession(ctx context.Context, b *models.Booking) (*models.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.SuccessURL),
		CancelURL:         stripe.String(g.CancelURL),
		ClientReferenceID: stripe.String(b.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.Currency),
				UnitAmount: stripe.Int64(minorUnits(b.Pricing.Total)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s %s %s", b.Code, b.Date, b.Range)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata("bookingId", b.ID)
	params.AddMetadata("bookingCode", b.Code)

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create session: %w", err)
	}
	g.Logger.Info("checkout session created", zap.String("bookingId", b.ID), zap.String("sessionId", s.ID))
	return &models.PaymentSession{SessionID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) Verify(ctx context.Context, sessionID string) (*models.PaymentVerification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get session %s: %w", sessionID, err)
	}

	v := &models.PaymentVerification{
		SessionID: s.ID,
		Amount:    float64(s.AmountTotal) / 100,
		Outcome:   models.OutcomePending,
	}
	if s.PaymentIntent != nil {
		v.PaymentID = s.PaymentIntent.ID
	}
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		v.Outcome = models.OutcomePaid
	case s.Status == stripe.CheckoutSessionStatusExpired:
		v.Outcome = models.OutcomeFailed
	}
	return v, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req models.RefundRequest) error {
	if req.PaymentID == "" {
		return fmt.Errorf("stripe: refund for booking %s has no payment id", req.BookingID)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentID),
	}
	if req.Amount > 0 {
		params.Amount = stripe.Int64(minorUnits(req.Amount))
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("refund-%s-%s-%d", req.BookingID, req.PaymentID, minorUnits(req.Amount)))
	params.AddMetadata("bookingId", req.BookingID)
	params.AddMetadata("reason", req.Reason)

	r, err := refund.New(params)
	if err != nil {
		return fmt.Errorf("stripe: refund booking %s: %w", req.BookingID, err)
	}
	g.Logger.Info("refund issued", zap.String("bookingId", req.BookingID), zap.String("refundId", r.ID))
	return nil
}
