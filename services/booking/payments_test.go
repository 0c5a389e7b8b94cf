package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"groundbook/models"
	"groundbook/services/payment"

	"go.uber.org/zap"
)

var owner = models.Actor{Role: models.ActorRequester, ID: "u1"}

func withGateway(f *fixture) *payment.SimulatedGateway {
	gw := payment.NewSimulatedGateway(zap.NewNop())
	f.payments.Gateway = gw
	return gw
}

func TestCheckoutConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	gw := withGateway(f)
	ctx := context.Background()
	b := f.create(t, "17:00-19:00", "u1")

	sess, err := f.payments.StartCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}

	res, err := f.payments.VerifyCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("VerifyCheckout while pending: %v", err)
	}
	if res.Confirmed || res.Booking.Status != models.StatusPending {
		t.Fatalf("confirmed before payment: %+v", res)
	}

	if err := gw.Settle(sess.SessionID, models.OutcomePaid); err != nil {
		t.Fatal(err)
	}
	res, err = f.payments.VerifyCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("VerifyCheckout: %v", err)
	}
	if !res.Confirmed || res.AlreadyConfirmed || res.RequiresRefund {
		t.Fatalf("result = %+v", res)
	}
	if res.Booking.Payment.Status != models.PaymentStatusCompleted || res.Booking.Payment.PaidAt == nil {
		t.Errorf("payment = %+v", res.Booking.Payment)
	}

	res, err = f.payments.VerifyCheckout(ctx, b.ID, owner)
	if err != nil || !res.AlreadyConfirmed {
		t.Fatalf("repeat verification: %v, %+v", err, res)
	}
	if len(f.refunds.all()) != 0 {
		t.Errorf("unexpected refunds %+v", f.refunds.all())
	}
}

func TestPaymentAfterSlotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.create(t, "17:00-19:00", "u1")

	f.clock.Advance(6 * time.Minute)
	if _, err := f.lifecycle.Expire(ctx, late.ID); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	winner := f.create(t, "17:00-19:00", "u2")

	res, err := f.payments.OnPaymentVerified(ctx, late.ID, models.PaymentVerification{
		SessionID: "cs_late", PaymentID: "pi_late", Outcome: models.OutcomePaid, Amount: 1300,
	})
	if err != nil {
		t.Fatalf("OnPaymentVerified: %v", err)
	}
	if res.Confirmed || !res.RequiresRefund || res.RefundAmount != 1300 {
		t.Fatalf("result = %+v", res)
	}
	if res.Booking.Status != models.StatusCancelled || res.Booking.Payment.Status != models.PaymentStatusRefunding {
		t.Errorf("late booking = %s/%s", res.Booking.Status, res.Booking.Payment.Status)
	}
	if c := res.Booking.Cancellation; c == nil || c.Reason != lostSlotReason || c.RefundAmount != 1300 || c.CancelledAt != t0.Add(6*time.Minute) {
		t.Errorf("cancellation = %+v", c)
	}

	queued := f.refunds.all()
	if len(queued) != 1 || queued[0].PaymentID != "pi_late" || queued[0].Amount != 1300 {
		t.Errorf("queued refunds = %+v", queued)
	}

	w, err := f.bookings.GetByID(ctx, winner.ID)
	if err != nil || w.Status != models.StatusPending || !w.Active {
		t.Errorf("winning booking disturbed: %v, %+v", err, w)
	}

	// A retried webhook must not queue a second refund.
	res, err = f.payments.OnPaymentVerified(ctx, late.ID, models.PaymentVerification{
		SessionID: "cs_late", PaymentID: "pi_late", Outcome: models.OutcomePaid, Amount: 1300,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.RequiresRefund || res.RefundAmount != 1300 {
		t.Errorf("retried result = %+v", res)
	}
	if n := len(f.refunds.all()); n != 1 {
		t.Errorf("refunds queued = %d, want 1", n)
	}
}

func TestPaymentForUnknownBooking(t *testing.T) {
	f := newFixture(t)
	res, err := f.payments.OnPaymentVerified(context.Background(), "missing", models.PaymentVerification{
		SessionID: "cs_x", PaymentID: "pi_x", Outcome: models.OutcomePaid, Amount: 500,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.RequiresRefund || len(f.refunds.all()) != 1 {
		t.Fatalf("result = %+v, refunds %+v", res, f.refunds.all())
	}
}

func TestPaymentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, "17:00-19:00", "u1")

	res, err := f.payments.OnPaymentVerified(ctx, b.ID, models.PaymentVerification{SessionID: "cs_1", Outcome: models.OutcomeFailed})
	if err != nil {
		t.Fatal(err)
	}
	if res.Booking.Status != models.StatusPending || res.Booking.Payment.Status != models.PaymentStatusFailed {
		t.Fatalf("after failure without cancel: %s/%s", res.Booking.Status, res.Booking.Payment.Status)
	}

	f.payments.CancelOnFailure = true
	res, err = f.payments.OnPaymentVerified(ctx, b.ID, models.PaymentVerification{SessionID: "cs_1", Outcome: models.OutcomeFailed})
	if err != nil {
		t.Fatal(err)
	}
	if res.Booking.Status != models.StatusCancelled {
		t.Fatalf("after failure with cancel: %s", res.Booking.Status)
	}
	f.create(t, "17:00-19:00", "u2")
}

func TestStartCheckoutRequiresPending(t *testing.T) {
	f := newFixture(t)
	withGateway(f)
	b := f.confirmPaid(t, f.create(t, "17:00-19:00", "u1"))
	if _, err := f.payments.StartCheckout(context.Background(), b.ID, owner); err == nil {
		t.Fatal("checkout opened for confirmed booking")
	}
}

func TestCheckoutReusesPendingSession(t *testing.T) {
	f := newFixture(t)
	gw := withGateway(f)
	ctx := context.Background()
	b := f.create(t, "17:00-19:00", "u1")

	first, err := f.payments.StartCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	second, err := f.payments.StartCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("second StartCheckout: %v", err)
	}
	if second.SessionID != first.SessionID || second.URL != first.URL {
		t.Fatalf("second checkout opened %+v, want %+v", second, first)
	}

	if err := gw.Settle(first.SessionID, models.OutcomePaid); err != nil {
		t.Fatal(err)
	}
	res, err := f.payments.VerifyCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("VerifyCheckout: %v", err)
	}
	if !res.Confirmed || res.Booking.Payment.SessionID != first.SessionID {
		t.Fatalf("result = %+v", res)
	}
}

func TestCheckoutAfterPaidSessionConfirms(t *testing.T) {
	f := newFixture(t)
	gw := withGateway(f)
	ctx := context.Background()
	b := f.create(t, "17:00-19:00", "u1")

	sess, err := f.payments.StartCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.Settle(sess.SessionID, models.OutcomePaid); err != nil {
		t.Fatal(err)
	}
	if _, err := f.payments.StartCheckout(ctx, b.ID, owner); err == nil {
		t.Fatal("new session opened over a paid one")
	}
	stored, err := f.bookings.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusConfirmed || stored.Payment.SessionID != sess.SessionID {
		t.Errorf("booking = %s, session %s", stored.Status, stored.Payment.SessionID)
	}
}

func TestCheckoutReplacesFailedSession(t *testing.T) {
	f := newFixture(t)
	gw := withGateway(f)
	ctx := context.Background()
	b := f.create(t, "17:00-19:00", "u1")

	first, err := f.payments.StartCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.Settle(first.SessionID, models.OutcomeFailed); err != nil {
		t.Fatal(err)
	}
	second, err := f.payments.StartCheckout(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("retry checkout: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatal("failed session handed out again")
	}
}

func TestCheckoutHidesOtherRequestersBooking(t *testing.T) {
	f := newFixture(t)
	withGateway(f)
	ctx := context.Background()
	b := f.create(t, "17:00-19:00", "u1")
	stranger := models.Actor{Role: models.ActorRequester, ID: "u2"}

	if _, err := f.payments.StartCheckout(ctx, b.ID, stranger); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("StartCheckout by stranger: got %v, want ErrNotFound", err)
	}
	if _, err := f.payments.StartCheckout(ctx, b.ID, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := f.payments.VerifyCheckout(ctx, b.ID, stranger); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("VerifyCheckout by stranger: got %v, want ErrNotFound", err)
	}
	if _, err := f.payments.VerifyCheckout(ctx, b.ID, models.Actor{Role: models.ActorOperator, ID: "op"}); err != nil {
		t.Errorf("VerifyCheckout by operator: %v", err)
	}
}
