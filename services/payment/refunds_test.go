package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"groundbook/models"

	"go.uber.org/zap"
)

type flakyGateway struct {
	*SimulatedGateway
	mu       sync.Mutex
	failures int
	calls    int
	done     chan struct{}
}

func (g *flakyGateway) Refund(ctx context.Context, req models.RefundRequest) error {
	g.mu.Lock()
	g.calls++
	fail := g.calls <= g.failures
	g.mu.Unlock()
	if fail {
		return errors.New("gateway unavailable")
	}
	defer close(g.done)
	return g.SimulatedGateway.Refund(ctx, req)
}

func TestInlineRefundQueueRetries(t *testing.T) {
	gw := &flakyGateway{SimulatedGateway: NewSimulatedGateway(zap.NewNop()), failures: 2, done: make(chan struct{})}
	q := &InlineRefundQueue{Gateway: gw, Logger: zap.NewNop(), Attempts: 5, Backoff: time.Millisecond}

	req := models.RefundRequest{BookingID: "b1", Amount: 1300}
	if err := q.Enqueue(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	select {
	case <-gw.done:
	case <-time.After(2 * time.Second):
		t.Fatal("refund never succeeded")
	}
	if got := gw.Refunds(); len(got) != 1 || got[0].BookingID != "b1" {
		t.Fatalf("refunds = %+v", got)
	}
}

type recordingRecorder struct {
	mu     sync.Mutex
	issued []models.RefundRequest
	done   chan struct{}
}

func (r *recordingRecorder) RefundIssued(ctx context.Context, req models.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued = append(r.issued, req)
	close(r.done)
	return nil
}

func TestInlineRefundQueueRecordsIssuedRefund(t *testing.T) {
	rec := &recordingRecorder{done: make(chan struct{})}
	q := &InlineRefundQueue{Gateway: NewSimulatedGateway(zap.NewNop()), Recorder: rec, Logger: zap.NewNop(), Attempts: 1, Backoff: time.Millisecond}

	if err := q.Enqueue(context.Background(), models.RefundRequest{BookingID: "b1", PaymentID: "pi_1", Amount: 650}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("issued refund never recorded")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.issued) != 1 || rec.issued[0].PaymentID != "pi_1" {
		t.Fatalf("recorded = %+v", rec.issued)
	}
}

func TestInlineRefundQueueForgetsAbandonedRefund(t *testing.T) {
	gw := &flakyGateway{SimulatedGateway: NewSimulatedGateway(zap.NewNop()), failures: 1, done: make(chan struct{})}
	q := &InlineRefundQueue{Gateway: gw, Logger: zap.NewNop(), Attempts: 1, Backoff: time.Millisecond}
	req := models.RefundRequest{BookingID: "b1", PaymentID: "pi_1", Amount: 1300}

	if err := q.Enqueue(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		running := q.started[refundKey(req)]
		q.mu.Unlock()
		if !running {
			break
		}
		select {
		case <-deadline:
			t.Fatal("abandoned refund still marked as started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := q.Enqueue(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	select {
	case <-gw.done:
	case <-time.After(2 * time.Second):
		t.Fatal("requeued refund never issued")
	}
}

func TestSimulatedGatewaySettle(t *testing.T) {
	gw := NewSimulatedGateway(zap.NewNop())
	ctx := context.Background()
	s, err := gw.CreateSession(ctx, &models.Booking{ID: "b1", Pricing: models.Pricing{Total: 1300}})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := gw.Verify(ctx, s.SessionID)
	if v.Outcome != models.OutcomePending {
		t.Fatalf("new session outcome = %s", v.Outcome)
	}
	if err := gw.Settle(s.SessionID, models.OutcomePaid); err != nil {
		t.Fatal(err)
	}
	v, _ = gw.Verify(ctx, s.SessionID)
	if v.Outcome != models.OutcomePaid || v.PaymentID == "" || v.Amount != 1300 {
		t.Fatalf("verification = %+v", v)
	}
}
