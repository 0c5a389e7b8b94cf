package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"groundbook/models"
	"groundbook/services/payment"
	"groundbook/services/reconcile"
	"groundbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type failingGateway struct {
	*payment.SimulatedGateway
}

func (failingGateway) Refund(ctx context.Context, req models.RefundRequest) error {
	return errors.New("gateway unavailable")
}

func TestRefundTaskHandler(t *testing.T) {
	gw := payment.NewSimulatedGateway(zap.NewNop())
	task, _, err := tasks.NewRefundTask(models.RefundRequest{BookingID: "b1", Amount: 650})
	if err != nil {
		t.Fatal(err)
	}

	recorder := &countingSweeps{}
	if err := handleRefundTask(gw, recorder, zap.NewNop())(context.Background(), task); err != nil {
		t.Fatalf("refund handler: %v", err)
	}
	if refunds := gw.Refunds(); len(refunds) != 1 || refunds[0].Amount != 650 {
		t.Fatalf("refunds = %+v", refunds)
	}
	if len(recorder.issued) != 1 || recorder.issued[0].BookingID != "b1" {
		t.Fatalf("recorded refunds = %+v", recorder.issued)
	}

	failing := failingGateway{payment.NewSimulatedGateway(zap.NewNop())}
	if err := handleRefundTask(failing, recorder, zap.NewNop())(context.Background(), task); err == nil {
		t.Fatal("gateway failure swallowed; the task would not be retried")
	}
	if len(recorder.issued) != 1 {
		t.Fatalf("failed refund recorded as issued: %+v", recorder.issued)
	}

	recorder.failRecord = true
	if err := handleRefundTask(gw, recorder, zap.NewNop())(context.Background(), task); err == nil {
		t.Fatal("unrecorded refund reported as done")
	}

	bad := asynq.NewTask(tasks.TypeRefundPayment, []byte("{"))
	if err := handleRefundTask(gw, recorder, zap.NewNop())(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("invalid payload: got %v, want SkipRetry", err)
	}
}

type countingSweeps struct {
	mu         sync.Mutex
	unpaid     int
	holds      int
	repairs    int
	redrives   int
	issued     []models.RefundRequest
	failRecord bool
}

func (c *countingSweeps) ExpireUnpaid(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unpaid++
	return 0, nil
}

func (c *countingSweeps) ExpireHolds(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holds++
	return 0, nil
}

func (c *countingSweeps) RepairDuplicates(ctx context.Context) (*reconcile.RepairReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repairs++
	return &reconcile.RepairReport{}, nil
}

func (c *countingSweeps) RedriveRefunds(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redrives++
	return 0, nil
}

func (c *countingSweeps) RefundIssued(ctx context.Context, req models.RefundRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRecord {
		return errors.New("store unavailable")
	}
	c.issued = append(c.issued, req)
	return nil
}

func (c *countingSweeps) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unpaid, c.holds
}

func TestSweepTicker(t *testing.T) {
	sweeps := &countingSweeps{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartSweepTicker(ctx, sweeps, 5*time.Millisecond, 10*time.Millisecond, zap.NewNop())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		unpaid, holds := sweeps.counts()
		if unpaid >= 2 && holds >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("sweeps ran unpaid=%d holds=%d", unpaid, holds)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop on cancel")
	}
}

func TestSweepHandlers(t *testing.T) {
	sweeps := &countingSweeps{}
	ctx := context.Background()
	for _, h := range []asynq.HandlerFunc{
		handleExpireUnpaid(sweeps, zap.NewNop()),
		handleExpireHolds(sweeps, zap.NewNop()),
		handleRepairDuplicates(sweeps, zap.NewNop()),
		handleRedriveRefunds(sweeps, zap.NewNop()),
	} {
		if err := h(ctx, asynq.NewTask("sweep", nil)); err != nil {
			t.Fatal(err)
		}
	}
	if sweeps.unpaid != 1 || sweeps.holds != 1 || sweeps.repairs != 1 || sweeps.redrives != 1 {
		t.Fatalf("sweeps = %+v", sweeps)
	}
}

func TestSweepsDefaults(t *testing.T) {
	got := Sweeps(0, 30*time.Second)
	if len(got) != 4 {
		t.Fatalf("got %d sweeps", len(got))
	}
	if got[0].Every != DefaultExpiryInterval || got[1].Every != 30*time.Second || got[2].Every != DuplicateRepairInterval ||
		got[3].Type != tasks.TypeRedriveRefunds || got[3].Every != RefundRedriveInterval {
		t.Errorf("sweeps = %+v", got)
	}
}
