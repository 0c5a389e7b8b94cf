package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"groundbook/models"
	"groundbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqRefundQueue puts refunds on the Redis-backed task queue. The worker
// in package cron calls the gateway and asynq retries failures.
type AsynqRefundQueue struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func (q *AsynqRefundQueue) Enqueue(ctx context.Context, req models.RefundRequest) error {
	task, opts, err := tasks.NewRefundTask(req)
	if err != nil {
		return fmt.Errorf("failed to build refund task: %w", err)
	}
	info, err := q.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		q.Logger.Info("refund already queued", zap.String("bookingId", req.BookingID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue refund for booking %s: %w", req.BookingID, err)
	}
	q.Logger.Info("refund queued",
		zap.String("bookingId", req.BookingID),
		zap.String("taskId", info.ID),
		zap.Float64("amount", req.Amount))
	return nil
}

// InlineRefundQueue calls the gateway from a goroutine with a bounded
// backoff. Used when no task queue is available.
type InlineRefundQueue struct {
	Gateway  Gateway
	Recorder RefundRecorder
	Logger   *zap.Logger
	Attempts int
	Backoff  time.Duration

	mu      sync.Mutex
	started map[string]bool
}

func (q *InlineRefundQueue) Enqueue(ctx context.Context, req models.RefundRequest) error {
	q.mu.Lock()
	if q.started == nil {
		q.started = make(map[string]bool)
	}
	key := refundKey(req)
	if q.started[key] {
		q.mu.Unlock()
		return nil
	}
	q.started[key] = true
	q.mu.Unlock()

	go q.run(req)
	return nil
}

func refundKey(req models.RefundRequest) string {
	return req.BookingID + "/" + req.PaymentID
}

// forget lets a later redrive pick the refund up again.
func (q *InlineRefundQueue) forget(req models.RefundRequest) {
	q.mu.Lock()
	delete(q.started, refundKey(req))
	q.mu.Unlock()
}

func (q *InlineRefundQueue) run(req models.RefundRequest) {
	attempts := q.Attempts
	if attempts <= 0 {
		attempts = 5
	}
	backoff := q.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := q.Gateway.Refund(ctx, req)
		if err == nil && q.Recorder != nil {
			if rerr := q.Recorder.RefundIssued(ctx, req); rerr != nil {
				q.Logger.Warn("refund issued but not recorded", zap.String("bookingId", req.BookingID), zap.Error(rerr))
			}
		}
		cancel()
		if err == nil {
			return
		}
		q.Logger.Warn("refund attempt failed",
			zap.String("bookingId", req.BookingID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * backoff)
	}
	q.forget(req)
	q.Logger.Error("refund abandoned after retries; left for the redrive sweep",
		zap.String("bookingId", req.BookingID),
		zap.Float64("amount", req.Amount))
}
