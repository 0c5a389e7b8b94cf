package cron

import (
	"context"
	"fmt"
	"time"

	"groundbook/services/payment"
	"groundbook/services/reconcile"
	"groundbook/services/tasks"
	"groundbook/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NewServeMux routes queued refunds and scheduled sweeps to their handlers.
func NewServeMux(gw payment.Gateway, sweeps reconcile.ReconcileService, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRefundPayment, handleRefundTask(gw, sweeps, logger))
	mux.HandleFunc(tasks.TypeExpireUnpaid, handleExpireUnpaid(sweeps, logger))
	mux.HandleFunc(tasks.TypeExpireHolds, handleExpireHolds(sweeps, logger))
	mux.HandleFunc(tasks.TypeRepairDuplicates, handleRepairDuplicates(sweeps, logger))
	mux.HandleFunc(tasks.TypeRedriveRefunds, handleRedriveRefunds(sweeps, logger))
	return mux
}

// InitWorker runs the task worker in background and returns it so the
// caller can shut it down.
func InitWorker(mux *asynq.ServeMux, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		utils.QueueRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
			},
			Logger: logger.Sugar(),
		},
	)

	// Start Redis health monitor
	go monitorRedisConnection(logger)

	// Start async worker with retry logic
	go func() {
		logger.Info("Starting task worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("Failed to start task worker", zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))

				if attempts == maxAttempts {
					logger.Fatal("Max retry attempts reached for task worker")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
	return srv
}

func handleRefundTask(gw payment.Gateway, recorder payment.RefundRecorder, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		req, err := tasks.ParseRefundTask(task)
		if err != nil {
			logger.Error("Invalid refund payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if req.Amount <= 0 {
			return nil
		}

		if err := gw.Refund(ctx, req); err != nil {
			logger.Warn("Refund attempt failed", zap.String("bookingId", req.BookingID), zap.Float64("amount", req.Amount), zap.Error(err))
			return err
		}
		logger.Info("Refund issued", zap.String("bookingId", req.BookingID), zap.String("code", req.BookingCode), zap.Float64("amount", req.Amount))
		// A retry after this point repeats the gateway call; the gateway
		// deduplicates it by idempotency key.
		return recorder.RefundIssued(ctx, req)
	}
}

func handleRedriveRefunds(sweeps reconcile.ReconcileService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if _, err := sweeps.RedriveRefunds(ctx); err != nil {
			logger.Error("Refund redrive failed", zap.Error(err))
			return err
		}
		return nil
	}
}

func handleExpireUnpaid(sweeps reconcile.ReconcileService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if _, err := sweeps.ExpireUnpaid(ctx); err != nil {
			logger.Error("Unpaid booking sweep failed", zap.Error(err))
			return err
		}
		return nil
	}
}

func handleExpireHolds(sweeps reconcile.ReconcileService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if _, err := sweeps.ExpireHolds(ctx); err != nil {
			logger.Error("Hold sweep failed", zap.Error(err))
			return err
		}
		return nil
	}
}

func handleRepairDuplicates(sweeps reconcile.ReconcileService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		report, err := sweeps.RepairDuplicates(ctx)
		if err != nil {
			logger.Error("Duplicate repair failed", zap.Error(err))
			return err
		}
		if report.Groups > 0 {
			logger.Warn("Duplicate bookings repaired", zap.Int("groups", report.Groups), zap.Strings("cancelled", report.Cancelled))
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection(logger *zap.Logger) {
	opt := utils.QueueRedisOpt()
	client := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Task queue Redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
