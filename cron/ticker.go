package cron

import (
	"context"
	"time"

	"groundbook/services/reconcile"

	"go.uber.org/zap"
)

// StartSweepTicker runs the sweeps in process until ctx is cancelled. It is
// the fallback when no task queue is configured.
func StartSweepTicker(ctx context.Context, sweeps reconcile.ReconcileService, expiryEvery, holdEvery time.Duration, logger *zap.Logger) {
	expiry := time.NewTicker(orDefault(expiryEvery, DefaultExpiryInterval))
	defer expiry.Stop()
	holds := time.NewTicker(orDefault(holdEvery, DefaultHoldInterval))
	defer holds.Stop()
	repair := time.NewTicker(DuplicateRepairInterval)
	defer repair.Stop()
	redrive := time.NewTicker(RefundRedriveInterval)
	defer redrive.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep ticker shutdown signal received")
			return
		case <-expiry.C:
			if _, err := sweeps.ExpireUnpaid(ctx); err != nil {
				logger.Error("Unpaid booking sweep failed", zap.Error(err))
			}
		case <-holds.C:
			if _, err := sweeps.ExpireHolds(ctx); err != nil {
				logger.Error("Hold sweep failed", zap.Error(err))
			}
		case <-repair.C:
			if _, err := sweeps.RepairDuplicates(ctx); err != nil {
				logger.Error("Duplicate repair failed", zap.Error(err))
			}
		case <-redrive.C:
			if _, err := sweeps.RedriveRefunds(ctx); err != nil {
				logger.Error("Refund redrive failed", zap.Error(err))
			}
		}
	}
}
