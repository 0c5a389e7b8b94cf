package cron

import (
	"fmt"
	"time"

	"groundbook/services/tasks"
	"groundbook/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DuplicateRepairInterval is how often active bookings are scanned for duplicates.
const DuplicateRepairInterval = time.Hour

// RefundRedriveInterval is how often bookings stuck in refunding are requeued.
const RefundRedriveInterval = 10 * time.Minute

// Sweep is one periodic task.
type Sweep struct {
	Type  string
	Every time.Duration
}

// Default sweep intervals, used when none are configured.
const (
	DefaultExpiryInterval = time.Minute
	DefaultHoldInterval   = 2 * time.Minute
)

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Sweeps lists the periodic tasks with their intervals.
func Sweeps(expiryEvery, holdEvery time.Duration) []Sweep {
	expiryEvery = orDefault(expiryEvery, DefaultExpiryInterval)
	holdEvery = orDefault(holdEvery, DefaultHoldInterval)
	return []Sweep{
		{Type: tasks.TypeExpireUnpaid, Every: expiryEvery},
		{Type: tasks.TypeExpireHolds, Every: holdEvery},
		{Type: tasks.TypeRepairDuplicates, Every: DuplicateRepairInterval},
		{Type: tasks.TypeRedriveRefunds, Every: RefundRedriveInterval},
	}
}

// StartScheduler enqueues the sweeps on the task queue. Only one scheduler
// needs to run; every worker instance may process the tasks.
func StartScheduler(sweeps []Sweep, logger *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(utils.QueueRedisOpt(), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   logger.Sugar(),
	})
	for _, s := range sweeps {
		task, opts := tasks.NewSweepTask(s.Type, s.Every)
		id, err := scheduler.Register(fmt.Sprintf("@every %s", s.Every), task, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.Type, err)
		}
		logger.Info("Sweep scheduled", zap.String("task", s.Type), zap.Duration("every", s.Every), zap.String("entryId", id))
	}
	if err := scheduler.Start(); err != nil {
		return nil, err
	}
	return scheduler, nil
}
