package tasks

import (
	"encoding/json"
	"time"

	"groundbook/models"

	"github.com/hibiken/asynq"
)

const (
	TypeRefundPayment    = "payment:refund"
	TypeExpireUnpaid     = "sweep:expire_unpaid"
	TypeExpireHolds      = "sweep:expire_holds"
	TypeRepairDuplicates = "sweep:repair_duplicates"
	TypeRedriveRefunds   = "sweep:redrive_refunds"
)

// RefundMaxRetry bounds how many times the gateway is asked before the task
// is archived for manual follow-up.
const RefundMaxRetry = 25

// RefundTaskID names the refund of one payment on one booking, so the same
// refund is never queued twice while an earlier copy is still in flight.
func RefundTaskID(req models.RefundRequest) string {
	id := "refund:" + req.BookingID
	if req.PaymentID != "" {
		id += ":" + req.PaymentID
	}
	return id
}

// NewRefundTask builds a refund task keyed by RefundTaskID.
func NewRefundTask(req models.RefundRequest) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRefundPayment, b)
	opts := []asynq.Option{
		asynq.TaskID(RefundTaskID(req)),
		asynq.MaxRetry(RefundMaxRetry),
		asynq.Timeout(30 * time.Second),
		asynq.Queue("critical"),
	}
	return task, opts, nil
}

// ParseRefundTask decodes the payload written by NewRefundTask.
func ParseRefundTask(t *asynq.Task) (models.RefundRequest, error) {
	var req models.RefundRequest
	err := json.Unmarshal(t.Payload(), &req)
	return req, err
}

// NewSweepTask builds a payload-less sweep task. Uniqueness keeps a slow
// sweep from piling up copies of itself in the queue.
func NewSweepTask(typename string, every time.Duration) (*asynq.Task, []asynq.Option) {
	return asynq.NewTask(typename, nil), []asynq.Option{
		asynq.Unique(every),
		asynq.MaxRetry(0),
	}
}
