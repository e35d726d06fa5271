package scheduler

import (
	"context"
	"time"

	"invoicing_backend/internal/notification/outbox"
	"invoicing_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	dispatchInterval   = 2 * time.Second
	dispatchBatchLimit = 50
)

// OutboxClaimer claims pending outbox records for dispatch.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// OutboxEnqueuer schedules an outbox record on the task queue.
type OutboxEnqueuer interface {
	EnqueueOutboxDue(ctx context.Context, payload NotificationOutboxDuePayload, runAt time.Time) error
}

var (
	_ OutboxClaimer  = (*outbox.Repository)(nil)
	_ OutboxEnqueuer = (*Client)(nil)
)

// NotificationOutboxDispatcher moves pending outbox records onto the asynq queue.
type NotificationOutboxDispatcher struct {
	repo   OutboxClaimer
	queue  OutboxEnqueuer
	log    *logger.Logger
	ticker time.Duration
}

func NewNotificationOutboxDispatcher(repo OutboxClaimer, queue OutboxEnqueuer, log *logger.Logger) *NotificationOutboxDispatcher {
	return &NotificationOutboxDispatcher{
		repo:   repo,
		queue:  queue,
		log:    log,
		ticker: dispatchInterval,
	}
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.repo == nil || d.queue == nil {
		return
	}

	ticker := time.NewTicker(d.ticker)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatchOnce(ctx)
	}
}

// dispatchOnce enqueues one batch. Records that cannot be enqueued go back to
// pending with the error recorded.
func (d *NotificationOutboxDispatcher) dispatchOnce(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, dispatchBatchLimit)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		err := d.queue.EnqueueOutboxDue(ctx, NotificationOutboxDuePayload{
			OutboxID: rec.ID.String(),
			TenantID: rec.TenantID.String(),
		}, rec.RunAt)
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			d.log.Warn("outbox enqueue failed", "outboxId", rec.ID.String(), "error", err)
			continue
		}
		enqueued++
	}
	return enqueued
}
