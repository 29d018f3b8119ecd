// Package worker runs the notification delivery loop. Delivery is
// best-effort and fully decoupled from the transfer protocol: a completed
// transfer stays completed no matter what happens here.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/domain"
)

// Queue is the slice of notification storage the dispatcher polls.
type Queue interface {
	NextUndelivered(ctx context.Context, now time.Time) (*domain.Notification, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	RescheduleDelivery(ctx context.Context, id uuid.UUID, attempts int, next time.Time) error
	MarkDeliveryFailed(ctx context.Context, id uuid.UUID) error
}

// Publisher pushes one notification to the outside world (NATS subject,
// webhook endpoint).
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

const (
	defaultPollInterval = 5 * time.Second
	maxAttempts         = 5
)

type Dispatcher struct {
	queue     Queue
	publisher Publisher
	interval  time.Duration
	log       *slog.Logger
}

func NewDispatcher(queue Queue, publisher Publisher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{queue: queue, publisher: publisher, interval: defaultPollInterval, log: log}
}

// Start runs the polling loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		d.log.Info("notification dispatcher started")
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				d.log.Info("notification dispatcher stopped")
				return
			case <-ticker.C:
				d.ProcessOne(ctx)
			}
		}
	}()
}

// ProcessOne delivers at most one due notification. Failures back off
// linearly and give up after maxAttempts, mirroring the delivery contract:
// retried, then abandoned, never escalated back into the ledger.
func (d *Dispatcher) ProcessOne(ctx context.Context) {
	now := time.Now().UTC()
	n, err := d.queue.NextUndelivered(ctx, now)
	if err != nil {
		if !errors.Is(err, domain.ErrNotificationNotFound) {
			d.log.Error("dispatcher: queue poll failed", "error", err)
		}
		return
	}

	if err := d.publisher.Publish(ctx, *n); err != nil {
		attempts := n.Attempts + 1
		if attempts >= maxAttempts {
			d.log.Error("dispatcher: giving up on notification", "notification_id", n.ID, "attempts", attempts, "error", err)
			if markErr := d.queue.MarkDeliveryFailed(ctx, n.ID); markErr != nil {
				d.log.Error("dispatcher: failed to mark notification failed", "notification_id", n.ID, "error", markErr)
			}
			return
		}
		next := now.Add(time.Duration(attempts*10+10) * time.Second)
		d.log.Warn("dispatcher: delivery failed, scheduling retry", "notification_id", n.ID, "attempts", attempts, "next_attempt", next, "error", err)
		if reschedErr := d.queue.RescheduleDelivery(ctx, n.ID, attempts, next); reschedErr != nil {
			d.log.Error("dispatcher: failed to reschedule", "notification_id", n.ID, "error", reschedErr)
		}
		return
	}

	if err := d.queue.MarkDelivered(ctx, n.ID); err != nil {
		d.log.Error("dispatcher: failed to mark delivered", "notification_id", n.ID, "error", err)
		return
	}
	d.log.Info("dispatcher: notification delivered", "notification_id", n.ID, "user_id", n.UserID)
}
