package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/sirupsen/logrus"
)

// OutboxDispatcher publishes notifications stored as PENDING until each is SENT or DEAD.
type OutboxDispatcher struct {
	Outbox       repositories.NotificationOutbox
	Publisher    Publisher
	Clock        clock.Clock
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize    int
	PollInterval time.Duration
	LockTimeout  time.Duration
	Retry        RetryConfig
}

func NewOutboxDispatcher(outbox repositories.NotificationOutbox, publisher Publisher, clk clock.Clock, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		Outbox:       outbox,
		Publisher:    publisher,
		Clock:        clk,
		Logger:       logger,
		DispatcherID: uuid.NewString(),
		BatchSize:    config.IntFromEnv("OUTBOX_BATCH_SIZE", 50),
		PollInterval: 500 * time.Millisecond,
		LockTimeout:  30 * time.Second,
		Retry:        RetryConfigFromEnv(),
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := d.DispatchOnce(ctx); err != nil {
			config.LogError(d.Logger, "notify", "OutboxDispatcher.Run", "DispatchOnce", map[string]string{
				"dispatcher_id": d.DispatcherID,
			}, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-d.Clock.After(d.PollInterval):
		}
	}
}

// DispatchOnce claims one batch and publishes it. It returns how many rows were sent.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := d.Clock.Now().UTC()
	claimed, err := d.Outbox.ClaimDue(ctx, repositories.OutboxClaim{
		Owner:       d.DispatcherID,
		Now:         now,
		StaleBefore: now.Add(-d.LockTimeout),
		Limit:       d.BatchSize,
		MaxAttempts: d.Retry.MaxAttempts,
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range claimed {
		msgId, pubErr := d.Publisher.Publish(ctx, n)
		if pubErr != nil {
			d.markFailed(ctx, n.ID, pubErr, n.PublishAttempts)
			continue
		}
		if err := d.Outbox.MarkPublished(ctx, n.ID, msgId, d.Clock.Now().UTC()); err != nil {
			config.LogWarn(d.Logger, "notify", "OutboxDispatcher.DispatchOnce", "MarkPublished", map[string]string{
				"notification_id": n.ID,
			}, err)
		}
		telemetry.OutboxPublishedTotal.WithLabelValues("sent").Inc()
		sent++
	}
	return sent, nil
}

func (d *OutboxDispatcher) markFailed(ctx context.Context, id string, cause error, attempt int) {
	var next *time.Time
	outcome := "dead"
	if !d.Retry.Exhausted(attempt) {
		at := d.Clock.Now().UTC().Add(d.Retry.Backoff(attempt))
		next = &at
		outcome = "failed"
	}
	telemetry.OutboxPublishedTotal.WithLabelValues(outcome).Inc()
	if err := d.Outbox.MarkPublishFailed(ctx, id, cause.Error(), next); err != nil {
		config.LogWarn(d.Logger, "notify", "OutboxDispatcher.markFailed", "MarkPublishFailed", map[string]string{
			"notification_id": id,
		}, err)
	}
	if d.Logger != nil {
		fields := logrus.Fields{
			"field":           "OutboxDispatcher",
			"notification_id": id,
			"attempt":         attempt,
		}
		if next != nil {
			fields["next_attempt_at"] = next.Format(time.RFC3339Nano)
			d.Logger.WithFields(fields).Error("notification publish failed: " + cause.Error())
			return
		}
		d.Logger.WithFields(fields).Error("notification publish moved to DEAD after max attempts: " + cause.Error())
	}
}

// RequeueDead gives DEAD notifications a fresh attempt budget.
func (d *OutboxDispatcher) RequeueDead(ctx context.Context) (int64, error) {
	return d.Outbox.RequeueDead(ctx, d.Clock.Now().UTC())
}
