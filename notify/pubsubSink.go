package notify

import (
	"context"

	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/sirupsen/logrus"
)

// PubSubSink publishes before storing. A failed publish still stores the row
// as PENDING so the dispatcher can pick it up.
type PubSubSink struct {
	store     repositories.NotificationSink
	publisher Publisher
	clock     clock.Clock
	retry     RetryConfig
	logger    *logrus.Logger
}

var _ repositories.NotificationSink = (*PubSubSink)(nil)

func NewPubSubSink(store repositories.NotificationSink, publisher Publisher, clk clock.Clock, logger *logrus.Logger) *PubSubSink {
	return &PubSubSink{
		store:     store,
		publisher: publisher,
		clock:     clk,
		retry:     RetryConfigFromEnv(),
		logger:    logger,
	}
}

func (s *PubSubSink) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.PublishAttempts = 1
	msgId, err := s.publisher.Publish(ctx, n)
	now := s.clock.Now().UTC()
	if err != nil {
		cause := err.Error()
		next := now.Add(s.retry.Backoff(1))
		n.PublishStatus = models.OutboxPublishStatusPending
		n.LastPublishError = &cause
		n.NextAttemptAt = &next
		telemetry.OutboxPublishedTotal.WithLabelValues("failed").Inc()
		config.LogWarn(s.logger, "notify", "PubSubSink.CreateNotification", "Publish", map[string]string{
			"notification_id": n.ID,
			"target_module":   string(n.TargetModule),
		}, err)
	} else {
		n.PublishStatus = models.OutboxPublishStatusSent
		n.PublishedAt = &now
		n.PubSubMessageId = &msgId
		telemetry.OutboxPublishedTotal.WithLabelValues("sent").Inc()
	}
	return s.store.CreateNotification(ctx, n)
}
