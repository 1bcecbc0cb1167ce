// Package notify moves QA notifications from the database to Pub/Sub.
package notify

import (
	"context"

	"cloud.google.com/go/pubsub"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/utils"
)

// Publisher sends one notification and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) (string, error)
}

// PubSubPublisher publishes to the notification topic, ordered per piece.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubPublisher(ctx context.Context) (*PubSubPublisher, error) {
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return nil, err
	}
	topic, err := config.CreateTopicIfNotExists(ctx, client, config.NotificationTopicName())
	if err != nil {
		return nil, err
	}
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{topic: topic}, nil
}

func messageAttributes(n *models.Notification) map[string]string {
	return map[string]string{
		"notification_id": n.ID,
		"type":            string(n.Type),
		"source_module":   string(n.SourceModule),
		"target_module":   string(n.TargetModule),
		"entity_type":     n.EntityType,
		"entity_id":       n.EntityId,
		"correlation_id":  n.CorrelationId,
	}
}

func (p *PubSubPublisher) Publish(ctx context.Context, n *models.Notification) (string, error) {
	data, err := utils.MarshalToJSON(n)
	if err != nil {
		return "", err
	}
	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:        []byte(data),
		Attributes:  messageAttributes(n),
		OrderingKey: n.EntityId,
	})
	id, err := res.Get(ctx)
	if err != nil {
		// an ordering key stays paused after a failure until resumed
		p.topic.ResumePublish(n.EntityId)
		return "", err
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
