package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
)

type NotificationRepository struct {
	mu            sync.RWMutex
	notifications []models.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

var (
	_ repositories.NotificationRepository = (*NotificationRepository)(nil)
	_ repositories.NotificationOutbox     = (*NotificationRepository)(nil)
)

func (r *NotificationRepository) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *NotificationRepository) ListNotifications(_ context.Context, filter models.NotificationFilter) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*models.Notification, 0)
	for i := range r.notifications {
		n := r.notifications[i]
		if filter.TargetModule != nil && n.TargetModule != *filter.TargetModule {
			continue
		}
		if filter.EntityId != nil && n.EntityId != *filter.EntityId {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		results = append(results, &n)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id string, at time.Time) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			if !r.notifications[i].IsRead {
				r.notifications[i].IsRead = true
				r.notifications[i].ReadAt = &at
			}
			n := r.notifications[i]
			return &n, nil
		}
	}
	return nil, utils.NewNotFoundError("notification", id)
}

// All returns every stored notification in insertion order.
func (r *NotificationRepository) All() []models.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Notification(nil), r.notifications...)
}

func (r *NotificationRepository) ClaimDue(_ context.Context, claim repositories.OutboxClaim) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claimed := make([]*models.Notification, 0)
	for i := range r.notifications {
		n := &r.notifications[i]
		due := (n.PublishStatus == models.OutboxPublishStatusPending || n.PublishStatus == models.OutboxPublishStatusFailed) &&
			(n.NextAttemptAt == nil || !n.NextAttemptAt.After(claim.Now))
		stale := n.PublishStatus == models.OutboxPublishStatusProcessing && n.LockedAt != nil && !n.LockedAt.After(claim.StaleBefore)
		if !due && !stale {
			continue
		}
		if claim.Limit > 0 && len(claimed) >= claim.Limit {
			break
		}
		if claim.MaxAttempts > 0 && n.PublishAttempts >= claim.MaxAttempts {
			msg := "max publish attempts exceeded"
			n.PublishStatus = models.OutboxPublishStatusDead
			n.LastPublishError = &msg
			n.NextAttemptAt, n.LockedAt, n.LockedBy = nil, nil, nil
			continue
		}
		now, owner := claim.Now, claim.Owner
		n.PublishStatus = models.OutboxPublishStatusProcessing
		n.PublishAttempts++
		n.LockedAt = &now
		n.LockedBy = &owner
		n.NextAttemptAt, n.LastPublishError = nil, nil
		c := *n
		claimed = append(claimed, &c)
	}
	return claimed, nil
}

func (r *NotificationRepository) MarkPublished(_ context.Context, id, messageId string, at time.Time) error {
	return r.mutate(id, func(n *models.Notification) {
		n.PublishStatus = models.OutboxPublishStatusSent
		n.PublishedAt = &at
		n.PubSubMessageId = &messageId
		n.LockedAt, n.LockedBy, n.NextAttemptAt = nil, nil, nil
	})
}

func (r *NotificationRepository) MarkPublishFailed(_ context.Context, id, cause string, nextAttempt *time.Time) error {
	return r.mutate(id, func(n *models.Notification) {
		n.PublishStatus = models.OutboxPublishStatusFailed
		if nextAttempt == nil {
			n.PublishStatus = models.OutboxPublishStatusDead
		}
		n.LastPublishError = &cause
		n.NextAttemptAt = nextAttempt
		n.LockedAt, n.LockedBy = nil, nil
	})
}

func (r *NotificationRepository) RequeueDead(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.PublishStatus != models.OutboxPublishStatusDead {
			continue
		}
		n.PublishStatus = models.OutboxPublishStatusPending
		n.PublishAttempts = 0
		n.NextAttemptAt = &now
		count++
	}
	return count, nil
}

func (r *NotificationRepository) mutate(id string, fn func(n *models.Notification)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			fn(&r.notifications[i])
			return nil
		}
	}
	return utils.NewNotFoundError("notification", id)
}
