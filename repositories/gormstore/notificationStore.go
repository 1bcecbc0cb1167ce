package gormstore

import (
	"context"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

var (
	_ repositories.NotificationRepository = (*NotificationStore)(nil)
	_ repositories.NotificationOutbox     = (*NotificationStore)(nil)
)

func (s *NotificationStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *NotificationStore) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]*models.Notification, error) {
	dbCtx := s.db.WithContext(ctx).Model(&models.Notification{})
	if filter.TargetModule != nil {
		dbCtx.Where("target_module = ?", *filter.TargetModule)
	}
	if filter.EntityId != nil {
		dbCtx.Where("entity_id = ?", *filter.EntityId)
	}
	if filter.UnreadOnly {
		dbCtx.Where("is_read = ?", false)
	}
	if filter.Limit > 0 {
		dbCtx.Limit(filter.Limit)
	}
	var results []*models.Notification
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkRead sets is_read once; read_at keeps the first read time.
func (s *NotificationStore) MarkRead(ctx context.Context, id string, at time.Time) (*models.Notification, error) {
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
	if err != nil {
		return nil, err
	}
	var n models.Notification
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, notFound(err, "notification", id)
	}
	return &n, nil
}

func (s *NotificationStore) ClaimDue(ctx context.Context, claim repositories.OutboxClaim) ([]*models.Notification, error) {
	var claimed []*models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []*models.Notification
		err := tx.
			Where(`
				(publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
				OR
				(publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?)
			`, []models.OutboxPublishStatus{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, claim.Now,
				models.OutboxPublishStatusProcessing, claim.StaleBefore).
			Order("created_at ASC").
			Limit(claim.Limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&rows).Error
		if err != nil {
			return err
		}
		for _, n := range rows {
			if claim.MaxAttempts > 0 && n.PublishAttempts >= claim.MaxAttempts {
				msg := "max publish attempts exceeded"
				if err := tx.Model(&models.Notification{}).Where("id = ?", n.ID).Updates(map[string]interface{}{
					"publish_status":     models.OutboxPublishStatusDead,
					"last_publish_error": &msg,
					"next_attempt_at":    nil,
					"locked_at":          nil,
					"locked_by":          nil,
				}).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&models.Notification{}).Where("id = ?", n.ID).Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusProcessing,
				"locked_at":          claim.Now,
				"locked_by":          claim.Owner,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error; err != nil {
				return err
			}
			now, owner := claim.Now, claim.Owner
			n.PublishStatus = models.OutboxPublishStatusProcessing
			n.PublishAttempts++
			n.LockedAt = &now
			n.LockedBy = &owner
			claimed = append(claimed, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *NotificationStore) MarkPublished(ctx context.Context, id, messageId string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusSent,
			"published_at":       at,
			"pub_sub_message_id": messageId,
			"locked_at":          nil,
			"locked_by":          nil,
			"next_attempt_at":    nil,
		}).Error
}

func (s *NotificationStore) MarkPublishFailed(ctx context.Context, id, cause string, nextAttempt *time.Time) error {
	status := models.OutboxPublishStatusFailed
	if nextAttempt == nil {
		status = models.OutboxPublishStatusDead
	}
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"publish_status":     status,
			"last_publish_error": cause,
			"next_attempt_at":    nextAttempt,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
}

func (s *NotificationStore) RequeueDead(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("publish_status = ?", models.OutboxPublishStatusDead).
		Updates(map[string]interface{}{
			"publish_status":   models.OutboxPublishStatusPending,
			"publish_attempts": 0,
			"next_attempt_at":  now,
		})
	return res.RowsAffected, res.Error
}
