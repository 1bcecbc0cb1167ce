package gormstore

import (
	"context"

	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TemplateStore reads checklist templates through the Redis cache.
type TemplateStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewTemplateStore(db *gorm.DB, logger *logrus.Logger) *TemplateStore {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &TemplateStore{db: db, logger: logger}
}

var _ repositories.TemplateRepository = (*TemplateStore)(nil)

func templateCacheKey(id string) string {
	return "ChecklistTemplate:" + id
}

func (s *TemplateStore) FindTemplate(ctx context.Context, id string) (*models.ChecklistTemplate, error) {
	var cached models.ChecklistTemplate
	found, err := config.GetRedisObject(ctx, templateCacheKey(id), &cached)
	if err != nil {
		config.LogWarn(s.logger, "gormstore", "FindTemplate", "GetRedisObject", map[string]string{"template_id": id}, err)
	} else if found {
		return &cached, nil
	}

	var tpl models.ChecklistTemplate
	err = s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&tpl).Error
	if err != nil {
		return nil, notFound(err, "checklist template", id)
	}

	if err := config.SetRedisObject(ctx, templateCacheKey(id), &tpl, config.TemplateCacheTTL()); err != nil {
		config.LogWarn(s.logger, "gormstore", "FindTemplate", "SetRedisObject", map[string]string{"template_id": id}, err)
	}
	return &tpl, nil
}

// SaveTemplate writes a template and replaces its items, then drops the cached copy.
func (s *TemplateStore) SaveTemplate(ctx context.Context, tpl *models.ChecklistTemplate) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := tpl.Items
		if err := tx.Omit("Items").Save(tpl).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", tpl.ID).Delete(&models.ChecklistTemplateItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].TemplateId = tpl.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(ctx, templateCacheKey(tpl.ID))
}
