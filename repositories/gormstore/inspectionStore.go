package gormstore

import (
	"context"
	"strings"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InspectionStore struct {
	db *gorm.DB
}

func NewInspectionStore(db *gorm.DB) *InspectionStore {
	return &InspectionStore{db: db}
}

var _ repositories.InspectionRepository = (*InspectionStore)(nil)

func (s *InspectionStore) HighestNumber(ctx context.Context, prefix string) (string, error) {
	return highestNumber(s.db.WithContext(ctx), &models.Inspection{}, "inspection_number", prefix)
}

// Create inserts the inspection and its checklist items in one transaction.
func (s *InspectionStore) Create(ctx context.Context, inspection *models.Inspection) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(inspection).Error; err != nil {
			return err
		}
		if len(inspection.ChecklistItems) > 0 {
			if err := tx.Create(&inspection.ChecklistItems).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return duplicate(err, "inspection", "inspection_number", inspection.InspectionNumber)
}

func (s *InspectionStore) Update(ctx context.Context, inspection *models.Inspection) error {
	err := s.db.WithContext(ctx).
		Model(&models.Inspection{ID: inspection.ID}).
		Select("*").
		Omit(clause.Associations, "ID", "CreatedAt", "CreatedBy").
		Updates(inspection).Error
	return duplicate(err, "inspection", "inspection_number", inspection.InspectionNumber)
}

func (s *InspectionStore) Get(ctx context.Context, id string) (*models.Inspection, error) {
	var inspection models.Inspection
	err := s.db.WithContext(ctx).
		Preload("ChecklistItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&inspection).Error
	if err != nil {
		return nil, notFound(err, "inspection", id)
	}
	return &inspection, nil
}

func (s *InspectionStore) List(ctx context.Context, filter models.InspectionFilter) ([]*models.Inspection, error) {
	dbCtx := s.db.WithContext(ctx).Model(&models.Inspection{})
	if filter.Type != nil {
		dbCtx.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.JobId != nil {
		dbCtx.Where("job_id = ?", *filter.JobId)
	}
	if filter.PieceId != nil {
		dbCtx.Where("piece_id = ?", *filter.PieceId)
	}
	if filter.From != nil {
		dbCtx.Where("COALESCE(scheduled_date, created_at) >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx.Where("COALESCE(scheduled_date, created_at) <= ?", *filter.To)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := likePattern(search)
		dbCtx.Where("inspection_number LIKE ? OR piece_number LIKE ? OR job_number LIKE ? OR job_name LIKE ? OR location LIKE ?",
			like, like, like, like, like)
	}

	var results []*models.Inspection
	err := dbCtx.Order("created_at DESC").Order("inspection_number DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *InspectionStore) GetChecklistItem(ctx context.Context, inspectionId, itemId string) (*models.ChecklistItem, error) {
	var item models.ChecklistItem
	err := s.db.WithContext(ctx).
		Where("inspection_id = ? AND id = ?", inspectionId, itemId).
		First(&item).Error
	if err != nil {
		return nil, notFound(err, "checklist item", itemId)
	}
	return &item, nil
}

func (s *InspectionStore) SaveChecklistItem(ctx context.Context, item *models.ChecklistItem) error {
	return s.db.WithContext(ctx).
		Model(&models.ChecklistItem{ID: item.ID}).
		Select("Status", "Result", "CompletedBy", "CompletedAt", "UpdatedAt").
		Updates(item).Error
}
