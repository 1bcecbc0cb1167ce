package gormstore

import (
	"context"
	"strings"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"gorm.io/gorm"
)

type DefectStore struct {
	db *gorm.DB
}

func NewDefectStore(db *gorm.DB) *DefectStore {
	return &DefectStore{db: db}
}

var _ repositories.DefectRepository = (*DefectStore)(nil)

func (s *DefectStore) HighestNumber(ctx context.Context, prefix string) (string, error) {
	return highestNumber(s.db.WithContext(ctx), &models.Defect{}, "defect_number", prefix)
}

func (s *DefectStore) Create(ctx context.Context, defect *models.Defect) error {
	err := s.db.WithContext(ctx).Create(defect).Error
	return duplicate(err, "defect", "defect_number", defect.DefectNumber)
}

func (s *DefectStore) Update(ctx context.Context, defect *models.Defect) error {
	err := s.db.WithContext(ctx).
		Model(&models.Defect{ID: defect.ID}).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(defect).Error
	return duplicate(err, "defect", "defect_number", defect.DefectNumber)
}

func (s *DefectStore) Get(ctx context.Context, id string) (*models.Defect, error) {
	var defect models.Defect
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&defect).Error; err != nil {
		return nil, notFound(err, "defect", id)
	}
	return &defect, nil
}

func (s *DefectStore) List(ctx context.Context, filter models.DefectFilter) ([]*models.Defect, error) {
	dbCtx := s.db.WithContext(ctx).Model(&models.Defect{})
	if filter.Status != nil {
		dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.Severity != nil {
		dbCtx.Where("severity = ?", *filter.Severity)
	}
	if filter.Category != nil {
		dbCtx.Where("category = ?", *filter.Category)
	}
	if filter.JobId != nil {
		dbCtx.Where("job_id = ?", *filter.JobId)
	}
	if filter.PieceId != nil {
		dbCtx.Where("piece_id = ?", *filter.PieceId)
	}
	if filter.InspectionId != nil {
		dbCtx.Where("inspection_id = ?", *filter.InspectionId)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := likePattern(search)
		dbCtx.Where("defect_number LIKE ? OR piece_number LIKE ? OR job_number LIKE ? OR job_name LIKE ? OR location LIKE ? OR description LIKE ?",
			like, like, like, like, like, like)
	}

	var results []*models.Defect
	if err := dbCtx.Order("created_at DESC").Order("defect_number DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
