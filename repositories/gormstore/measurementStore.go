package gormstore

import (
	"context"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"gorm.io/gorm"
)

type MeasurementStore struct {
	db *gorm.DB
}

func NewMeasurementStore(db *gorm.DB) *MeasurementStore {
	return &MeasurementStore{db: db}
}

var (
	_ repositories.MeasurementRepository = (*MeasurementStore)(nil)
	_ repositories.TestResultRepository  = (*TestResultStore)(nil)
)

func (s *MeasurementStore) Create(ctx context.Context, m *models.Measurement) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *MeasurementStore) Update(ctx context.Context, m *models.Measurement) error {
	return s.db.WithContext(ctx).
		Model(&models.Measurement{ID: m.ID}).
		Select("*").
		Omit("ID", "InspectionId", "CreatedAt").
		Updates(m).Error
}

func (s *MeasurementStore) Get(ctx context.Context, id string) (*models.Measurement, error) {
	var m models.Measurement
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err, "measurement", id)
	}
	return &m, nil
}

// ListByInspection lists one inspection's measurements, or all of them for an empty id.
func (s *MeasurementStore) ListByInspection(ctx context.Context, inspectionId string) ([]*models.Measurement, error) {
	dbCtx := s.db.WithContext(ctx).Model(&models.Measurement{})
	if inspectionId != "" {
		dbCtx.Where("inspection_id = ?", inspectionId)
	}
	var results []*models.Measurement
	if err := dbCtx.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type TestResultStore struct {
	db *gorm.DB
}

func NewTestResultStore(db *gorm.DB) *TestResultStore {
	return &TestResultStore{db: db}
}

func (s *TestResultStore) Create(ctx context.Context, t *models.TestResult) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *TestResultStore) List(ctx context.Context) ([]*models.TestResult, error) {
	var results []*models.TestResult
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
