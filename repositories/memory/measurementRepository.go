package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
)

type MeasurementRepository struct {
	mu           sync.RWMutex
	measurements map[string]models.Measurement
}

func NewMeasurementRepository() *MeasurementRepository {
	return &MeasurementRepository{measurements: make(map[string]models.Measurement)}
}

var _ repositories.MeasurementRepository = (*MeasurementRepository)(nil)

func (r *MeasurementRepository) Create(_ context.Context, m *models.Measurement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measurements[m.ID] = *m
	return nil
}

func (r *MeasurementRepository) Update(_ context.Context, m *models.Measurement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.measurements[m.ID]; !ok {
		return utils.NewNotFoundError("measurement", m.ID)
	}
	r.measurements[m.ID] = *m
	return nil
}

func (r *MeasurementRepository) Get(_ context.Context, id string) (*models.Measurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.measurements[id]
	if !ok {
		return nil, utils.NewNotFoundError("measurement", id)
	}
	return &m, nil
}

func (r *MeasurementRepository) ListByInspection(_ context.Context, inspectionId string) ([]*models.Measurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*models.Measurement, 0)
	for _, m := range r.measurements {
		if inspectionId != "" && m.InspectionId != inspectionId {
			continue
		}
		found := m
		results = append(results, &found)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.Before(results[j].CreatedAt) })
	return results, nil
}

type TestResultRepository struct {
	mu      sync.RWMutex
	results []models.TestResult
}

func NewTestResultRepository() *TestResultRepository {
	return &TestResultRepository{}
}

var _ repositories.TestResultRepository = (*TestResultRepository)(nil)

func (r *TestResultRepository) Create(_ context.Context, t *models.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, *t)
	return nil
}

func (r *TestResultRepository) List(_ context.Context) ([]*models.TestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*models.TestResult, 0, len(r.results))
	for i := range r.results {
		found := r.results[i]
		results = append(results, &found)
	}
	return results, nil
}
