package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
)

type DefectRepository struct {
	mu      sync.RWMutex
	defects map[string]models.Defect
	numbers map[string]string
}

func NewDefectRepository() *DefectRepository {
	return &DefectRepository{
		defects: make(map[string]models.Defect),
		numbers: make(map[string]string),
	}
}

var _ repositories.DefectRepository = (*DefectRepository)(nil)

func (r *DefectRepository) HighestNumber(_ context.Context, prefix string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	numbers := make([]string, 0, len(r.numbers))
	for num := range r.numbers {
		numbers = append(numbers, num)
	}
	return utils.HighestSequence(numbers, prefix), nil
}

func (r *DefectRepository) Create(_ context.Context, defect *models.Defect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.numbers[defect.DefectNumber]; exists {
		return utils.NewConflictError("defect", "defect_number", defect.DefectNumber)
	}
	r.defects[defect.ID] = *defect
	r.numbers[defect.DefectNumber] = defect.ID
	return nil
}

func (r *DefectRepository) Update(_ context.Context, defect *models.Defect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defects[defect.ID]; !ok {
		return utils.NewNotFoundError("defect", defect.ID)
	}
	r.defects[defect.ID] = *defect
	return nil
}

func (r *DefectRepository) Get(_ context.Context, id string) (*models.Defect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defects[id]
	if !ok {
		return nil, utils.NewNotFoundError("defect", id)
	}
	return &d, nil
}

func (r *DefectRepository) List(_ context.Context, filter models.DefectFilter) ([]*models.Defect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*models.Defect, 0)
	for _, d := range r.defects {
		if !matchDefect(d, filter) {
			continue
		}
		found := d
		results = append(results, &found)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].DefectNumber > results[j].DefectNumber
	})
	return results, nil
}

func matchDefect(d models.Defect, f models.DefectFilter) bool {
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if f.Severity != nil && d.Severity != *f.Severity {
		return false
	}
	if f.Category != nil && d.Category != *f.Category {
		return false
	}
	if f.JobId != nil && (d.JobId == nil || *d.JobId != *f.JobId) {
		return false
	}
	if f.PieceId != nil && d.PieceId != *f.PieceId {
		return false
	}
	if f.InspectionId != nil && (d.InspectionId == nil || *d.InspectionId != *f.InspectionId) {
		return false
	}
	return utils.ContainsFold(f.Search, d.DefectNumber, d.PieceNumber, d.JobNumber, d.JobName, d.Location, d.Description)
}
