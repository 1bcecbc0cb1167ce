// Package memory provides in-memory stores for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
)

type InspectionRepository struct {
	mu          sync.RWMutex
	inspections map[string]models.Inspection
	items       map[string][]models.ChecklistItem
	numbers     map[string]string
}

func NewInspectionRepository() *InspectionRepository {
	return &InspectionRepository{
		inspections: make(map[string]models.Inspection),
		items:       make(map[string][]models.ChecklistItem),
		numbers:     make(map[string]string),
	}
}

var _ repositories.InspectionRepository = (*InspectionRepository)(nil)

func (r *InspectionRepository) HighestNumber(_ context.Context, prefix string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	numbers := make([]string, 0, len(r.numbers))
	for num := range r.numbers {
		numbers = append(numbers, num)
	}
	return utils.HighestSequence(numbers, prefix), nil
}

func (r *InspectionRepository) Create(_ context.Context, inspection *models.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.numbers[inspection.InspectionNumber]; exists {
		return utils.NewConflictError("inspection", "inspection_number", inspection.InspectionNumber)
	}
	stored := cloneInspection(*inspection)
	stored.ChecklistItems = nil
	r.inspections[inspection.ID] = stored
	r.numbers[inspection.InspectionNumber] = inspection.ID
	r.items[inspection.ID] = append([]models.ChecklistItem(nil), inspection.ChecklistItems...)
	return nil
}

func (r *InspectionRepository) Update(_ context.Context, inspection *models.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inspections[inspection.ID]; !ok {
		return utils.NewNotFoundError("inspection", inspection.ID)
	}
	stored := cloneInspection(*inspection)
	stored.ChecklistItems = nil
	r.inspections[inspection.ID] = stored
	return nil
}

func (r *InspectionRepository) Get(_ context.Context, id string) (*models.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.inspections[id]
	if !ok {
		return nil, utils.NewNotFoundError("inspection", id)
	}
	result := cloneInspection(stored)
	result.ChecklistItems = append([]models.ChecklistItem{}, r.items[id]...)
	sort.SliceStable(result.ChecklistItems, func(i, j int) bool {
		return result.ChecklistItems[i].Sequence < result.ChecklistItems[j].Sequence
	})
	return &result, nil
}

func (r *InspectionRepository) List(_ context.Context, filter models.InspectionFilter) ([]*models.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*models.Inspection, 0)
	for _, stored := range r.inspections {
		if !matchInspection(stored, filter) {
			continue
		}
		result := cloneInspection(stored)
		results = append(results, &result)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].InspectionNumber > results[j].InspectionNumber
	})
	return results, nil
}

func (r *InspectionRepository) GetChecklistItem(_ context.Context, inspectionId, itemId string) (*models.ChecklistItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items[inspectionId] {
		if item.ID == itemId {
			found := item
			return &found, nil
		}
	}
	return nil, utils.NewNotFoundError("checklist item", itemId)
}

func (r *InspectionRepository) SaveChecklistItem(_ context.Context, item *models.ChecklistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[item.InspectionId]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = *item
			return nil
		}
	}
	return utils.NewNotFoundError("checklist item", item.ID)
}

func matchInspection(i models.Inspection, f models.InspectionFilter) bool {
	if f.Type != nil && i.Type != *f.Type {
		return false
	}
	if f.Status != nil && i.Status != *f.Status {
		return false
	}
	if f.JobId != nil && (i.JobId == nil || *i.JobId != *f.JobId) {
		return false
	}
	if f.PieceId != nil && (i.PieceId == nil || *i.PieceId != *f.PieceId) {
		return false
	}
	date := i.ActivityDate()
	if f.From != nil && date.Before(*f.From) {
		return false
	}
	if f.To != nil && date.After(*f.To) {
		return false
	}
	return utils.ContainsFold(f.Search, i.InspectionNumber, i.PieceNumber, i.JobNumber, i.JobName, i.Location)
}

func cloneInspection(i models.Inspection) models.Inspection {
	i.Attachments = append([]string(nil), i.Attachments...)
	i.ChecklistItems = append([]models.ChecklistItem(nil), i.ChecklistItems...)
	i.Defects = nil
	i.Measurements = nil
	return i
}
