package memory

import (
	"context"
	"sync"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
)

type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]models.ChecklistTemplate
}

func NewTemplateRepository(templates ...models.ChecklistTemplate) *TemplateRepository {
	r := &TemplateRepository{templates: make(map[string]models.ChecklistTemplate)}
	for _, tpl := range templates {
		r.templates[tpl.ID] = tpl
	}
	return r
}

var _ repositories.TemplateRepository = (*TemplateRepository)(nil)

func (r *TemplateRepository) FindTemplate(_ context.Context, id string) (*models.ChecklistTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[id]
	if !ok {
		return nil, utils.NewNotFoundError("checklist template", id)
	}
	tpl.Items = append([]models.ChecklistTemplateItem(nil), tpl.Items...)
	return &tpl, nil
}

// IssuedNumberRepository keeps numbers handed out for work orders and breakdown reports.
type IssuedNumberRepository struct {
	mu      sync.RWMutex
	numbers map[string]models.IssuedNumber
}

func NewIssuedNumberRepository() *IssuedNumberRepository {
	return &IssuedNumberRepository{numbers: make(map[string]models.IssuedNumber)}
}

var _ repositories.IssuedNumberRepository = (*IssuedNumberRepository)(nil)

func (r *IssuedNumberRepository) HighestNumber(_ context.Context, prefix string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	numbers := make([]string, 0, len(r.numbers))
	for num := range r.numbers {
		numbers = append(numbers, num)
	}
	return utils.HighestSequence(numbers, prefix), nil
}

func (r *IssuedNumberRepository) Insert(_ context.Context, n *models.IssuedNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.numbers[n.Number]; exists {
		return utils.NewConflictError("issued number", "number", n.Number)
	}
	r.numbers[n.Number] = *n
	return nil
}
