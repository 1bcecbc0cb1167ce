package quality

import (
	"context"
	"sort"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
)

// ExpandTemplate turns template item definitions into PENDING checklist items in template order.
// Ids and the owning inspection are assigned by the caller.
func ExpandTemplate(tpl models.ChecklistTemplate) []models.ChecklistItem {
	defs := append([]models.ChecklistTemplateItem(nil), tpl.Items...)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Sequence < defs[j].Sequence })

	items := make([]models.ChecklistItem, 0, len(defs))
	for i, def := range defs {
		severity := def.Severity
		if !severity.IsValid() {
			severity = models.SeverityNormal
		}
		items = append(items, models.ChecklistItem{
			Sequence:    i + 1,
			Category:    def.Category,
			Description: def.Description,
			Requirement: def.Requirement,
			Status:      models.ChecklistItemStatusPending,
			Severity:    severity,
		})
	}
	return items
}

type ChecklistExpander struct {
	templates repositories.TemplateRepository
}

func NewChecklistExpander(templates repositories.TemplateRepository) *ChecklistExpander {
	return &ChecklistExpander{templates: templates}
}

// Expand loads the template and returns it with its expanded items.
func (e *ChecklistExpander) Expand(ctx context.Context, templateId string) (*models.ChecklistTemplate, []models.ChecklistItem, error) {
	tpl, err := e.templates.FindTemplate(ctx, templateId)
	if err != nil {
		return nil, nil, err
	}
	return tpl, ExpandTemplate(*tpl), nil
}
