package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/mmdatafocus/precast_backend/utils"
)

func invalidField(field, message string) *utils.ValidationError {
	return &utils.ValidationError{
		Message: "invalid input",
		Fields:  map[string]string{field: message},
	}
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}

// CreateInspection stores a new inspection, seeding its checklist from a template or
// from explicit items, and numbers it INS-YY-NNNN unless a number is supplied.
func (s *Service) CreateInspection(ctx context.Context, input models.NewInspection) (result *models.Inspection, err error) {
	ctx, end := s.start(ctx, "CreateInspection")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	status := utils.DereferencePtr(input.Status, models.InspectionStatusPending)
	if status.IsTerminal() {
		return nil, invalidField("status", "an inspection must start as PENDING or IN_PROGRESS")
	}
	if hasText(input.TemplateId) && len(input.ChecklistItems) > 0 {
		return nil, invalidField("checklist_items", "cannot be combined with template_id")
	}

	now := s.now()
	actor := utils.ActorFromContext(ctx)
	inspection := &models.Inspection{
		ID:               uuid.NewString(),
		InspectionNumber: input.InspectionNumber,
		Type:             input.Type,
		Status:           status,
		Location:         input.Location,
		ScheduledDate:    input.ScheduledDate,
		InspectorId:      input.InspectorId,
		InspectorName:    utils.FirstNonEmpty(input.InspectorName, actor),
		Notes:            input.Notes,
		Attachments:      input.Attachments,
		CreatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if inspection.InspectorId == "" {
		inspection.InspectorId, _ = utils.GetUserIdFromContext(ctx)
	}
	if status == models.InspectionStatusInProgress {
		inspection.StartedAt = utils.TimePtr(now)
	}

	if err := s.resolveInspectionLineage(ctx, inspection, input.PieceId, input.JobId); err != nil {
		return nil, err
	}

	var items []models.ChecklistItem
	if hasText(input.TemplateId) {
		tpl, expanded, err := s.expander.Expand(ctx, *input.TemplateId)
		if err != nil {
			return nil, err
		}
		if !tpl.IsActive {
			return nil, invalidField("template_id", "checklist template is inactive")
		}
		if !tpl.Supports(inspection.Type) {
			return nil, invalidField("template_id", fmt.Sprintf("checklist template is for %s inspections", *tpl.InspectionType))
		}
		inspection.ChecklistTemplateId = &tpl.ID
		items = expanded
	} else {
		items = explicitChecklistItems(input.ChecklistItems, actor, now)
	}
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].InspectionId = inspection.ID
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
	}
	inspection.ChecklistItems = items

	if inspection.InspectionNumber != "" {
		err = s.inspections.Create(ctx, inspection)
	} else {
		_, err = s.generator.Reserve(ctx, s.inspections, models.DocumentPrefixInspection, now, func(number string) error {
			inspection.InspectionNumber = number
			return s.inspections.Create(ctx, inspection)
		})
	}
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

func explicitChecklistItems(input []models.NewChecklistItem, actor string, now time.Time) []models.ChecklistItem {
	items := make([]models.ChecklistItem, 0, len(input))
	for i, in := range input {
		item := models.ChecklistItem{
			Sequence:    i + 1,
			Category:    in.Category,
			Description: in.Description,
			Requirement: in.Requirement,
			Status:      in.Status,
			Severity:    in.Severity,
			Result:      in.Result,
		}
		if item.Status == "" {
			item.Status = models.ChecklistItemStatusPending
		}
		if item.Severity == "" {
			item.Severity = models.SeverityNormal
		}
		if item.Status != models.ChecklistItemStatusPending {
			item.CompletedBy = actor
			item.CompletedAt = utils.TimePtr(now)
		}
		items = append(items, item)
	}
	return items
}

// resolveInspectionLineage denormalizes piece and job display data; the job defaults to the piece's.
func (s *Service) resolveInspectionLineage(ctx context.Context, inspection *models.Inspection, pieceId, jobId *string) error {
	if hasText(pieceId) {
		piece, err := s.pieces.FindPiece(ctx, *pieceId)
		if err != nil {
			return err
		}
		inspection.PieceId = &piece.ID
		inspection.PieceNumber = piece.PieceNumber
		if !hasText(jobId) && piece.JobId != nil && *piece.JobId != "" {
			jobId = piece.JobId
		}
	}
	if hasText(jobId) {
		job, err := s.jobs.FindJob(ctx, *jobId)
		if err != nil {
			return err
		}
		inspection.JobId = &job.ID
		inspection.JobNumber = job.JobNumber
		inspection.JobName = job.Name
	}
	return nil
}

// UpdateInspection merges patch onto the stored inspection. Completing it PASSED or FAILED
// moves the piece's status; a failed piece write is reported as *utils.StatusSyncError
// alongside the saved inspection.
func (s *Service) UpdateInspection(ctx context.Context, id string, patch models.InspectionPatch) (result *models.Inspection, err error) {
	ctx, end := s.start(ctx, "UpdateInspection")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}
	inspection, err := s.inspections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := inspection.Status
	now := s.now()
	actor := utils.ActorFromContext(ctx)

	if patch.Status != nil && *patch.Status != inspection.Status {
		if err := applyInspectionStatus(inspection, *patch.Status, patch, actor, now); err != nil {
			return nil, err
		}
	}
	mergeInspectionPatch(inspection, patch, now)
	inspection.UpdatedAt = now

	if err := s.inspections.Update(ctx, inspection); err != nil {
		return nil, err
	}

	if inspection.Status != previous {
		if err := s.propagateInspection(ctx, inspection, false); err != nil {
			return inspection, err
		}
	}
	return inspection, nil
}

func applyInspectionStatus(inspection *models.Inspection, next models.InspectionStatus, patch models.InspectionPatch, actor string, now time.Time) error {
	current := inspection.Status
	if !current.CanTransitionTo(next) {
		return &utils.ValidationError{
			Message: fmt.Sprintf("invalid inspection status transition from %s to %s", current, next),
			Fields:  map[string]string{"status": "invalid transition"},
		}
	}
	if next == models.InspectionStatusWaived && !hasText(patch.WaiverReason) && inspection.WaiverReason == "" {
		return invalidField("waiver_reason", "required to waive an inspection")
	}

	// PENDING -> terminal passes through IN_PROGRESS
	if inspection.StartedAt == nil {
		inspection.StartedAt = utils.TimePtr(now)
		if patch.StartedAt != nil {
			inspection.StartedAt = patch.StartedAt
		}
	}
	inspection.Status = next
	if !next.IsTerminal() {
		return nil
	}

	inspection.CompletedAt = utils.TimePtr(now)
	if patch.CompletedAt != nil {
		inspection.CompletedAt = patch.CompletedAt
	}
	if next == models.InspectionStatusWaived {
		inspection.WaivedBy = utils.FirstNonEmpty(utils.DereferencePtr(patch.WaivedBy), inspection.WaivedBy, actor)
	}
	return nil
}

func mergeInspectionPatch(inspection *models.Inspection, patch models.InspectionPatch, now time.Time) {
	if patch.Location != nil {
		inspection.Location = *patch.Location
	}
	if patch.ScheduledDate != nil {
		inspection.ScheduledDate = patch.ScheduledDate
	}
	if patch.StartedAt != nil {
		inspection.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil && inspection.Status.IsTerminal() {
		inspection.CompletedAt = patch.CompletedAt
	}
	if patch.InspectorId != nil {
		inspection.InspectorId = *patch.InspectorId
	}
	if patch.InspectorName != nil {
		inspection.InspectorName = *patch.InspectorName
	}
	if patch.ApprovedBy != nil {
		inspection.ApprovedBy = *patch.ApprovedBy
		if inspection.ApprovedAt == nil && *patch.ApprovedBy != "" {
			inspection.ApprovedAt = utils.TimePtr(now)
		}
	}
	if patch.WaivedBy != nil {
		inspection.WaivedBy = *patch.WaivedBy
	}
	if patch.WaiverReason != nil {
		inspection.WaiverReason = *patch.WaiverReason
	}
	if patch.Notes != nil {
		inspection.Notes = *patch.Notes
	}
	if patch.Attachments != nil {
		inspection.Attachments = patch.Attachments
	}
}

// propagateInspection runs the coordinator for a completed inspection that references a piece.
func (s *Service) propagateInspection(ctx context.Context, inspection *models.Inspection, sync bool) error {
	target, ok := InspectionOutcome(inspection.Type, inspection.Status)
	if !ok || !hasText(inspection.PieceId) {
		return nil
	}
	summary := models.SummarizeInspection(*inspection)
	details := models.StatusChangeDetails{Inspection: &summary}
	var err error
	if sync {
		_, err = s.coordinator.Sync(ctx, *inspection.PieceId, target, details)
	} else {
		_, err = s.coordinator.Apply(ctx, *inspection.PieceId, target, details)
	}
	if err != nil {
		telemetry.StatusSyncFailures.WithLabelValues("INSPECTION").Inc()
		return &utils.StatusSyncError{Resource: "inspection", Id: inspection.ID, PieceId: *inspection.PieceId, Err: err}
	}
	return nil
}

// GetInspection returns the inspection with its checklist items, defects and measurements.
func (s *Service) GetInspection(ctx context.Context, id string) (result *models.Inspection, err error) {
	ctx, end := s.start(ctx, "GetInspection")
	defer func() { end(err) }()

	inspection, err := s.inspections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	defects, err := s.defects.List(ctx, models.DefectFilter{InspectionId: &inspection.ID})
	if err != nil {
		return nil, err
	}
	measurements, err := s.measurements.ListByInspection(ctx, inspection.ID)
	if err != nil {
		return nil, err
	}
	inspection.Defects = make([]models.Defect, 0, len(defects))
	for _, d := range defects {
		inspection.Defects = append(inspection.Defects, *d)
	}
	inspection.Measurements = make([]models.Measurement, 0, len(measurements))
	for _, m := range measurements {
		inspection.Measurements = append(inspection.Measurements, *m)
	}
	return inspection, nil
}

func (s *Service) ListInspections(ctx context.Context, filter models.InspectionFilter) (result []*models.Inspection, err error) {
	ctx, end := s.start(ctx, "ListInspections")
	defer func() { end(err) }()
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, invalidField("from", "must not be after to")
	}
	return s.inspections.List(ctx, filter)
}

// UpdateChecklistItem records an inspector's result. Leaving PENDING stamps the completion
// actor and time; the first recorded result starts a PENDING inspection.
func (s *Service) UpdateChecklistItem(ctx context.Context, inspectionId, itemId string, patch models.ChecklistItemPatch) (result *models.ChecklistItem, err error) {
	ctx, end := s.start(ctx, "UpdateChecklistItem")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}
	inspection, err := s.inspections.Get(ctx, inspectionId)
	if err != nil {
		return nil, err
	}
	if inspection.Status.IsTerminal() {
		return nil, invalidField("status", fmt.Sprintf("inspection is %s", inspection.Status))
	}
	item, err := s.inspections.GetChecklistItem(ctx, inspectionId, itemId)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if patch.Status != nil && *patch.Status != item.Status {
		item.Status = *patch.Status
		if item.Status == models.ChecklistItemStatusPending {
			item.CompletedBy = ""
			item.CompletedAt = nil
		} else {
			item.CompletedBy = utils.FirstNonEmpty(utils.DereferencePtr(patch.CompletedBy), utils.ActorFromContext(ctx))
			item.CompletedAt = utils.TimePtr(now)
		}
	} else if patch.CompletedBy != nil && item.Status != models.ChecklistItemStatusPending {
		item.CompletedBy = *patch.CompletedBy
	}
	if patch.Result != nil {
		item.Result = *patch.Result
	}
	item.UpdatedAt = now
	if err := s.inspections.SaveChecklistItem(ctx, item); err != nil {
		return nil, err
	}

	if inspection.Status == models.InspectionStatusPending && item.Status != models.ChecklistItemStatusPending {
		inspection.Status = models.InspectionStatusInProgress
		inspection.StartedAt = utils.TimePtr(now)
		inspection.UpdatedAt = now
		if err := s.inspections.Update(ctx, inspection); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// SyncInspectionPieceStatus recomputes the piece status from a stored, completed inspection.
// It is idempotent: a piece already in the target status is left alone.
func (s *Service) SyncInspectionPieceStatus(ctx context.Context, id string) (result *models.Inspection, err error) {
	ctx, end := s.start(ctx, "SyncInspectionPieceStatus")
	defer func() { end(err) }()

	inspection, err := s.inspections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hasText(inspection.PieceId) {
		return nil, invalidField("piece_id", "inspection has no piece")
	}
	if _, ok := InspectionOutcome(inspection.Type, inspection.Status); !ok {
		return nil, invalidField("status", fmt.Sprintf("inspection status %s does not set a piece status", inspection.Status))
	}
	if err := s.propagateInspection(ctx, inspection, true); err != nil {
		return inspection, err
	}
	return inspection, nil
}
