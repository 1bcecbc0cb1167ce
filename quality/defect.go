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

// CreateDefect stores a new defect numbered DEF-YY-NNNN. A defect raised from an inspection
// inherits its piece and job; one raised on a piece inherits the piece's job.
// A CRITICAL defect sends its piece to DEFECTIVE straight away.
func (s *Service) CreateDefect(ctx context.Context, input models.NewDefect) (result *models.Defect, err error) {
	ctx, end := s.start(ctx, "CreateDefect")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	status := utils.DereferencePtr(input.Status, models.DefectStatusOpen)
	if status != models.DefectStatusOpen && status != models.DefectStatusInReview {
		return nil, invalidField("status", "a defect must start as OPEN or IN_REVIEW")
	}
	severity := input.Severity
	if severity == "" {
		severity = models.SeverityNormal
	}

	now := s.now()
	defect := &models.Defect{
		ID:           uuid.NewString(),
		DefectNumber: input.DefectNumber,
		DefectType:   input.DefectType,
		Category:     input.Category,
		Location:     input.Location,
		Description:  input.Description,
		Severity:     severity,
		Status:       status,
		RootCause:    input.RootCause,
		ReportedBy:   utils.FirstNonEmpty(input.ReportedBy, utils.ActorFromContext(ctx)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.resolveDefectLineage(ctx, defect, input); err != nil {
		return nil, err
	}

	if defect.DefectNumber != "" {
		err = s.defects.Create(ctx, defect)
	} else {
		_, err = s.generator.Reserve(ctx, s.defects, models.DocumentPrefixDefect, now, func(number string) error {
			defect.DefectNumber = number
			return s.defects.Create(ctx, defect)
		})
	}
	if err != nil {
		return nil, err
	}

	if target, ok := CriticalDefectOutcome(*defect); ok {
		if err := s.propagateDefect(ctx, defect, target, false); err != nil {
			return defect, err
		}
	}
	return defect, nil
}

func (s *Service) resolveDefectLineage(ctx context.Context, defect *models.Defect, input models.NewDefect) error {
	pieceId := input.PieceId
	jobId := input.JobId

	if hasText(input.InspectionId) {
		inspection, err := s.inspections.Get(ctx, *input.InspectionId)
		if err != nil {
			return err
		}
		defect.InspectionId = &inspection.ID
		defect.InspectionNumber = inspection.InspectionNumber
		if hasText(inspection.PieceId) {
			if hasText(pieceId) && *pieceId != *inspection.PieceId {
				return invalidField("piece_id", "does not match the inspection's piece")
			}
			pieceId = inspection.PieceId
		}
		if !hasText(jobId) && hasText(inspection.JobId) {
			jobId = inspection.JobId
		}
	}
	if !hasText(pieceId) {
		return invalidField("piece_id", "required unless the inspection references a piece")
	}

	piece, err := s.pieces.FindPiece(ctx, *pieceId)
	if err != nil {
		return err
	}
	defect.PieceId = piece.ID
	defect.PieceNumber = piece.PieceNumber
	if !hasText(jobId) && hasText(piece.JobId) {
		jobId = piece.JobId
	}

	if hasText(jobId) {
		job, err := s.jobs.FindJob(ctx, *jobId)
		if err != nil {
			return err
		}
		defect.JobId = &job.ID
		defect.JobNumber = job.JobNumber
		defect.JobName = job.Name
	}
	return nil
}

// UpdateDefect merges patch onto the stored defect. Entering "repaired and re-inspected PASSED"
// approves the piece, entering REJECTED rejects it. Closing stamps closure metadata.
func (s *Service) UpdateDefect(ctx context.Context, id string, patch models.DefectPatch) (result *models.Defect, err error) {
	ctx, end := s.start(ctx, "UpdateDefect")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}
	defect, err := s.defects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *defect
	now := s.now()
	actor := utils.ActorFromContext(ctx)

	if previous.Status == models.DefectStatusClosed {
		return nil, invalidField("status", "defect is closed")
	}
	if patch.Status != nil && *patch.Status != defect.Status {
		if !defect.Status.CanTransitionTo(*patch.Status) {
			return nil, &utils.ValidationError{
				Message: fmt.Sprintf("invalid defect status transition from %s to %s", defect.Status, *patch.Status),
				Fields:  map[string]string{"status": "invalid transition"},
			}
		}
		defect.Status = *patch.Status
	}
	mergeDefectPatch(defect, patch)

	if defect.Status == models.DefectStatusRepaired && previous.Status != models.DefectStatusRepaired {
		if defect.RepairedAt == nil {
			defect.RepairedAt = utils.TimePtr(now)
		}
		defect.RepairedBy = utils.FirstNonEmpty(defect.RepairedBy, actor)
	}
	if patch.InspectedAfterRepairResult != nil {
		defect.InspectedAfterRepairAt = utils.TimePtr(now)
		if patch.InspectedAfterRepairAt != nil {
			defect.InspectedAfterRepairAt = patch.InspectedAfterRepairAt
		}
		defect.InspectedAfterRepairBy = utils.FirstNonEmpty(utils.DereferencePtr(patch.InspectedAfterRepairBy), defect.InspectedAfterRepairBy, actor)
	}
	if defect.Status == models.DefectStatusClosed {
		if err := closeDefect(defect, patch, actor, now); err != nil {
			return nil, err
		}
	}
	defect.UpdatedAt = now

	if err := s.defects.Update(ctx, defect); err != nil {
		return nil, err
	}

	target, ok := DefectOutcome(*defect)
	prevTarget, prevOk := DefectOutcome(previous)
	if ok && (!prevOk || prevTarget != target) {
		if err := s.propagateDefect(ctx, defect, target, false); err != nil {
			return defect, err
		}
	}
	return defect, nil
}

func mergeDefectPatch(defect *models.Defect, patch models.DefectPatch) {
	if patch.DefectType != nil {
		defect.DefectType = *patch.DefectType
	}
	if patch.Category != nil {
		defect.Category = *patch.Category
	}
	if patch.Location != nil {
		defect.Location = *patch.Location
	}
	if patch.Description != nil {
		defect.Description = *patch.Description
	}
	if patch.RootCause != nil {
		defect.RootCause = *patch.RootCause
	}
	if patch.RepairMethod != nil {
		defect.RepairMethod = *patch.RepairMethod
	}
	if patch.RepairNotes != nil {
		defect.RepairNotes = *patch.RepairNotes
	}
	if patch.RepairedBy != nil {
		defect.RepairedBy = *patch.RepairedBy
	}
	if patch.RepairedAt != nil {
		defect.RepairedAt = patch.RepairedAt
	}
	if patch.InspectedAfterRepairResult != nil {
		result := *patch.InspectedAfterRepairResult
		defect.InspectedAfterRepairResult = &result
	}
}

// closeDefect requires an actor and a reason; the close time is always now.
func closeDefect(defect *models.Defect, patch models.DefectPatch, actor string, now time.Time) error {
	closedBy := utils.FirstNonEmpty(utils.DereferencePtr(patch.ClosedBy), actor)
	if closedBy == "" {
		return invalidField("closed_by", "required to close a defect")
	}
	reason := utils.FirstNonEmpty(utils.DereferencePtr(patch.ClosureReason), defect.ClosureReason)
	if reason == "" {
		return invalidField("closure_reason", "required to close a defect")
	}
	defect.ClosedBy = closedBy
	defect.ClosureReason = reason
	defect.ClosedAt = utils.TimePtr(now)
	return nil
}

func (s *Service) propagateDefect(ctx context.Context, defect *models.Defect, target models.PieceStatus, sync bool) error {
	summary := models.SummarizeDefect(*defect)
	details := models.StatusChangeDetails{Defect: &summary}
	var err error
	if sync {
		_, err = s.coordinator.Sync(ctx, defect.PieceId, target, details)
	} else {
		_, err = s.coordinator.Apply(ctx, defect.PieceId, target, details)
	}
	if err != nil {
		telemetry.StatusSyncFailures.WithLabelValues("DEFECT").Inc()
		return &utils.StatusSyncError{Resource: "defect", Id: defect.ID, PieceId: defect.PieceId, Err: err}
	}
	return nil
}

func (s *Service) GetDefect(ctx context.Context, id string) (result *models.Defect, err error) {
	ctx, end := s.start(ctx, "GetDefect")
	defer func() { end(err) }()
	return s.defects.Get(ctx, id)
}

func (s *Service) ListDefects(ctx context.Context, filter models.DefectFilter) (result []*models.Defect, err error) {
	ctx, end := s.start(ctx, "ListDefects")
	defer func() { end(err) }()
	return s.defects.List(ctx, filter)
}

// SyncDefectPieceStatus recomputes the piece status from a stored defect. It is idempotent.
func (s *Service) SyncDefectPieceStatus(ctx context.Context, id string) (result *models.Defect, err error) {
	ctx, end := s.start(ctx, "SyncDefectPieceStatus")
	defer func() { end(err) }()

	defect, err := s.defects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	target, ok := DefectSyncTarget(*defect)
	if !ok {
		return nil, invalidField("status", fmt.Sprintf("defect %s does not set a piece status", defect.Status))
	}
	if err := s.propagateDefect(ctx, defect, target, true); err != nil {
		return defect, err
	}
	return defect, nil
}
