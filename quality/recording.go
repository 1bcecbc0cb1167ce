package quality

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/shopspring/decimal"
)

// RecordMeasurement stores a reading on an open inspection and evaluates it.
func (s *Service) RecordMeasurement(ctx context.Context, inspectionId string, input models.NewMeasurement) (result *models.Measurement, err error) {
	ctx, end := s.start(ctx, "RecordMeasurement")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	inspection, err := s.openInspection(ctx, inspectionId)
	if err != nil {
		return nil, err
	}
	if _, err := ResolveBounds(input.ExpectedValue, input.MinValue, input.MaxValue, input.Tolerance); err != nil {
		return nil, err
	}

	now := s.now()
	m := &models.Measurement{
		ID:            uuid.NewString(),
		InspectionId:  inspection.ID,
		PieceId:       inspection.PieceId,
		Name:          input.Name,
		Location:      input.Location,
		Type:          input.Type,
		Unit:          input.Unit,
		ExpectedValue: input.ExpectedValue,
		MinValue:      input.MinValue,
		MaxValue:      input.MaxValue,
		Tolerance:     input.Tolerance,
		ActualValue:   input.ActualValue,
		MeasuredBy:    utils.FirstNonEmpty(input.MeasuredBy, utils.ActorFromContext(ctx)),
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if m.Type == "" {
		m.Type = models.MeasurementTypeOther
	}
	if m.ActualValue != nil {
		m.MeasuredAt = utils.TimePtr(now)
	}
	m.Status = EvaluateMeasurement(m.ExpectedValue, m.MinValue, m.MaxValue, m.Tolerance, m.ActualValue)

	if err := s.measurements.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMeasurement merges patch and re-evaluates the reading.
func (s *Service) UpdateMeasurement(ctx context.Context, id string, patch models.MeasurementPatch) (result *models.Measurement, err error) {
	ctx, end := s.start(ctx, "UpdateMeasurement")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}
	m, err := s.measurements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.openInspection(ctx, m.InspectionId); err != nil {
		return nil, err
	}

	now := s.now()
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Location != nil {
		m.Location = *patch.Location
	}
	if patch.Type != nil {
		m.Type = *patch.Type
	}
	if patch.Unit != nil {
		m.Unit = *patch.Unit
	}
	values := []struct {
		field string
		set   *decimal.Decimal
		dst   **decimal.Decimal
	}{
		{"expected_value", patch.ExpectedValue, &m.ExpectedValue},
		{"min_value", patch.MinValue, &m.MinValue},
		{"max_value", patch.MaxValue, &m.MaxValue},
		{"tolerance", patch.Tolerance, &m.Tolerance},
	}
	for _, v := range values {
		if v.set != nil && patch.Clears(v.field) {
			return nil, invalidField(v.field, "cannot be set and cleared in one update")
		}
		if patch.Clears(v.field) {
			*v.dst = nil
		} else if v.set != nil {
			*v.dst = v.set
		}
	}
	switch {
	case patch.ActualValue != nil && patch.Clears("actual_value"):
		return nil, invalidField("actual_value", "cannot be set and cleared in one update")
	case patch.Clears("actual_value"):
		m.ActualValue = nil
		m.MeasuredAt = nil
	case patch.ActualValue != nil:
		m.ActualValue = patch.ActualValue
		m.MeasuredAt = utils.TimePtr(now)
		m.MeasuredBy = utils.FirstNonEmpty(utils.DereferencePtr(patch.MeasuredBy), utils.ActorFromContext(ctx), m.MeasuredBy)
	case patch.MeasuredBy != nil:
		m.MeasuredBy = *patch.MeasuredBy
	}
	if patch.Notes != nil {
		m.Notes = *patch.Notes
	}
	if _, err := ResolveBounds(m.ExpectedValue, m.MinValue, m.MaxValue, m.Tolerance); err != nil {
		return nil, err
	}
	m.Status = EvaluateMeasurement(m.ExpectedValue, m.MinValue, m.MaxValue, m.Tolerance, m.ActualValue)
	m.UpdatedAt = now

	if err := s.measurements.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) openInspection(ctx context.Context, id string) (*models.Inspection, error) {
	inspection, err := s.inspections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inspection.Status.IsTerminal() {
		return nil, invalidField("inspection_id", fmt.Sprintf("inspection is %s", inspection.Status))
	}
	return inspection, nil
}

// RecordTestResult stores a lab test. It passes when the actual value reaches the required value.
func (s *Service) RecordTestResult(ctx context.Context, input models.NewTestResult) (result *models.TestResult, err error) {
	ctx, end := s.start(ctx, "RecordTestResult")
	defer func() { end(err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.RequiredValue.IsNegative() {
		return nil, invalidField("required_value", "must not be negative")
	}

	now := s.now()
	t := &models.TestResult{
		ID:            uuid.NewString(),
		TestType:      input.TestType,
		SampleId:      input.SampleId,
		RequiredValue: input.RequiredValue,
		ActualValue:   input.ActualValue,
		Unit:          input.Unit,
		TestedBy:      utils.FirstNonEmpty(input.TestedBy, utils.ActorFromContext(ctx)),
		TestedAt:      input.TestedAt,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	jobId := input.JobId
	if hasText(input.InspectionId) {
		inspection, err := s.inspections.Get(ctx, *input.InspectionId)
		if err != nil {
			return nil, err
		}
		t.InspectionId = &inspection.ID
		if !hasText(input.PieceId) {
			t.PieceId = inspection.PieceId
		}
		if !hasText(jobId) {
			jobId = inspection.JobId
		}
	}
	if hasText(input.PieceId) {
		piece, err := s.pieces.FindPiece(ctx, *input.PieceId)
		if err != nil {
			return nil, err
		}
		t.PieceId = &piece.ID
		if !hasText(jobId) {
			jobId = piece.JobId
		}
	}
	if hasText(jobId) {
		job, err := s.jobs.FindJob(ctx, *jobId)
		if err != nil {
			return nil, err
		}
		t.JobId = &job.ID
	}

	if t.ActualValue != nil && t.TestedAt == nil {
		t.TestedAt = utils.TimePtr(now)
	}
	t.Status = EvaluateTestResult(t.RequiredValue, t.ActualValue)

	if err := s.tests.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
