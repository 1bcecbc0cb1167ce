package quality

import (
	"testing"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestEvaluateMeasurement(t *testing.T) {
	tests := []struct {
		name                                      string
		expected, minValue, maxValue, tol, actual *decimal.Decimal
		want                                      models.MeasurementStatus
	}{
		{"no reading", dec("100"), nil, nil, dec("2"), nil, models.MeasurementStatusPending},
		{"no bounds", nil, nil, nil, nil, dec("5"), models.MeasurementStatusPending},
		{"inside tolerance", dec("100"), nil, nil, dec("2"), dec("101.5"), models.MeasurementStatusWithinSpec},
		{"on tolerance edge", dec("100"), nil, nil, dec("2"), dec("98"), models.MeasurementStatusWithinSpec},
		{"outside tolerance", dec("100"), nil, nil, dec("2"), dec("102.01"), models.MeasurementStatusOutOfSpec},
		{"explicit min overrides tolerance", dec("100"), dec("99.5"), nil, dec("2"), dec("99"), models.MeasurementStatusOutOfSpec},
		{"max only", nil, nil, dec("40"), nil, dec("40"), models.MeasurementStatusWithinSpec},
		{"min only below", nil, dec("35"), nil, nil, dec("34.9"), models.MeasurementStatusOutOfSpec},
		{"tolerance without expected", nil, nil, nil, dec("1"), dec("3"), models.MeasurementStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateMeasurement(tt.expected, tt.minValue, tt.maxValue, tt.tol, tt.actual)
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveBoundsRejectsInvalidLimits(t *testing.T) {
	if _, err := ResolveBounds(dec("10"), nil, nil, dec("-1")); !utils.IsValidation(err) {
		t.Fatalf("negative tolerance: got %v", err)
	}
	if _, err := ResolveBounds(nil, dec("5"), dec("4"), nil); !utils.IsValidation(err) {
		t.Fatalf("min above max: got %v", err)
	}
	b, err := ResolveBounds(dec("10"), nil, dec("10.5"), dec("1"))
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	if !b.Lower.Equal(decimal.NewFromInt(9)) || !b.Upper.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("bounds = %s..%s", b.Lower, b.Upper)
	}
}

func TestEvaluateTestResult(t *testing.T) {
	required := decimal.NewFromInt(5000)
	if got := EvaluateTestResult(required, nil); got != models.TestResultStatusPending {
		t.Fatalf("no value: %s", got)
	}
	if got := EvaluateTestResult(required, dec("5000")); got != models.TestResultStatusPassed {
		t.Fatalf("equal value: %s", got)
	}
	if got := EvaluateTestResult(required, dec("4999.9")); got != models.TestResultStatusFailed {
		t.Fatalf("low value: %s", got)
	}
}

func TestRecordAndUpdateMeasurement(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePostPour, "piece-1")

	m, err := f.svc.RecordMeasurement(userContext(), inspection.ID, models.NewMeasurement{
		Name:          "Overall length",
		Unit:          "mm",
		ExpectedValue: dec("12000"),
		Tolerance:     dec("6"),
		ActualValue:   dec("12009"),
	})
	if err != nil {
		t.Fatalf("RecordMeasurement: %v", err)
	}
	if m.Status != models.MeasurementStatusOutOfSpec || m.Type != models.MeasurementTypeOther {
		t.Fatalf("measurement = %s %s", m.Status, m.Type)
	}
	if m.MeasuredBy != "Dana Inspector" || m.MeasuredAt == nil || m.PieceId == nil || *m.PieceId != "piece-1" {
		t.Fatalf("measurement not stamped: %+v", m)
	}

	m, err = f.svc.UpdateMeasurement(userContext(), m.ID, models.MeasurementPatch{ActualValue: dec("12004")})
	if err != nil {
		t.Fatalf("UpdateMeasurement: %v", err)
	}
	if m.Status != models.MeasurementStatusWithinSpec {
		t.Fatalf("status after re-measure = %s", m.Status)
	}

	if _, err := f.svc.UpdateMeasurement(userContext(), m.ID, models.MeasurementPatch{Tolerance: dec("-2")}); !utils.IsValidation(err) {
		t.Fatalf("negative tolerance: got %v", err)
	}
	if _, err := f.svc.RecordMeasurement(userContext(), "missing", models.NewMeasurement{Name: "Width"}); !utils.IsNotFound(err) {
		t.Fatalf("unknown inspection: got %v", err)
	}

	if _, err := f.svc.UpdateInspection(userContext(), inspection.ID, models.InspectionPatch{
		Status: statusPtr(models.InspectionStatusPassed),
	}); err != nil {
		t.Fatalf("complete inspection: %v", err)
	}
	if _, err := f.svc.RecordMeasurement(userContext(), inspection.ID, models.NewMeasurement{Name: "Width"}); !utils.IsValidation(err) {
		t.Fatalf("measurement on completed inspection: got %v", err)
	}
}

func TestRecordTestResult(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypeSpecial, "piece-2")

	result, err := f.svc.RecordTestResult(userContext(), models.NewTestResult{
		TestType:      models.TestTypeCompressiveStrength,
		InspectionId:  &inspection.ID,
		SampleId:      "CYL-7",
		RequiredValue: decimal.NewFromInt(3500),
		ActualValue:   dec("3620"),
		Unit:          "psi",
	})
	if err != nil {
		t.Fatalf("RecordTestResult: %v", err)
	}
	if result.Status != models.TestResultStatusPassed || result.TestedAt == nil || result.TestedBy != "Dana Inspector" {
		t.Fatalf("result = %+v", result)
	}
	if result.PieceId == nil || *result.PieceId != "piece-2" || result.JobId == nil || *result.JobId != "job-1" {
		t.Fatalf("lineage = %v %v", result.PieceId, result.JobId)
	}

	pending, err := f.svc.RecordTestResult(userContext(), models.NewTestResult{
		TestType:      models.TestTypeSlump,
		JobId:         strPtr("job-1"),
		RequiredValue: decimal.NewFromInt(6),
	})
	if err != nil {
		t.Fatalf("RecordTestResult: %v", err)
	}
	if pending.Status != models.TestResultStatusPending || pending.TestedAt != nil {
		t.Fatalf("pending result = %+v", pending)
	}

	if _, err := f.svc.RecordTestResult(userContext(), models.NewTestResult{
		TestType:      models.TestTypeSlump,
		RequiredValue: decimal.NewFromInt(-1),
	}); !utils.IsValidation(err) {
		t.Fatalf("negative required value: got %v", err)
	}
	if _, err := f.svc.RecordTestResult(userContext(), models.NewTestResult{
		TestType: models.TestTypeSlump,
		PieceId:  strPtr("no-such-piece"),
	}); !utils.IsNotFound(err) {
		t.Fatalf("unknown piece: got %v", err)
	}
}

func TestUpdateMeasurementClearsValues(t *testing.T) {
	f := newFixture(t)
	inspection := createInspection(t, f, models.InspectionTypePostPour, "piece-1")

	m, err := f.svc.RecordMeasurement(userContext(), inspection.ID, models.NewMeasurement{
		Name:          "Camber",
		ExpectedValue: dec("10"),
		MaxValue:      dec("9"),
		ActualValue:   dec("9.5"),
	})
	if err != nil {
		t.Fatalf("RecordMeasurement: %v", err)
	}
	if m.Status != models.MeasurementStatusOutOfSpec {
		t.Fatalf("status with mistaken max = %s", m.Status)
	}

	weight := models.MeasurementTypeWeight
	m, err = f.svc.UpdateMeasurement(userContext(), m.ID, models.MeasurementPatch{
		Type:      &weight,
		Tolerance: dec("1"),
		Clear:     []string{"max_value"},
	})
	if err != nil {
		t.Fatalf("UpdateMeasurement: %v", err)
	}
	if m.MaxValue != nil || m.Type != models.MeasurementTypeWeight || m.Status != models.MeasurementStatusWithinSpec {
		t.Fatalf("after clearing max = %v %s %s", m.MaxValue, m.Type, m.Status)
	}

	m, err = f.svc.UpdateMeasurement(userContext(), m.ID, models.MeasurementPatch{Clear: []string{"actual_value"}})
	if err != nil {
		t.Fatalf("clear reading: %v", err)
	}
	if m.ActualValue != nil || m.MeasuredAt != nil || m.Status != models.MeasurementStatusPending {
		t.Fatalf("after clearing reading = %+v", m)
	}

	stored, err := f.measurements.Get(userContext(), m.ID)
	if err != nil || stored.MaxValue != nil || stored.ActualValue != nil {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	bad := []models.MeasurementPatch{
		{MinValue: dec("1"), Clear: []string{"min_value"}},
		{Clear: []string{"unit"}},
		{Type: func() *models.MeasurementType { v := models.MeasurementType("VOLUME"); return &v }()},
	}
	for i, patch := range bad {
		if _, err := f.svc.UpdateMeasurement(userContext(), m.ID, patch); !utils.IsValidation(err) {
			t.Fatalf("patch %d: got %v", i, err)
		}
	}
}
