package quality

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/shopspring/decimal"
)

func TestDashboardMetricsEmpty(t *testing.T) {
	f := newFixture(t)
	s, err := f.svc.GetDashboardMetrics(context.Background())
	if err != nil {
		t.Fatalf("GetDashboardMetrics: %v", err)
	}
	if s.TotalInspections != 0 || s.TotalDefects != 0 || s.TotalTests != 0 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.TotalPieces != 5 {
		t.Fatalf("total pieces = %d, want 5", s.TotalPieces)
	}
	for name, v := range map[string]decimal.Decimal{
		"first time quality":   s.FirstTimeQualityRate,
		"defects per piece":    s.DefectsPerPiece,
		"resolution hours":     s.AverageDefectResolutionHours,
		"completion rate":      s.InspectionCompletionRate,
		"critical defect rate": s.CriticalDefectRate,
		"test pass rate":       s.TestPassRate,
	} {
		if !v.IsZero() {
			t.Fatalf("%s = %s, want 0", name, v)
		}
	}
	if len(s.InspectionsByStatus) != 5 || len(s.DefectsBySeverity) != 4 || len(s.DefectsByStatus) != 6 {
		t.Fatalf("enum buckets missing: %v %v %v", s.InspectionsByStatus, s.DefectsBySeverity, s.DefectsByStatus)
	}
	if !s.GeneratedAt.Equal(testNow) {
		t.Fatalf("generated at = %s", s.GeneratedAt)
	}
}

func TestDashboardMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := userContext()
	complete := func(typ models.InspectionType, piece string, patch models.InspectionPatch) {
		t.Helper()
		inspection := createInspection(t, f, typ, piece)
		if _, err := f.svc.UpdateInspection(ctx, inspection.ID, patch); err != nil {
			t.Fatalf("UpdateInspection: %v", err)
		}
	}
	complete(models.InspectionTypePrePour, "piece-1", models.InspectionPatch{Status: statusPtr(models.InspectionStatusPassed)})
	complete(models.InspectionTypePostPour, "piece-2", models.InspectionPatch{Status: statusPtr(models.InspectionStatusFailed)})
	complete(models.InspectionTypeFinal, "", models.InspectionPatch{
		Status:       statusPtr(models.InspectionStatusWaived),
		WaiverReason: strPtr("repeat of accepted mock-up"),
	})
	createInspection(t, f, models.InspectionTypeFinal, "piece-4")

	createDefect(t, f, "piece-3", models.SeverityCritical)
	minor := createDefect(t, f, "piece-4", models.SeverityLow)
	f.clock.Advance(6 * time.Hour)
	if _, err := f.svc.UpdateDefect(ctx, minor.ID, models.DefectPatch{
		Status:        defectStatusPtr(models.DefectStatusClosed),
		ClosureReason: strPtr("within cosmetic limits"),
	}); err != nil {
		t.Fatalf("close defect: %v", err)
	}

	for _, actual := range []string{"4100", "3900"} {
		if _, err := f.svc.RecordTestResult(ctx, models.NewTestResult{
			TestType:      models.TestTypeCompressiveStrength,
			RequiredValue: decimal.NewFromInt(4000),
			ActualValue:   dec(actual),
		}); err != nil {
			t.Fatalf("RecordTestResult: %v", err)
		}
	}

	s, err := f.svc.GetDashboardMetrics(context.Background())
	if err != nil {
		t.Fatalf("GetDashboardMetrics: %v", err)
	}
	if s.TotalInspections != 4 || s.InspectionsByStatus[models.InspectionStatusPending] != 1 || s.InspectionsByType[models.InspectionTypeFinal] != 2 {
		t.Fatalf("inspection counts %+v", s)
	}
	if s.TotalDefects != 2 || s.CriticalDefects != 1 || s.DefectsByCategory["Surface"] != 2 {
		t.Fatalf("defect counts %+v", s)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"first time quality", s.FirstTimeQualityRate, "25"},
		{"completion rate", s.InspectionCompletionRate, "75"},
		{"defects per piece", s.DefectsPerPiece, "0.4"},
		{"critical defect rate", s.CriticalDefectRate, "50"},
		{"resolution hours", s.AverageDefectResolutionHours, "6"},
		{"test pass rate", s.TestPassRate, "50"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestPercentageClamps(t *testing.T) {
	if got := percentage(3, 0); !got.IsZero() {
		t.Fatalf("zero denominator = %s", got)
	}
	if got := percentage(5, 4); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("over 100 = %s", got)
	}
	if got := percentage(1, 3); got.String() != "33.33" {
		t.Fatalf("one third = %s", got)
	}
}
