package quality

import (
	"context"

	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/shopspring/decimal"
)

// Aggregator computes dashboard KPIs on demand over the lifetime population.
type Aggregator struct {
	inspections  repositories.InspectionRepository
	defects      repositories.DefectRepository
	measurements repositories.MeasurementRepository
	tests        repositories.TestResultRepository
	pieces       repositories.PieceRepository
	clock        clock.Clock
}

func NewAggregator(
	inspections repositories.InspectionRepository,
	defects repositories.DefectRepository,
	measurements repositories.MeasurementRepository,
	tests repositories.TestResultRepository,
	pieces repositories.PieceRepository,
	clk clock.Clock,
) *Aggregator {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Aggregator{
		inspections:  inspections,
		defects:      defects,
		measurements: measurements,
		tests:        tests,
		pieces:       pieces,
		clock:        clk,
	}
}

// NewMetricsSummary returns a summary with every enum bucket present and zeroed.
func NewMetricsSummary() models.MetricsSummary {
	s := models.MetricsSummary{
		InspectionsByStatus: map[models.InspectionStatus]int64{},
		InspectionsByType:   map[models.InspectionType]int64{},
		DefectsByStatus:     map[models.DefectStatus]int64{},
		DefectsBySeverity:   map[models.Severity]int64{},
		DefectsByCategory:   map[string]int64{},
		TestsByStatus:       map[models.TestResultStatus]int64{},

		FirstTimeQualityRate:         decimal.Zero,
		DefectsPerPiece:              decimal.Zero,
		AverageDefectResolutionHours: decimal.Zero,
		InspectionCompletionRate:     decimal.Zero,
		CriticalDefectRate:           decimal.Zero,
		TestPassRate:                 decimal.Zero,
	}
	for _, st := range []models.InspectionStatus{
		models.InspectionStatusPending, models.InspectionStatusInProgress,
		models.InspectionStatusPassed, models.InspectionStatusFailed, models.InspectionStatusWaived,
	} {
		s.InspectionsByStatus[st] = 0
	}
	for _, t := range []models.InspectionType{
		models.InspectionTypePrePour, models.InspectionTypePostPour, models.InspectionTypeFinal, models.InspectionTypeSpecial,
	} {
		s.InspectionsByType[t] = 0
	}
	for _, st := range []models.DefectStatus{
		models.DefectStatusOpen, models.DefectStatusInReview, models.DefectStatusApprovedForRepair,
		models.DefectStatusRepaired, models.DefectStatusRejected, models.DefectStatusClosed,
	} {
		s.DefectsByStatus[st] = 0
	}
	for _, sev := range []models.Severity{
		models.SeverityLow, models.SeverityNormal, models.SeverityHigh, models.SeverityCritical,
	} {
		s.DefectsBySeverity[sev] = 0
	}
	for _, st := range []models.TestResultStatus{
		models.TestResultStatusPending, models.TestResultStatusPassed, models.TestResultStatusFailed,
	} {
		s.TestsByStatus[st] = 0
	}
	return s
}

func (a *Aggregator) DashboardMetrics(ctx context.Context) (*models.MetricsSummary, error) {
	s := NewMetricsSummary()
	s.GeneratedAt = a.clock.Now().UTC()

	inspections, err := a.inspections.List(ctx, models.InspectionFilter{})
	if err != nil {
		return nil, err
	}
	var passed, failed, waived int64
	for _, i := range inspections {
		s.TotalInspections++
		s.InspectionsByStatus[i.Status]++
		s.InspectionsByType[i.Type]++
		switch i.Status {
		case models.InspectionStatusPassed:
			passed++
		case models.InspectionStatusFailed:
			failed++
		case models.InspectionStatusWaived:
			waived++
		case models.InspectionStatusPending, models.InspectionStatusInProgress:
		}
	}

	defects, err := a.defects.List(ctx, models.DefectFilter{})
	if err != nil {
		return nil, err
	}
	var resolvedCount int64
	var resolvedHours decimal.Decimal
	for _, d := range defects {
		s.TotalDefects++
		s.DefectsByStatus[d.Status]++
		s.DefectsBySeverity[d.Severity]++
		if d.Category != "" {
			s.DefectsByCategory[d.Category]++
		}
		if d.Severity == models.SeverityCritical {
			s.CriticalDefects++
		}
		if d.Status == models.DefectStatusClosed && d.ClosedAt != nil && !d.CreatedAt.IsZero() {
			hours := d.ClosedAt.Sub(d.CreatedAt).Hours()
			if hours < 0 {
				hours = 0
			}
			resolvedHours = resolvedHours.Add(decimal.NewFromFloat(hours))
			resolvedCount++
		}
	}

	measurements, err := a.measurements.ListByInspection(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, m := range measurements {
		s.TotalMeasurements++
		if m.Status == models.MeasurementStatusOutOfSpec {
			s.OutOfSpecMeasurements++
		}
	}

	tests, err := a.tests.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tests {
		s.TotalTests++
		s.TestsByStatus[t.Status]++
	}

	s.TotalPieces, err = a.pieces.CountPieces(ctx, models.PieceFilter{})
	if err != nil {
		return nil, err
	}

	s.FirstTimeQualityRate = percentage(passed, s.TotalInspections)
	s.InspectionCompletionRate = percentage(passed+failed+waived, s.TotalInspections)
	s.DefectsPerPiece = ratio(s.TotalDefects, s.TotalPieces)
	s.CriticalDefectRate = percentage(s.CriticalDefects, s.TotalDefects)
	s.TestPassRate = percentage(s.TestsByStatus[models.TestResultStatusPassed], s.TotalTests)
	if resolvedCount > 0 {
		s.AverageDefectResolutionHours = resolvedHours.Div(decimal.NewFromInt(resolvedCount)).Round(2)
	}
	return &s, nil
}
