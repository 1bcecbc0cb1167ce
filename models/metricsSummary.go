package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricsSummary is the QA dashboard. Rates are percentages in [0,100].
type MetricsSummary struct {
	TotalInspections    int64                      `json:"total_inspections"`
	InspectionsByStatus map[InspectionStatus]int64 `json:"inspections_by_status"`
	InspectionsByType   map[InspectionType]int64   `json:"inspections_by_type"`

	TotalDefects      int64                  `json:"total_defects"`
	DefectsByStatus   map[DefectStatus]int64 `json:"defects_by_status"`
	DefectsBySeverity map[Severity]int64     `json:"defects_by_severity"`
	DefectsByCategory map[string]int64       `json:"defects_by_category"`
	CriticalDefects   int64                  `json:"critical_defects"`

	TotalPieces           int64 `json:"total_pieces"`
	TotalMeasurements     int64 `json:"total_measurements"`
	OutOfSpecMeasurements int64 `json:"out_of_spec_measurements"`

	TotalTests    int64                      `json:"total_tests"`
	TestsByStatus map[TestResultStatus]int64 `json:"tests_by_status"`

	FirstTimeQualityRate         decimal.Decimal `json:"first_time_quality_rate"`
	DefectsPerPiece              decimal.Decimal `json:"defects_per_piece"`
	AverageDefectResolutionHours decimal.Decimal `json:"average_defect_resolution_hours"`
	InspectionCompletionRate     decimal.Decimal `json:"inspection_completion_rate"`
	CriticalDefectRate           decimal.Decimal `json:"critical_defect_rate"`
	TestPassRate                 decimal.Decimal `json:"test_pass_rate"`

	GeneratedAt time.Time `json:"generated_at"`
}
