package quality

import (
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/shopspring/decimal"
)

// Bounds is an inclusive acceptance band; a nil side is open.
type Bounds struct {
	Lower *decimal.Decimal
	Upper *decimal.Decimal
}

func (b Bounds) IsZero() bool {
	return b.Lower == nil && b.Upper == nil
}

func (b Bounds) Contains(v decimal.Decimal) bool {
	if b.Lower != nil && v.LessThan(*b.Lower) {
		return false
	}
	if b.Upper != nil && v.GreaterThan(*b.Upper) {
		return false
	}
	return true
}

// ResolveBounds combines explicit limits with expected ± tolerance.
// An explicit min or max overrides the tolerance-derived limit on its side;
// a tolerance without an expected value contributes nothing.
func ResolveBounds(expected, minValue, maxValue, tolerance *decimal.Decimal) (Bounds, error) {
	if tolerance != nil && tolerance.IsNegative() {
		return Bounds{}, &utils.ValidationError{
			Message: "invalid measurement bounds",
			Fields:  map[string]string{"tolerance": "must not be negative"},
		}
	}
	var b Bounds
	if expected != nil && tolerance != nil {
		lower := expected.Sub(*tolerance)
		upper := expected.Add(*tolerance)
		b.Lower, b.Upper = &lower, &upper
	}
	if minValue != nil {
		v := *minValue
		b.Lower = &v
	}
	if maxValue != nil {
		v := *maxValue
		b.Upper = &v
	}
	if b.Lower != nil && b.Upper != nil && b.Lower.GreaterThan(*b.Upper) {
		return Bounds{}, &utils.ValidationError{
			Message: "invalid measurement bounds",
			Fields:  map[string]string{"min_value": "must not exceed max_value"},
		}
	}
	return b, nil
}

// EvaluateMeasurement derives the status of a reading. It stays PENDING while the actual
// value is missing or no bound is configured.
func EvaluateMeasurement(expected, minValue, maxValue, tolerance, actual *decimal.Decimal) models.MeasurementStatus {
	if actual == nil {
		return models.MeasurementStatusPending
	}
	b, err := ResolveBounds(expected, minValue, maxValue, tolerance)
	if err != nil || b.IsZero() {
		return models.MeasurementStatusPending
	}
	if b.Contains(*actual) {
		return models.MeasurementStatusWithinSpec
	}
	return models.MeasurementStatusOutOfSpec
}

// EvaluateTestResult passes a lab test when the actual value reaches the required value.
func EvaluateTestResult(required decimal.Decimal, actual *decimal.Decimal) models.TestResultStatus {
	if actual == nil {
		return models.TestResultStatusPending
	}
	if actual.GreaterThanOrEqual(required) {
		return models.TestResultStatusPassed
	}
	return models.TestResultStatusFailed
}
