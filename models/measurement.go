package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Measurement struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	InspectionId  string            `gorm:"size:36;not null;index" json:"inspection_id"`
	PieceId       *string           `gorm:"size:36;index" json:"piece_id"`
	Name          string            `gorm:"size:100;not null" json:"name"`
	Location      string            `gorm:"size:255" json:"location"`
	Type          MeasurementType   `gorm:"size:20;not null;default:'OTHER'" json:"measurement_type"`
	Unit          string            `gorm:"size:20" json:"unit"`
	ExpectedValue *decimal.Decimal  `gorm:"type:decimal(20,6)" json:"expected_value"`
	MinValue      *decimal.Decimal  `gorm:"type:decimal(20,6)" json:"min_value"`
	MaxValue      *decimal.Decimal  `gorm:"type:decimal(20,6)" json:"max_value"`
	Tolerance     *decimal.Decimal  `gorm:"type:decimal(20,6)" json:"tolerance"`
	ActualValue   *decimal.Decimal  `gorm:"type:decimal(20,6)" json:"actual_value"`
	Status        MeasurementStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	MeasuredBy    string            `gorm:"size:100" json:"measured_by"`
	MeasuredAt    *time.Time        `json:"measured_at"`
	Notes         string            `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMeasurement struct {
	Name          string           `json:"name" validate:"required,max=100"`
	Location      string           `json:"location" validate:"max=255"`
	Type          MeasurementType  `json:"measurement_type" validate:"omitempty,enum"`
	Unit          string           `json:"unit" validate:"max=20"`
	ExpectedValue *decimal.Decimal `json:"expected_value"`
	MinValue      *decimal.Decimal `json:"min_value"`
	MaxValue      *decimal.Decimal `json:"max_value"`
	Tolerance     *decimal.Decimal `json:"tolerance"`
	ActualValue   *decimal.Decimal `json:"actual_value"`
	MeasuredBy    string           `json:"measured_by"`
	Notes         string           `json:"notes"`
}

// MeasurementPatch leaves nil fields unchanged. Clear resets the named values to null.
type MeasurementPatch struct {
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Location      *string          `json:"location" validate:"omitempty,max=255"`
	Type          *MeasurementType `json:"measurement_type" validate:"omitempty,enum"`
	Unit          *string          `json:"unit" validate:"omitempty,max=20"`
	ExpectedValue *decimal.Decimal `json:"expected_value"`
	MinValue      *decimal.Decimal `json:"min_value"`
	MaxValue      *decimal.Decimal `json:"max_value"`
	Tolerance     *decimal.Decimal `json:"tolerance"`
	ActualValue   *decimal.Decimal `json:"actual_value"`
	MeasuredBy    *string          `json:"measured_by"`
	Notes         *string          `json:"notes"`
	Clear         []string         `json:"clear" validate:"omitempty,dive,oneof=expected_value min_value max_value tolerance actual_value"`
}

// Clears reports whether field is named in Clear.
func (p MeasurementPatch) Clears(field string) bool {
	for _, f := range p.Clear {
		if f == field {
			return true
		}
	}
	return false
}
