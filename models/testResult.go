package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TestResult is a lab test on a sample taken from a piece or pour.
type TestResult struct {
	ID            string           `gorm:"primaryKey;size:36" json:"id"`
	TestType      TestType         `gorm:"size:30;not null;index" json:"test_type"`
	PieceId       *string          `gorm:"size:36;index" json:"piece_id"`
	JobId         *string          `gorm:"size:36;index" json:"job_id"`
	InspectionId  *string          `gorm:"size:36;index" json:"inspection_id"`
	SampleId      string           `gorm:"size:100" json:"sample_id"`
	RequiredValue decimal.Decimal  `gorm:"type:decimal(20,6);not null" json:"required_value"`
	ActualValue   *decimal.Decimal `gorm:"type:decimal(20,6)" json:"actual_value"`
	Unit          string           `gorm:"size:20" json:"unit"`
	Status        TestResultStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	TestedBy      string           `gorm:"size:100" json:"tested_by"`
	TestedAt      *time.Time       `json:"tested_at"`
	Notes         string           `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTestResult struct {
	TestType      TestType         `json:"test_type" validate:"required,enum"`
	PieceId       *string          `json:"piece_id"`
	JobId         *string          `json:"job_id"`
	InspectionId  *string          `json:"inspection_id"`
	SampleId      string           `json:"sample_id" validate:"max=100"`
	RequiredValue decimal.Decimal  `json:"required_value"`
	ActualValue   *decimal.Decimal `json:"actual_value"`
	Unit          string           `json:"unit" validate:"max=20"`
	TestedBy      string           `json:"tested_by"`
	TestedAt      *time.Time       `json:"tested_at"`
	Notes         string           `json:"notes"`
}
