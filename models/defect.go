package models

import "time"

type Defect struct {
	ID                         string                  `gorm:"primaryKey;size:36" json:"id"`
	DefectNumber               string                  `gorm:"size:32;not null;uniqueIndex" json:"defect_number"`
	InspectionId               *string                 `gorm:"size:36;index" json:"inspection_id"`
	InspectionNumber           string                  `gorm:"size:32" json:"inspection_number"`
	PieceId                    string                  `gorm:"size:36;not null;index" json:"piece_id"`
	PieceNumber                string                  `gorm:"size:100" json:"piece_number"`
	JobId                      *string                 `gorm:"size:36;index" json:"job_id"`
	JobNumber                  string                  `gorm:"size:100" json:"job_number"`
	JobName                    string                  `gorm:"size:255" json:"job_name"`
	DefectType                 string                  `gorm:"size:100" json:"defect_type"`
	Category                   string                  `gorm:"size:100;index" json:"category"`
	Location                   string                  `gorm:"size:255" json:"location"`
	Description                string                  `gorm:"type:text;not null" json:"description"`
	Severity                   Severity                `gorm:"size:20;not null;default:'NORMAL';index" json:"severity"`
	Status                     DefectStatus            `gorm:"size:30;not null;default:'OPEN';index" json:"status"`
	RootCause                  string                  `gorm:"type:text" json:"root_cause"`
	ReportedBy                 string                  `gorm:"size:100" json:"reported_by"`
	RepairMethod               string                  `gorm:"type:text" json:"repair_method"`
	RepairNotes                string                  `gorm:"type:text" json:"repair_notes"`
	RepairedBy                 string                  `gorm:"size:100" json:"repaired_by"`
	RepairedAt                 *time.Time              `json:"repaired_at"`
	InspectedAfterRepairBy     string                  `gorm:"size:100" json:"inspected_after_repair_by"`
	InspectedAfterRepairAt     *time.Time              `json:"inspected_after_repair_at"`
	InspectedAfterRepairResult *RepairInspectionResult `gorm:"size:10" json:"inspected_after_repair_result"`
	ClosedBy                   string                  `gorm:"size:100" json:"closed_by"`
	ClosedAt                   *time.Time              `json:"closed_at"`
	ClosureReason              string                  `gorm:"type:text" json:"closure_reason"`
	CreatedAt                  time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

// RepairPassed reports a repaired defect whose post-repair inspection passed.
func (d Defect) RepairPassed() bool {
	return d.Status == DefectStatusRepaired &&
		d.InspectedAfterRepairResult != nil &&
		*d.InspectedAfterRepairResult == RepairInspectionResultPassed
}

type NewDefect struct {
	DefectNumber string        `json:"defect_number"`
	InspectionId *string       `json:"inspection_id"`
	PieceId      *string       `json:"piece_id"`
	JobId        *string       `json:"job_id"`
	DefectType   string        `json:"defect_type" validate:"max=100"`
	Category     string        `json:"category" validate:"max=100"`
	Location     string        `json:"location" validate:"max=255"`
	Description  string        `json:"description" validate:"required"`
	Severity     Severity      `json:"severity" validate:"omitempty,enum"`
	Status       *DefectStatus `json:"status" validate:"omitempty,enum"`
	RootCause    string        `json:"root_cause"`
	ReportedBy   string        `json:"reported_by"`
}

type DefectPatch struct {
	Status                     *DefectStatus           `json:"status" validate:"omitempty,enum"`
	DefectType                 *string                 `json:"defect_type" validate:"omitempty,max=100"`
	Category                   *string                 `json:"category" validate:"omitempty,max=100"`
	Location                   *string                 `json:"location" validate:"omitempty,max=255"`
	Description                *string                 `json:"description"`
	RootCause                  *string                 `json:"root_cause"`
	RepairMethod               *string                 `json:"repair_method"`
	RepairNotes                *string                 `json:"repair_notes"`
	RepairedBy                 *string                 `json:"repaired_by"`
	RepairedAt                 *time.Time              `json:"repaired_at"`
	InspectedAfterRepairBy     *string                 `json:"inspected_after_repair_by"`
	InspectedAfterRepairAt     *time.Time              `json:"inspected_after_repair_at"`
	InspectedAfterRepairResult *RepairInspectionResult `json:"inspected_after_repair_result" validate:"omitempty,enum"`
	ClosedBy                   *string                 `json:"closed_by"`
	ClosureReason              *string                 `json:"closure_reason"`
}

type DefectFilter struct {
	Status       *DefectStatus `json:"status"`
	Severity     *Severity     `json:"severity"`
	Category     *string       `json:"category"`
	JobId        *string       `json:"job_id"`
	PieceId      *string       `json:"piece_id"`
	InspectionId *string       `json:"inspection_id"`
	Search       string        `json:"search"`
}
