package models

import (
	"time"
)

type Inspection struct {
	ID                  string           `gorm:"primaryKey;size:36" json:"id"`
	InspectionNumber    string           `gorm:"size:32;not null;uniqueIndex" json:"inspection_number"`
	Type                InspectionType   `gorm:"type:enum('PRE_POUR','POST_POUR','FINAL','SPECIAL');not null;index" json:"type"`
	Status              InspectionStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PieceId             *string          `gorm:"size:36;index" json:"piece_id"`
	PieceNumber         string           `gorm:"size:100" json:"piece_number"`
	JobId               *string          `gorm:"size:36;index" json:"job_id"`
	JobNumber           string           `gorm:"size:100" json:"job_number"`
	JobName             string           `gorm:"size:255" json:"job_name"`
	Location            string           `gorm:"size:255" json:"location"`
	ScheduledDate       *time.Time       `gorm:"index" json:"scheduled_date"`
	StartedAt           *time.Time       `json:"started_at"`
	CompletedAt         *time.Time       `json:"completed_at"`
	InspectorId         string           `gorm:"size:64" json:"inspector_id"`
	InspectorName       string           `gorm:"size:100" json:"inspector_name"`
	ApprovedBy          string           `gorm:"size:100" json:"approved_by"`
	ApprovedAt          *time.Time       `json:"approved_at"`
	WaivedBy            string           `gorm:"size:100" json:"waived_by"`
	WaiverReason        string           `gorm:"type:text" json:"waiver_reason"`
	Notes               string           `gorm:"type:text" json:"notes"`
	Attachments         []string         `gorm:"serializer:json;type:json" json:"attachments"`
	ChecklistTemplateId *string          `gorm:"size:36" json:"checklist_template_id"`
	CreatedBy           string           `gorm:"size:100" json:"created_by"`
	CreatedAt           time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	ChecklistItems []ChecklistItem `gorm:"foreignKey:InspectionId" json:"checklist_items"`
	Defects        []Defect        `gorm:"foreignKey:InspectionId" json:"defects"`
	Measurements   []Measurement   `gorm:"foreignKey:InspectionId" json:"measurements"`
}

// ActivityDate is the date used by list date-range filters.
func (i Inspection) ActivityDate() time.Time {
	if i.ScheduledDate != nil {
		return *i.ScheduledDate
	}
	return i.CreatedAt
}

type ChecklistItem struct {
	ID           string              `gorm:"primaryKey;size:36" json:"id"`
	InspectionId string              `gorm:"size:36;not null;index" json:"inspection_id"`
	Sequence     int                 `gorm:"not null;default:0" json:"sequence"`
	Category     string              `gorm:"size:100" json:"category"`
	Description  string              `gorm:"type:text;not null" json:"description"`
	Requirement  string              `gorm:"type:text" json:"requirement"`
	Status       ChecklistItemStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	Severity     Severity            `gorm:"size:20;not null;default:'NORMAL'" json:"severity"`
	Result       string              `gorm:"type:text" json:"result"`
	CompletedBy  string              `gorm:"size:100" json:"completed_by"`
	CompletedAt  *time.Time          `json:"completed_at"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInspection struct {
	InspectionNumber string             `json:"inspection_number"`
	Type             InspectionType     `json:"type" validate:"required,enum"`
	Status           *InspectionStatus  `json:"status" validate:"omitempty,enum"`
	PieceId          *string            `json:"piece_id"`
	JobId            *string            `json:"job_id"`
	Location         string             `json:"location" validate:"max=255"`
	ScheduledDate    *time.Time         `json:"scheduled_date"`
	InspectorId      string             `json:"inspector_id"`
	InspectorName    string             `json:"inspector_name" validate:"max=100"`
	Notes            string             `json:"notes"`
	Attachments      []string           `json:"attachments"`
	TemplateId       *string            `json:"template_id"`
	ChecklistItems   []NewChecklistItem `json:"checklist_items" validate:"dive"`
}

type NewChecklistItem struct {
	Category    string              `json:"category" validate:"max=100"`
	Description string              `json:"description" validate:"required"`
	Requirement string              `json:"requirement"`
	Status      ChecklistItemStatus `json:"status" validate:"omitempty,enum"`
	Severity    Severity            `json:"severity" validate:"omitempty,enum"`
	Result      string              `json:"result"`
}

// InspectionPatch holds the fields an update may change; nil means unchanged.
type InspectionPatch struct {
	Status        *InspectionStatus `json:"status" validate:"omitempty,enum"`
	Location      *string           `json:"location" validate:"omitempty,max=255"`
	ScheduledDate *time.Time        `json:"scheduled_date"`
	StartedAt     *time.Time        `json:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at"`
	InspectorId   *string           `json:"inspector_id"`
	InspectorName *string           `json:"inspector_name" validate:"omitempty,max=100"`
	ApprovedBy    *string           `json:"approved_by"`
	WaivedBy      *string           `json:"waived_by"`
	WaiverReason  *string           `json:"waiver_reason"`
	Notes         *string           `json:"notes"`
	Attachments   []string          `json:"attachments"`
}

type ChecklistItemPatch struct {
	Status      *ChecklistItemStatus `json:"status" validate:"omitempty,enum"`
	Result      *string              `json:"result"`
	CompletedBy *string              `json:"completed_by"`
}

type InspectionFilter struct {
	Type    *InspectionType   `json:"type"`
	Status  *InspectionStatus `json:"status"`
	JobId   *string           `json:"job_id"`
	PieceId *string           `json:"piece_id"`
	From    *time.Time        `json:"from"`
	To      *time.Time        `json:"to"`
	Search  string            `json:"search"`
}
