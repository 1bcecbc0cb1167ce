package models

import "time"

// Notification doubles as the outbox row: downstream modules read it, the dispatcher publishes it.
type Notification struct {
	ID            string               `gorm:"primaryKey;size:36;index:idx_notification_dispatch,priority:3" json:"id"`
	Type          NotificationType     `gorm:"size:50;not null" json:"type"`
	Title         string               `gorm:"size:255;not null" json:"title"`
	Message       string               `gorm:"type:text" json:"message"`
	SourceModule  Module               `gorm:"size:30;not null" json:"source_module"`
	TargetModule  Module               `gorm:"size:30;not null;index" json:"target_module"`
	EntityId      string               `gorm:"size:36;index" json:"entity_id"`
	EntityType    string               `gorm:"size:30" json:"entity_type"`
	Metadata      NotificationMetadata `gorm:"serializer:json;type:json" json:"metadata"`
	IsRead        bool                 `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt        *time.Time           `json:"read_at"`
	CorrelationId string               `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`

	PublishStatus    OutboxPublishStatus `gorm:"size:20;not null;default:'PENDING';index:idx_notification_dispatch,priority:1" json:"publish_status"`
	PublishAttempts  int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index:idx_notification_dispatch,priority:2" json:"next_attempt_at"`
	PublishedAt      *time.Time          `json:"published_at"`
	PubSubMessageId  *string             `gorm:"size:255" json:"pubsub_message_id"`
	LockedAt         *time.Time          `json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError *string             `gorm:"type:text" json:"last_publish_error"`
}

// NotificationMetadata is the structured payload every piece status notification carries.
type NotificationMetadata struct {
	PieceId        string              `json:"piece_id"`
	PieceNumber    string              `json:"piece_number,omitempty"`
	PieceType      string              `json:"piece_type,omitempty"`
	JobId          string              `json:"job_id,omitempty"`
	JobNumber      string              `json:"job_number,omitempty"`
	JobName        string              `json:"job_name,omitempty"`
	NewStatus      PieceStatus         `json:"new_status"`
	PreviousStatus PieceStatus         `json:"previous_status,omitempty"`
	Details        StatusChangeDetails `json:"details"`
}

// StatusChangeDetails describes what caused a piece status change. Exactly one side is set.
type StatusChangeDetails struct {
	Inspection *InspectionSummary `json:"inspection,omitempty"`
	Defect     *DefectSummary     `json:"defect,omitempty"`
}

func (d StatusChangeDetails) SourceEntity() (id, entityType string) {
	switch {
	case d.Inspection != nil:
		return d.Inspection.InspectionId, "INSPECTION"
	case d.Defect != nil:
		return d.Defect.DefectId, "DEFECT"
	}
	return "", ""
}

type InspectionSummary struct {
	InspectionId     string           `json:"inspection_id"`
	InspectionNumber string           `json:"inspection_number"`
	Type             InspectionType   `json:"type"`
	Status           InspectionStatus `json:"status"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	Inspector        string           `json:"inspector,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

type DefectSummary struct {
	DefectId                   string                  `json:"defect_id"`
	DefectNumber               string                  `json:"defect_number"`
	Severity                   Severity                `json:"severity"`
	Status                     DefectStatus            `json:"status"`
	Category                   string                  `json:"category,omitempty"`
	Description                string                  `json:"description,omitempty"`
	InspectedAfterRepairResult *RepairInspectionResult `json:"inspected_after_repair_result,omitempty"`
}

func SummarizeInspection(i Inspection) InspectionSummary {
	inspector := i.InspectorName
	if inspector == "" {
		inspector = i.InspectorId
	}
	return InspectionSummary{
		InspectionId:     i.ID,
		InspectionNumber: i.InspectionNumber,
		Type:             i.Type,
		Status:           i.Status,
		CompletedAt:      i.CompletedAt,
		Inspector:        inspector,
		Notes:            i.Notes,
	}
}

func SummarizeDefect(d Defect) DefectSummary {
	return DefectSummary{
		DefectId:                   d.ID,
		DefectNumber:               d.DefectNumber,
		Severity:                   d.Severity,
		Status:                     d.Status,
		Category:                   d.Category,
		Description:                d.Description,
		InspectedAfterRepairResult: d.InspectedAfterRepairResult,
	}
}

type NotificationFilter struct {
	TargetModule *Module `json:"target_module"`
	EntityId     *string `json:"entity_id"`
	UnreadOnly   bool    `json:"unread"`
	Limit        int     `json:"limit"`
}
