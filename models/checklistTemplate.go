package models

import "time"

// ChecklistTemplate is owned by configuration; the QA engine only reads it.
type ChecklistTemplate struct {
	ID             string                  `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Name           string                  `gorm:"size:100;not null" json:"name" yaml:"name"`
	EntityType     string                  `gorm:"size:50;not null;default:'PIECE'" json:"entity_type" yaml:"entity_type"`
	InspectionType *InspectionType         `gorm:"size:20;index" json:"inspection_type" yaml:"inspection_type"`
	Version        int                     `gorm:"not null;default:1" json:"version" yaml:"version"`
	IsActive       bool                    `gorm:"not null;default:true" json:"is_active" yaml:"is_active"`
	Items          []ChecklistTemplateItem `gorm:"foreignKey:TemplateId" json:"items" yaml:"items"`
	CreatedAt      time.Time               `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
	UpdatedAt      time.Time               `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

type ChecklistTemplateItem struct {
	ID          string   `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	TemplateId  string   `gorm:"size:36;not null;index" json:"template_id" yaml:"-"`
	Sequence    int      `gorm:"not null;default:0" json:"sequence" yaml:"sequence"`
	Category    string   `gorm:"size:100" json:"category" yaml:"category"`
	Description string   `gorm:"type:text;not null" json:"description" yaml:"description"`
	Requirement string   `gorm:"type:text" json:"requirement" yaml:"requirement"`
	Severity    Severity `gorm:"size:20;not null;default:'NORMAL'" json:"severity" yaml:"severity"`
}

// Supports reports whether the template may seed an inspection of type t.
func (tpl ChecklistTemplate) Supports(t InspectionType) bool {
	return tpl.InspectionType == nil || *tpl.InspectionType == t
}
