package models

import "time"

// IssuedNumber records document numbers handed out to modules that keep no QA entity,
// such as work orders and breakdown reports.
type IssuedNumber struct {
	Number    string    `gorm:"primaryKey;size:40" json:"number"`
	Prefix    string    `gorm:"size:10;not null;index" json:"prefix"`
	IssuedBy  string    `gorm:"size:100" json:"issued_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DocumentPrefix names a numbered document kind.
type DocumentPrefix string

const (
	DocumentPrefixInspection      DocumentPrefix = "INS"
	DocumentPrefixDefect          DocumentPrefix = "DEF"
	DocumentPrefixWorkOrder       DocumentPrefix = "WO"
	DocumentPrefixBreakdownReport DocumentPrefix = "BR"
)

func (p DocumentPrefix) IsValid() bool {
	switch p {
	case DocumentPrefixInspection, DocumentPrefixDefect, DocumentPrefixWorkOrder, DocumentPrefixBreakdownReport:
		return true
	}
	return false
}

// NumberScope is the period a sequence restarts in.
type NumberScope int

const (
	NumberScopeYearly NumberScope = iota
	NumberScopeDaily
)

// Scope returns the numbering period of the document kind.
func (p DocumentPrefix) Scope() NumberScope {
	switch p {
	case DocumentPrefixWorkOrder, DocumentPrefixBreakdownReport:
		return NumberScopeDaily
	}
	return NumberScopeYearly
}
