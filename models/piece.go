package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Piece and Job are owned by Production; the QA engine reads them and writes Piece.Status only.
type Piece struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	PieceNumber string      `gorm:"size:100;index" json:"piece_number"`
	PieceType   string      `gorm:"size:100" json:"piece_type"`
	JobId       *string     `gorm:"size:36;index" json:"job_id"`
	Status      PieceStatus `gorm:"size:30;not null;default:'SCHEDULED';index" json:"status"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Job struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	JobNumber string    `gorm:"size:100;index" json:"job_number"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type PieceFilter struct {
	JobId    *string
	Statuses []PieceStatus
}

// JobMetrics is the per-job quality rollup, one row per job.
type JobMetrics struct {
	JobId          string          `gorm:"primaryKey;size:36" json:"job_id"`
	TotalPieces    int64           `gorm:"not null;default:0" json:"total_pieces"`
	ApprovedPieces int64           `gorm:"not null;default:0" json:"approved_pieces"`
	RejectedPieces int64           `gorm:"not null;default:0" json:"rejected_pieces"`
	QualityRate    decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0" json:"quality_rate"`
	RejectionRate  decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0" json:"rejection_rate"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
