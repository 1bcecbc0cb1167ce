// Package repositories declares the stores the QA engine depends on.
// Implementations live in repositories/memory and repositories/gormstore.
package repositories

import (
	"context"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
)

// NumberSource finds the highest document number issued with a given textual prefix.
// It returns "" when none exists.
type NumberSource interface {
	HighestNumber(ctx context.Context, prefix string) (string, error)
}

type InspectionRepository interface {
	NumberSource
	// Create stores the inspection and its checklist items.
	Create(ctx context.Context, inspection *models.Inspection) error
	// Update saves inspection columns; checklist items are saved separately.
	Update(ctx context.Context, inspection *models.Inspection) error
	// Get returns the inspection with its checklist items in sequence order.
	Get(ctx context.Context, id string) (*models.Inspection, error)
	List(ctx context.Context, filter models.InspectionFilter) ([]*models.Inspection, error)
	GetChecklistItem(ctx context.Context, inspectionId, itemId string) (*models.ChecklistItem, error)
	SaveChecklistItem(ctx context.Context, item *models.ChecklistItem) error
}

type DefectRepository interface {
	NumberSource
	Create(ctx context.Context, defect *models.Defect) error
	Update(ctx context.Context, defect *models.Defect) error
	Get(ctx context.Context, id string) (*models.Defect, error)
	List(ctx context.Context, filter models.DefectFilter) ([]*models.Defect, error)
}

type MeasurementRepository interface {
	Create(ctx context.Context, m *models.Measurement) error
	Update(ctx context.Context, m *models.Measurement) error
	Get(ctx context.Context, id string) (*models.Measurement, error)
	// ListByInspection returns all measurements when inspectionId is empty.
	ListByInspection(ctx context.Context, inspectionId string) ([]*models.Measurement, error)
}

type TestResultRepository interface {
	Create(ctx context.Context, t *models.TestResult) error
	List(ctx context.Context) ([]*models.TestResult, error)
}

type TemplateRepository interface {
	FindTemplate(ctx context.Context, id string) (*models.ChecklistTemplate, error)
}

type PieceRepository interface {
	FindPiece(ctx context.Context, id string) (*models.Piece, error)
	FindPieces(ctx context.Context, ids []string) ([]*models.Piece, error)
	UpdatePieceStatus(ctx context.Context, id string, status models.PieceStatus, at time.Time) error
	CountPieces(ctx context.Context, filter models.PieceFilter) (int64, error)
}

type JobRepository interface {
	FindJob(ctx context.Context, id string) (*models.Job, error)
	UpsertJobMetrics(ctx context.Context, metrics *models.JobMetrics) error
	GetJobMetrics(ctx context.Context, jobId string) (*models.JobMetrics, error)
}

// NotificationSink accepts notifications for delivery. Delivery is at-least-once and best-effort.
type NotificationSink interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// NotificationRepository is the read side used by downstream modules.
type NotificationRepository interface {
	NotificationSink
	ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) (*models.Notification, error)
}

// IssuedNumberRepository backs numbers for documents the QA engine does not own.
type IssuedNumberRepository interface {
	NumberSource
	Insert(ctx context.Context, n *models.IssuedNumber) error
}

// Locker serializes work on a key. The release func is always non-nil.
type Locker interface {
	Lock(ctx context.Context, key string) (release func())
}

// OutboxClaim selects notifications due for publishing.
type OutboxClaim struct {
	Owner       string
	Now         time.Time
	StaleBefore time.Time
	Limit       int
	MaxAttempts int
}

// NotificationOutbox is the publishing side of the notification table.
type NotificationOutbox interface {
	// ClaimDue locks PENDING and FAILED rows that are due plus PROCESSING rows whose lock is stale.
	// Rows already at MaxAttempts are marked DEAD and left out of the result.
	ClaimDue(ctx context.Context, claim OutboxClaim) ([]*models.Notification, error)
	MarkPublished(ctx context.Context, id, messageId string, at time.Time) error
	// MarkPublishFailed moves the row to FAILED with nextAttempt, or to DEAD when nextAttempt is nil.
	MarkPublishFailed(ctx context.Context, id, cause string, nextAttempt *time.Time) error
	// RequeueDead resets DEAD rows to PENDING with a fresh attempt budget.
	RequeueDead(ctx context.Context, now time.Time) (int64, error)
}
