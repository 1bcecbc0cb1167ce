package quality

import (
	"context"

	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/sirupsen/logrus"
)

// InspectionOutcome maps a completed inspection onto a piece status.
// PRE_POUR and POST_POUR have their own mapping; other types use the general one.
// WAIVED and non-terminal statuses map to nothing.
func InspectionOutcome(t models.InspectionType, s models.InspectionStatus) (models.PieceStatus, bool) {
	switch s {
	case models.InspectionStatusPassed:
		switch t {
		case models.InspectionTypePrePour:
			return models.PieceStatusReadyForPour, true
		case models.InspectionTypePostPour:
			return models.PieceStatusReadyForYard, true
		}
		return models.PieceStatusQCApproved, true
	case models.InspectionStatusFailed:
		switch t {
		case models.InspectionTypePrePour:
			return models.PieceStatusInspectionFailed, true
		case models.InspectionTypePostPour:
			return models.PieceStatusReworkRequired, true
		}
		return models.PieceStatusQCRejected, true
	}
	return "", false
}

// DefectOutcome maps a stored defect onto a piece status: a repair that passed
// re-inspection approves the piece and a rejected defect rejects it.
func DefectOutcome(d models.Defect) (models.PieceStatus, bool) {
	if d.RepairPassed() {
		return models.PieceStatusQCApproved, true
	}
	if d.Status == models.DefectStatusRejected {
		return models.PieceStatusRejected, true
	}
	return "", false
}

// CriticalDefectOutcome applies at creation only, whatever the defect's own status.
func CriticalDefectOutcome(d models.Defect) (models.PieceStatus, bool) {
	if d.Severity == models.SeverityCritical {
		return models.PieceStatusDefective, true
	}
	return "", false
}

// DefectSyncTarget recomputes the piece status a stored defect implies.
func DefectSyncTarget(d models.Defect) (models.PieceStatus, bool) {
	if status, ok := DefectOutcome(d); ok {
		return status, true
	}
	if d.Status != models.DefectStatusClosed {
		return CriticalDefectOutcome(d)
	}
	return "", false
}

// Transition is the result of one coordinated piece status change.
type Transition struct {
	PieceId        string
	PreviousStatus models.PieceStatus
	Status         models.PieceStatus
	Notifications  []models.Notification
	JobMetrics     *models.JobMetrics
	Skipped        bool
}

// Coordinator writes piece status changes and runs every side effect that follows them.
type Coordinator struct {
	pieces repositories.PieceRepository
	fanOut *FanOut
	clock  clock.Clock
	logger *logrus.Logger
}

func NewCoordinator(pieces repositories.PieceRepository, fanOut *FanOut, clk clock.Clock, logger *logrus.Logger) *Coordinator {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Coordinator{pieces: pieces, fanOut: fanOut, clock: clk, logger: logger}
}

// Apply writes status to the piece, then emits notifications and recomputes the job's
// metrics. Only the piece read and write can fail the call; later steps are best-effort.
func (c *Coordinator) Apply(ctx context.Context, pieceId string, status models.PieceStatus, details models.StatusChangeDetails) (*Transition, error) {
	return c.apply(ctx, pieceId, status, details, false)
}

// Sync is Apply for recomputation: when the piece already has status nothing is written or emitted.
func (c *Coordinator) Sync(ctx context.Context, pieceId string, status models.PieceStatus, details models.StatusChangeDetails) (*Transition, error) {
	return c.apply(ctx, pieceId, status, details, true)
}

func (c *Coordinator) apply(ctx context.Context, pieceId string, status models.PieceStatus, details models.StatusChangeDetails, skipUnchanged bool) (*Transition, error) {
	piece, err := c.pieces.FindPiece(ctx, pieceId)
	if err != nil {
		return nil, err
	}
	t := &Transition{PieceId: pieceId, PreviousStatus: piece.Status, Status: status}
	if skipUnchanged && piece.Status == status {
		t.Skipped = true
		return t, nil
	}

	now := c.clock.Now().UTC()
	if err := c.pieces.UpdatePieceStatus(ctx, pieceId, status, now); err != nil {
		return nil, err
	}
	_, source := details.SourceEntity()
	telemetry.PieceTransitionsTotal.WithLabelValues(string(status), source).Inc()

	updated := *piece
	updated.Status = status
	updated.UpdatedAt = now
	t.Notifications = c.fanOut.Notify(ctx, updated, t.PreviousStatus, details)

	if updated.JobId != nil && *updated.JobId != "" {
		metrics, err := c.fanOut.RecomputeJobMetrics(ctx, *updated.JobId)
		if err != nil {
			telemetry.DependencyFailures.WithLabelValues("job_metrics").Inc()
			config.LogWarn(c.logger, "quality", "Coordinator.Apply", "RecomputeJobMetrics", map[string]string{
				"piece_id": pieceId,
				"job_id":   *updated.JobId,
			}, err)
		} else {
			t.JobMetrics = metrics
		}
	}
	return t, nil
}
