package quality

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/mmdatafocus/precast_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NotificationTargets lists the modules told about a piece entering status.
// Yard Management always hears; Shipping hears about approvals and Production about rejections.
func NotificationTargets(status models.PieceStatus) []models.Module {
	targets := []models.Module{models.ModuleYardManagement}
	switch status {
	case models.PieceStatusQCApproved:
		targets = append(targets, models.ModuleShipping)
	case models.PieceStatusQCRejected, models.PieceStatusDefective:
		targets = append(targets, models.ModuleProduction)
	}
	return targets
}

type FanOut struct {
	sink   repositories.NotificationSink
	pieces repositories.PieceRepository
	jobs   repositories.JobRepository
	clock  clock.Clock
	logger *logrus.Logger
}

func NewFanOut(sink repositories.NotificationSink, pieces repositories.PieceRepository, jobs repositories.JobRepository, clk clock.Clock, logger *logrus.Logger) *FanOut {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &FanOut{sink: sink, pieces: pieces, jobs: jobs, clock: clk, logger: logger}
}

// Notify emits one notification per target module and returns those the sink accepted.
// Sink failures are logged and dropped.
func (f *FanOut) Notify(ctx context.Context, piece models.Piece, previous models.PieceStatus, details models.StatusChangeDetails) []models.Notification {
	metadata := models.NotificationMetadata{
		PieceId:        piece.ID,
		PieceNumber:    piece.PieceNumber,
		PieceType:      piece.PieceType,
		NewStatus:      piece.Status,
		PreviousStatus: previous,
		Details:        details,
	}
	if piece.JobId != nil && *piece.JobId != "" {
		metadata.JobId = *piece.JobId
		job, err := f.jobs.FindJob(ctx, *piece.JobId)
		if err != nil {
			config.LogWarn(f.logger, "quality", "FanOut.Notify", "FindJob", map[string]string{"job_id": *piece.JobId}, err)
		} else {
			metadata.JobNumber = job.JobNumber
			metadata.JobName = job.Name
		}
	}

	correlationId := utils.CorrelationIdFromContextOrNew(ctx)
	now := f.clock.Now().UTC()
	sent := make([]models.Notification, 0, 2)
	for _, target := range NotificationTargets(piece.Status) {
		n := buildNotification(target, piece, previous, metadata)
		n.ID = uuid.NewString()
		n.CorrelationId = correlationId
		n.CreatedAt = now
		n.PublishStatus = models.OutboxPublishStatusPending

		if err := f.sink.CreateNotification(ctx, &n); err != nil {
			failure := &utils.DependencyFailure{Dependency: "notification", Err: err}
			telemetry.NotificationsTotal.WithLabelValues(string(target), "failed").Inc()
			telemetry.DependencyFailures.WithLabelValues("notification").Inc()
			config.LogWarn(f.logger, "quality", "FanOut.Notify", "CreateNotification", map[string]string{
				"piece_id": piece.ID,
				"target":   string(target),
				"status":   string(piece.Status),
			}, failure)
			continue
		}
		telemetry.NotificationsTotal.WithLabelValues(string(target), "sent").Inc()
		sent = append(sent, n)
	}
	return sent
}

func buildNotification(target models.Module, piece models.Piece, previous models.PieceStatus, metadata models.NotificationMetadata) models.Notification {
	label := utils.FirstNonEmpty(piece.PieceNumber, piece.ID)
	n := models.Notification{
		SourceModule: models.ModuleQualityControl,
		TargetModule: target,
		EntityId:     piece.ID,
		EntityType:   "PIECE",
		Metadata:     metadata,
	}
	switch target {
	case models.ModuleShipping:
		n.Type = models.NotificationTypeReadyForShipping
		n.Title = "Piece ready for shipping"
		n.Message = fmt.Sprintf("Piece %s passed quality control and is ready for shipping", label)
	case models.ModuleProduction:
		n.Type = models.NotificationTypeRequiresAttention
		n.Title = "Piece requires attention"
		n.Message = fmt.Sprintf("Piece %s was marked %s and requires attention", label, piece.Status)
	default:
		n.Type = models.NotificationTypePieceStatusChanged
		n.Title = "Piece status changed"
		if previous != "" && previous != piece.Status {
			n.Message = fmt.Sprintf("Piece %s status changed from %s to %s", label, previous, piece.Status)
		} else {
			n.Message = fmt.Sprintf("Piece %s status changed to %s", label, piece.Status)
		}
	}
	return n
}

// RecomputeJobMetrics rebuilds and upserts the job's rollup from current piece statuses.
func (f *FanOut) RecomputeJobMetrics(ctx context.Context, jobId string) (*models.JobMetrics, error) {
	total, err := f.pieces.CountPieces(ctx, models.PieceFilter{JobId: &jobId})
	if err != nil {
		return nil, &utils.DependencyFailure{Dependency: "job_metrics", Err: err}
	}
	approved, err := f.pieces.CountPieces(ctx, models.PieceFilter{
		JobId:    &jobId,
		Statuses: []models.PieceStatus{models.PieceStatusQCApproved},
	})
	if err != nil {
		return nil, &utils.DependencyFailure{Dependency: "job_metrics", Err: err}
	}
	rejected, err := f.pieces.CountPieces(ctx, models.PieceFilter{
		JobId:    &jobId,
		Statuses: []models.PieceStatus{models.PieceStatusQCRejected, models.PieceStatusDefective, models.PieceStatusRejected},
	})
	if err != nil {
		return nil, &utils.DependencyFailure{Dependency: "job_metrics", Err: err}
	}

	metrics := &models.JobMetrics{
		JobId:          jobId,
		TotalPieces:    total,
		ApprovedPieces: approved,
		RejectedPieces: rejected,
		QualityRate:    percentage(approved, total),
		RejectionRate:  percentage(rejected, total),
		UpdatedAt:      f.clock.Now().UTC(),
	}
	if err := f.jobs.UpsertJobMetrics(ctx, metrics); err != nil {
		return nil, &utils.DependencyFailure{Dependency: "job_metrics", Err: err}
	}
	return metrics, nil
}

var hundred = decimal.NewFromInt(100)

// percentage is part/whole*100 rounded to 2 places, clamped to [0,100]; 0 when whole is 0.
func percentage(part, whole int64) decimal.Decimal {
	if whole <= 0 || part <= 0 {
		return decimal.Zero
	}
	if part >= whole {
		return hundred
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(2)
}

// ratio is part/whole rounded to 2 places; 0 when whole is 0.
func ratio(part, whole int64) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(whole)).Round(2)
}
