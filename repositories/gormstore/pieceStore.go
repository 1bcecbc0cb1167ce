package gormstore

import (
	"context"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PieceStore reads the production pieces and jobs tables and writes piece status and job metrics.
type PieceStore struct {
	db *gorm.DB
}

func NewPieceStore(db *gorm.DB) *PieceStore {
	return &PieceStore{db: db}
}

var (
	_ repositories.PieceRepository = (*PieceStore)(nil)
	_ repositories.JobRepository   = (*PieceStore)(nil)
)

func (s *PieceStore) FindPiece(ctx context.Context, id string) (*models.Piece, error) {
	var piece models.Piece
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&piece).Error; err != nil {
		return nil, notFound(err, "piece", id)
	}
	return &piece, nil
}

func (s *PieceStore) FindPieces(ctx context.Context, ids []string) ([]*models.Piece, error) {
	var pieces []*models.Piece
	if len(ids) == 0 {
		return pieces, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&pieces).Error; err != nil {
		return nil, err
	}
	return pieces, nil
}

func (s *PieceStore) UpdatePieceStatus(ctx context.Context, id string, status models.PieceStatus, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Piece{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Piece{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return utils.NewNotFoundError("piece", id)
		}
	}
	return nil
}

func (s *PieceStore) CountPieces(ctx context.Context, filter models.PieceFilter) (int64, error) {
	dbCtx := s.db.WithContext(ctx).Model(&models.Piece{})
	if filter.JobId != nil {
		dbCtx.Where("job_id = ?", *filter.JobId)
	}
	if len(filter.Statuses) > 0 {
		dbCtx.Where("status IN ?", filter.Statuses)
	}
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PieceStore) FindJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, notFound(err, "job", id)
	}
	return &job, nil
}

// UpsertJobMetrics replaces the job's rollup row.
func (s *PieceStore) UpsertJobMetrics(ctx context.Context, metrics *models.JobMetrics) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_pieces", "approved_pieces", "rejected_pieces",
				"quality_rate", "rejection_rate", "updated_at",
			}),
		}).
		Create(metrics).Error
}

func (s *PieceStore) GetJobMetrics(ctx context.Context, jobId string) (*models.JobMetrics, error) {
	var metrics models.JobMetrics
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobId).First(&metrics).Error; err != nil {
		return nil, notFound(err, "job metrics", jobId)
	}
	return &metrics, nil
}
