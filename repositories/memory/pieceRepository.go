package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/utils"
)

// PieceRepository stands in for the production module's piece and job tables.
type PieceRepository struct {
	mu      sync.RWMutex
	pieces  map[string]models.Piece
	jobs    map[string]models.Job
	metrics map[string]models.JobMetrics
	writes  int
}

func NewPieceRepository() *PieceRepository {
	return &PieceRepository{
		pieces:  make(map[string]models.Piece),
		jobs:    make(map[string]models.Job),
		metrics: make(map[string]models.JobMetrics),
	}
}

var (
	_ repositories.PieceRepository = (*PieceRepository)(nil)
	_ repositories.JobRepository   = (*PieceRepository)(nil)
)

func (r *PieceRepository) AddPiece(p models.Piece) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pieces[p.ID] = p
}

func (r *PieceRepository) AddJob(j models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

// StatusWrites counts successful UpdatePieceStatus calls.
func (r *PieceRepository) StatusWrites() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

func (r *PieceRepository) FindPiece(_ context.Context, id string) (*models.Piece, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pieces[id]
	if !ok {
		return nil, utils.NewNotFoundError("piece", id)
	}
	return &p, nil
}

func (r *PieceRepository) FindPieces(_ context.Context, ids []string) ([]*models.Piece, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]*models.Piece, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.pieces[id]; ok {
			found := p
			results = append(results, &found)
		}
	}
	return results, nil
}

func (r *PieceRepository) UpdatePieceStatus(_ context.Context, id string, status models.PieceStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pieces[id]
	if !ok {
		return utils.NewNotFoundError("piece", id)
	}
	p.Status = status
	p.UpdatedAt = at
	r.pieces[id] = p
	r.writes++
	return nil
}

func (r *PieceRepository) CountPieces(_ context.Context, filter models.PieceFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.pieces {
		if filter.JobId != nil && (p.JobId == nil || *p.JobId != *filter.JobId) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, p.Status) {
			continue
		}
		n++
	}
	return n, nil
}

func (r *PieceRepository) FindJob(_ context.Context, id string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, utils.NewNotFoundError("job", id)
	}
	return &j, nil
}

func (r *PieceRepository) UpsertJobMetrics(_ context.Context, metrics *models.JobMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[metrics.JobId] = *metrics
	return nil
}

func (r *PieceRepository) GetJobMetrics(_ context.Context, jobId string) (*models.JobMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[jobId]
	if !ok {
		return nil, utils.NewNotFoundError("job metrics", jobId)
	}
	return &m, nil
}

// JobMetricsCount is the number of stored metrics rows.
func (r *PieceRepository) JobMetricsCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metrics)
}
