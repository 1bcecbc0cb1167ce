package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
)

type pieceReader struct {
	pieces repositories.PieceRepository
}

func (r *pieceReader) getPieces(ctx context.Context, ids []string) []*dataloader.Result[*models.Piece] {
	results, err := r.pieces.FindPieces(ctx, ids)
	if err != nil {
		return handleError[*models.Piece](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(p *models.Piece) string { return p.ID })
}

// GetPiece loads one piece through the request's loader. A missing piece is nil.
func GetPiece(ctx context.Context, id string) (*models.Piece, error) {
	loaders := For(ctx)
	return loaders.PieceLoader.Load(ctx, id)()
}

// GetPieceStatuses maps piece id to its current status. Unknown ids are left out.
func GetPieceStatuses(ctx context.Context, ids []string) (map[string]models.PieceStatus, error) {
	statuses := make(map[string]models.PieceStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	loaders := For(ctx)
	pieces, errs := loaders.PieceLoader.LoadMany(ctx, ids)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, p := range pieces {
		if p != nil {
			statuses[p.ID] = p.Status
		}
	}
	return statuses, nil
}
