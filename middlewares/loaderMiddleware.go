package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders are created per request so cached values never outlive it.
type Loaders struct {
	PieceLoader *dataloader.Loader[string, *models.Piece]
}

func NewLoaders(pieces repositories.PieceRepository) *Loaders {
	pieceReader := &pieceReader{pieces: pieces}
	return &Loaders{
		PieceLoader: dataloader.NewBatchedLoader(pieceReader.getPieces, dataloader.WithWait[string, *models.Piece](time.Millisecond)),
	}
}

func LoaderMiddleware(pieces repositories.PieceRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithLoaders(c.Request.Context(), NewLoaders(pieces))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// For returns nil when the request did not pass through LoaderMiddleware.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults keeps the order of ids; missing rows load as nil.
func generateLoaderResults[T any](results []*T, ids []string, idOf func(*T) string) []*dataloader.Result[*T] {
	resultMap := make(map[string]*T, len(results))
	for _, result := range results {
		resultMap[idOf(result)] = result
	}
	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[id]})
	}
	return loaderResults
}
