package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"github.com/mmdatafocus/precast_backend/telemetry"
	"github.com/mmdatafocus/precast_backend/utils"
)

// ScopePrefix is the textual prefix shared by every number issued in the period containing at:
// PREFIX-YY- for yearly scopes and PREFIX-YYYYMMDD- for daily ones.
func ScopePrefix(prefix models.DocumentPrefix, scope models.NumberScope, at time.Time) string {
	if scope == models.NumberScopeDaily {
		return fmt.Sprintf("%s-%s-", prefix, at.Format("20060102"))
	}
	return fmt.Sprintf("%s-%s-", prefix, at.Format("06"))
}

// Generator hands out max+1 numbers per scope. Numbers never repeat within a scope
// but gaps are possible; the store's unique index is what rejects a concurrent duplicate.
type Generator struct {
	locker repositories.Locker
}

func NewGenerator(locker repositories.Locker) *Generator {
	return &Generator{locker: locker}
}

// Next computes the next number for the scope containing at.
func (g *Generator) Next(ctx context.Context, source repositories.NumberSource, prefix models.DocumentPrefix, at time.Time) (string, error) {
	scopePrefix := ScopePrefix(prefix, prefix.Scope(), at)
	highest, err := source.HighestNumber(ctx, scopePrefix)
	if err != nil {
		return "", err
	}
	seq := 0
	if highest != "" {
		if n, ok := utils.ParseSequenceSuffix(highest, scopePrefix); ok {
			seq = n
		}
	}
	return fmt.Sprintf("%s%04d", scopePrefix, seq+1), nil
}

// Reserve computes the next number and passes it to insert. A ConflictError from insert
// means another writer took the number; the number is recomputed and insert retried once.
func (g *Generator) Reserve(ctx context.Context, source repositories.NumberSource, prefix models.DocumentPrefix, at time.Time, insert func(number string) error) (string, error) {
	if g.locker != nil {
		release := g.locker.Lock(ctx, "numbering:"+ScopePrefix(prefix, prefix.Scope(), at))
		defer release()
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		number, err := g.Next(ctx, source, prefix, at)
		if err != nil {
			return "", err
		}
		lastErr = insert(number)
		if lastErr == nil {
			return number, nil
		}
		if !utils.IsConflict(lastErr) {
			return "", lastErr
		}
		telemetry.NumberingConflicts.WithLabelValues(string(prefix)).Inc()
	}
	return "", lastErr
}
