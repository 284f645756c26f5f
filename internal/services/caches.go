package services

import (
	"context"
	"fmt"

	"spendpoints/internal/cache"
	"spendpoints/internal/core"
)

const standingsKey = "standings"

// Caches holds the read caches shared by the services. The zero value
// disables caching.
type Caches struct {
	Standings cache.Cache[[]core.House]
	Progress  cache.Cache[core.CategoryProgress]
}

// NewCaches builds both caches on the backend described by opts.
func NewCaches(opts cache.Options) (Caches, error) {
	standingsOpts := opts
	standingsOpts.Namespace = "spendpoints:standings"
	standings, err := cache.New[[]core.House](standingsOpts)
	if err != nil {
		return Caches{}, fmt.Errorf("standings cache: %w", err)
	}

	progressOpts := opts
	progressOpts.Namespace = "spendpoints:progress"
	progress, err := cache.New[core.CategoryProgress](progressOpts)
	if err != nil {
		return Caches{}, fmt.Errorf("progress cache: %w", err)
	}
	return Caches{Standings: standings, Progress: progress}, nil
}

// Close releases caches that own background resources, such as ristretto's
// processing goroutines. The zero value is a no-op.
func (c Caches) Close() {
	for _, member := range []any{c.Standings, c.Progress} {
		if closer, ok := member.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func progressPrefix(userID int64) string {
	return fmt.Sprintf("%d:", userID)
}

func progressKey(userID, categoryID int64, period core.Period) string {
	return fmt.Sprintf("%d:%d:%s", userID, categoryID, period)
}

func (c Caches) invalidateUser(ctx context.Context, userID int64) {
	if c.Progress != nil {
		c.Progress.DeletePrefix(ctx, progressPrefix(userID))
	}
}

func (c Caches) invalidateStandings(ctx context.Context) {
	if c.Standings != nil {
		c.Standings.Delete(ctx, standingsKey)
	}
}
