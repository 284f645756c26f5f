package sheets

import (
	"context"
	"time"

	"spendpoints/internal/core"
)

// Ports for outbound adapters.
type (
	// LeaderboardWriter publishes house standings, highest points first.
	LeaderboardWriter interface {
		WriteStandings(ctx context.Context, standings []core.House, at time.Time) error
	}

	// LeaderboardReader reads back the last published standings.
	LeaderboardReader interface {
		ReadStandings(ctx context.Context) ([]core.House, error)
	}
)
