// Package worker keeps the published leaderboard in step with house points.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendpoints/internal/amqp"
	"spendpoints/internal/core"
	applog "spendpoints/internal/log"
	"spendpoints/internal/sheets"
)

// maxSeenEvents bounds the redelivery filter.
const maxSeenEvents = 4096

// StandingsSource lists houses ordered by points.
type StandingsSource interface {
	HouseStandings(ctx context.Context) ([]core.House, error)
}

// Consumer delivers points.changed events until ctx is done.
type Consumer interface {
	ConsumePointsChanged(ctx context.Context, handler func(context.Context, *amqp.PointsChangedMessage) error) error
}

var _ Consumer = (*amqp.Client)(nil)

// Config holds leaderboard worker configuration
type Config struct {
	// Interval between unconditional exports (default: 5m)
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: 5 * time.Minute}
}

// LeaderboardWorker exports house standings when house points change and
// on a fixed interval. Events arriving while an export is pending collapse
// into that export.
type LeaderboardWorker struct {
	source StandingsSource
	writer sheets.LeaderboardWriter
	config Config
	now    func() time.Time

	pending chan struct{}

	mu      sync.Mutex
	running bool
	seen    map[string]struct{}
	order   []string
	exports int
	lastErr error
}

func NewLeaderboardWorker(source StandingsSource, writer sheets.LeaderboardWriter, config Config) *LeaderboardWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &LeaderboardWorker{
		source:  source,
		writer:  writer,
		config:  config,
		now:     time.Now,
		pending: make(chan struct{}, 1),
		seen:    make(map[string]struct{}),
	}
}

// HandlePointsChanged processes a single points.changed message. Duplicate
// deliveries and changes that touch no house are ignored.
func (w *LeaderboardWorker) HandlePointsChanged(ctx context.Context, msg *amqp.PointsChangedMessage) error {
	if !w.markSeen(msg.EventID) {
		slog.DebugContext(ctx, "Skipping duplicate points event", applog.FieldEventID, msg.EventID)
		return nil
	}
	if msg.HouseID == nil {
		return nil
	}

	fields := applog.NewFields().WithPoints(msg.UserID, msg.Delta, msg.Reason)
	fields[applog.FieldEventID] = msg.EventID
	fields[applog.FieldHouseID] = *msg.HouseID
	slog.InfoContext(ctx, "House points changed", fields.ToSlice()...)

	select {
	case w.pending <- struct{}{}:
	default:
		// an export is already pending
	}
	return nil
}

// markSeen records id and reports whether it was new.
func (w *LeaderboardWorker) markSeen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return false
	}
	w.seen[id] = struct{}{}
	w.order = append(w.order, id)
	if len(w.order) > maxSeenEvents {
		delete(w.seen, w.order[0])
		w.order = w.order[1:]
	}
	return true
}

// Export writes the current standings once.
func (w *LeaderboardWorker) Export(ctx context.Context) error {
	standings, err := w.source.HouseStandings(ctx)
	if err != nil {
		return w.recordExport(fmt.Errorf("load standings: %w", err))
	}
	if err := w.writer.WriteStandings(ctx, standings, w.now()); err != nil {
		return w.recordExport(fmt.Errorf("write standings: %w", err))
	}
	slog.InfoContext(ctx, "Leaderboard exported",
		applog.FieldOperation, applog.OpExport,
		"houses", len(standings))
	return w.recordExport(nil)
}

func (w *LeaderboardWorker) recordExport(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	if err == nil {
		w.exports++
	}
	return err
}

// Stats reports successful exports and the error of the last attempt.
func (w *LeaderboardWorker) Stats() (exports int, lastErr error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exports, w.lastErr
}

// Run exports once, then consumes events from consumer (when non-nil) and
// exports on demand and on every interval until ctx is done.
func (w *LeaderboardWorker) Run(ctx context.Context, consumer Consumer) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("leaderboard worker is already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumePointsChanged(gctx, w.HandlePointsChanged)
		})
	}
	g.Go(func() error {
		w.exportLoop(gctx)
		return nil
	})

	slog.InfoContext(ctx, "Leaderboard worker started",
		"interval", w.config.Interval,
		"consuming", consumer != nil)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *LeaderboardWorker) exportLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.exportLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pending:
			w.exportLogged(ctx)
		case <-ticker.C:
			w.exportLogged(ctx)
		}
	}
}

// exportLogged keeps the loop alive across failures.
func (w *LeaderboardWorker) exportLogged(ctx context.Context) {
	if err := w.Export(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Leaderboard export failed",
			applog.NewFields().WithOperation(applog.OpExport).WithError(err).ToSlice()...)
	}
}

// IsRunning returns whether Run is in progress
func (w *LeaderboardWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
