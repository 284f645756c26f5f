package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendpoints/internal/amqp"
	"spendpoints/internal/core"
	"spendpoints/internal/sheets/memory"
)

type staticStandings struct {
	mu     sync.Mutex
	houses []core.House
	err    error
}

func (s *staticStandings) HouseStandings(context.Context) ([]core.House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.houses, s.err
}

// replayConsumer delivers msgs once and then blocks until ctx is done.
type replayConsumer struct {
	msgs []*amqp.PointsChangedMessage
}

func (c *replayConsumer) ConsumePointsChanged(ctx context.Context, handler func(context.Context, *amqp.PointsChangedMessage) error) error {
	for _, m := range c.msgs {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func houseEvent(houseID int64) *amqp.PointsChangedMessage {
	return amqp.NewPointsChangedMessage(1, &houseID, 5, "within_target")
}

func TestHandlePointsChanged_Dedupes(t *testing.T) {
	w := NewLeaderboardWorker(&staticStandings{}, memory.New(), Config{Interval: time.Hour})
	ctx := context.Background()

	msg := houseEvent(1)
	require.NoError(t, w.HandlePointsChanged(ctx, msg))
	assert.Len(t, w.pending, 1)

	<-w.pending
	require.NoError(t, w.HandlePointsChanged(ctx, msg))
	assert.Empty(t, w.pending, "redelivered event must not trigger an export")
}

func TestHandlePointsChanged_IgnoresHouselessChanges(t *testing.T) {
	w := NewLeaderboardWorker(&staticStandings{}, memory.New(), Config{Interval: time.Hour})
	msg := amqp.NewPointsChangedMessage(1, nil, -3, "over_target")
	require.NoError(t, w.HandlePointsChanged(context.Background(), msg))
	assert.Empty(t, w.pending)
}

func TestHandlePointsChanged_CoalescesBursts(t *testing.T) {
	w := NewLeaderboardWorker(&staticStandings{}, memory.New(), Config{Interval: time.Hour})
	for i := 0; i < 10; i++ {
		require.NoError(t, w.HandlePointsChanged(context.Background(), houseEvent(1)))
	}
	assert.Len(t, w.pending, 1)
}

func TestMarkSeen_IsBounded(t *testing.T) {
	w := NewLeaderboardWorker(&staticStandings{}, memory.New(), Config{})
	first := uuid.NewString()
	assert.True(t, w.markSeen(first))
	for i := 0; i < maxSeenEvents; i++ {
		w.markSeen(uuid.NewString())
	}
	assert.Len(t, w.seen, maxSeenEvents)
	assert.True(t, w.markSeen(first), "oldest ids are forgotten")
}

func TestExport(t *testing.T) {
	houses := []core.House{{ID: 2, Name: "Slytherin", Points: 40}, {ID: 1, Name: "Gryffindor", Points: 10}}
	store := memory.New()
	w := NewLeaderboardWorker(&staticStandings{houses: houses}, store, Config{})
	at := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	require.NoError(t, w.Export(context.Background()))

	got, err := store.ReadStandings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, houses, got)
	writes, last := store.Writes()
	assert.Equal(t, 1, writes)
	assert.Equal(t, at, last)

	exports, lastErr := w.Stats()
	assert.Equal(t, 1, exports)
	assert.NoError(t, lastErr)
}

func TestExport_SourceFailure(t *testing.T) {
	store := memory.New()
	w := NewLeaderboardWorker(&staticStandings{err: errors.New("db locked")}, store, Config{})

	err := w.Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load standings")

	writes, _ := store.Writes()
	assert.Zero(t, writes)
	_, lastErr := w.Stats()
	assert.Error(t, lastErr)
}

func TestRun_ExportsOnStartupAndOnEvents(t *testing.T) {
	store := memory.New()
	w := NewLeaderboardWorker(&staticStandings{houses: []core.House{{ID: 1, Name: "Gryffindor"}}}, store, Config{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, &replayConsumer{msgs: []*amqp.PointsChangedMessage{houseEvent(1)}})
	}()

	require.Eventually(t, func() bool {
		writes, _ := store.Writes()
		return writes >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, w.IsRunning())

	assert.Error(t, w.Run(ctx, nil), "second Run must be rejected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.False(t, w.IsRunning())
}

func TestRun_TickerWithoutConsumer(t *testing.T) {
	store := memory.New()
	w := NewLeaderboardWorker(&staticStandings{}, store, Config{Interval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, nil) }()

	require.Eventually(t, func() bool {
		writes, _ := store.Writes()
		return writes >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_ConsumerErrorStopsWorker(t *testing.T) {
	w := NewLeaderboardWorker(&staticStandings{}, memory.New(), Config{Interval: time.Hour})
	err := w.Run(context.Background(), failingConsumer{})
	assert.ErrorContains(t, err, "channel closed")
}

type failingConsumer struct{}

func (failingConsumer) ConsumePointsChanged(context.Context, func(context.Context, *amqp.PointsChangedMessage) error) error {
	return errors.New("channel closed")
}
