package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendpoints/internal/amqp"
	"spendpoints/internal/core"
	applog "spendpoints/internal/log"
	"spendpoints/internal/points"
	"spendpoints/internal/storage"
)

// pointsApplier persists a scored outcome for one user: notifications, the
// user's floored count and the house's unfloored total, then announces the
// change.
type pointsApplier struct {
	store     Store
	publisher EventPublisher
	caches    Caches
}

// apply persists outcome. A non-nil login is stamped in the same
// transaction, so a failed write leaves the last login untouched.
func (a *pointsApplier) apply(ctx context.Context, user core.User, outcome points.Outcome, at time.Time, login *storage.LoginStamp) (storage.PointsBalance, error) {
	notifications := make([]core.Notification, 0, len(outcome.Notices)+1)
	for _, n := range outcome.Notices {
		notifications = append(notifications, n.Address(user.ID, at))
	}

	change := storage.PointsChange{UserID: user.ID, Delta: outcome.Delta}
	if user.HasHouse() && outcome.Delta != 0 {
		house, err := a.store.GetHouse(ctx, *user.HouseID)
		if err != nil {
			return storage.PointsBalance{}, fmt.Errorf("load house: %w", err)
		}
		change.HouseID = user.HouseID
		if n, ok := points.HouseNotice(house, outcome.Delta); ok {
			notifications = append(notifications, n.Address(user.ID, at))
		}
	}
	change.Notifications = notifications
	change.Login = login

	balance, err := a.store.ApplyPoints(ctx, change)
	if err != nil {
		return storage.PointsBalance{}, err
	}
	if change.HouseID != nil {
		a.caches.invalidateStandings(ctx)
	}

	if outcome.Delta != 0 {
		a.publish(ctx, user, outcome)
	}
	return balance, nil
}

// publish announces a change. Failures are logged only: the points are
// already committed.
func (a *pointsApplier) publish(ctx context.Context, user core.User, outcome points.Outcome) {
	if a.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping points event")
		return
	}
	msg := amqp.NewPointsChangedMessage(user.ID, user.HouseID, outcome.Delta, outcome.Reason)
	if err := a.publisher.PublishPointsChanged(ctx, msg); err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpPublish).
			WithPoints(user.ID, outcome.Delta, outcome.Reason).
			WithError(err)
		fields[applog.FieldEventID] = msg.EventID
		slog.ErrorContext(ctx, "Failed to publish points event", fields.ToSlice()...)
	}
}
