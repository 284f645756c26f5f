package services

import (
	"context"
	"time"

	"spendpoints/internal/amqp"
	"spendpoints/internal/core"
	"spendpoints/internal/storage"
)

// Store is the persistence the services depend on. *storage.SQLiteRepository
// implements it.
type Store interface {
	CreateHouse(ctx context.Context, name string) (core.House, error)
	GetHouse(ctx context.Context, id int64) (core.House, error)
	HouseStandings(ctx context.Context) ([]core.House, error)

	CreateUser(ctx context.Context, username string, houseID *int64) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	TouchLogin(ctx context.Context, userID int64, at time.Time) (time.Time, error)

	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	UpdateCategoryLimit(ctx context.Context, userID, categoryID int64, limit core.SpendingLimit) error

	AddExpenditure(ctx context.Context, e core.Expenditure) (core.Expenditure, error)
	DeleteExpenditure(ctx context.Context, userID, expenditureID int64) error

	ApplyPoints(ctx context.Context, change storage.PointsChange) (storage.PointsBalance, error)

	ListNotifications(ctx context.Context, userID int64, unseenOnly bool) ([]core.Notification, error)
	MarkNotificationsSeen(ctx context.Context, userID int64) (int64, error)
}

// EventPublisher announces applied point changes. *amqp.Client implements
// it; a nil EventPublisher disables publishing.
type EventPublisher interface {
	PublishPointsChanged(ctx context.Context, msg *amqp.PointsChangedMessage) error
}

var _ Store = (*storage.SQLiteRepository)(nil)
