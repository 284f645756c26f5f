package services

import (
	"context"
	"fmt"
	"strings"

	"spendpoints/internal/core"
)

// AccountService manages users, houses and notification inboxes.
type AccountService struct {
	store  Store
	caches Caches
}

func NewAccountService(store Store, caches Caches) *AccountService {
	return &AccountService{store: store, caches: caches}
}

func (s *AccountService) CreateHouse(ctx context.Context, name string) (core.House, error) {
	h := core.House{Name: strings.TrimSpace(name)}
	if err := h.Validate(); err != nil {
		return core.House{}, err
	}
	created, err := s.store.CreateHouse(ctx, h.Name)
	if err != nil {
		return core.House{}, err
	}
	s.caches.invalidateStandings(ctx)
	return created, nil
}

// CreateUser registers a user, optionally as a member of houseID.
func (s *AccountService) CreateUser(ctx context.Context, username string, houseID *int64) (core.User, error) {
	u := core.User{Username: strings.TrimSpace(username), HouseID: houseID}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	created, err := s.store.CreateUser(ctx, u.Username, houseID)
	if err != nil {
		return core.User{}, err
	}
	if created.HasHouse() {
		s.caches.invalidateStandings(ctx)
	}
	return created, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *AccountService) Notifications(ctx context.Context, userID int64, unseenOnly bool) ([]core.Notification, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	return s.store.ListNotifications(ctx, userID, unseenOnly)
}

func (s *AccountService) MarkNotificationsSeen(ctx context.Context, userID int64) (int64, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("mark notifications seen: %w", err)
	}
	return s.store.MarkNotificationsSeen(ctx, userID)
}
