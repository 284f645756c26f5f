package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendpoints/internal/points"
	"spendpoints/internal/storage"
)

// LoginResult reports the daily bonus decision for one login.
type LoginResult struct {
	Outcome points.Outcome
	// Points is the user's count after the login.
	Points int
}

// LoginService awards the daily login bonus. Authentication happens
// upstream; callers report each successful login here.
type LoginService struct {
	store   Store
	applier *pointsApplier
	now     func() time.Time
}

func NewLoginService(store Store, publisher EventPublisher, caches Caches) *LoginService {
	return &LoginService{
		store:   store,
		applier: &pointsApplier{store: store, publisher: publisher, caches: caches},
		now:     time.Now,
	}
}

// maxLoginAttempts bounds retries when concurrent logins race on the same
// user.
const maxLoginAttempts = 3

// RecordLogin sets the user's last login to now and awards the bonus when
// the previous login was on another day. The bonus and the new last login
// are written together: when awarding fails, the next login can still
// earn the day's bonus.
func (s *LoginService) RecordLogin(ctx context.Context, userID int64) (LoginResult, error) {
	var err error
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		var res LoginResult
		res, err = s.recordLogin(ctx, userID)
		if !errors.Is(err, storage.ErrStaleLogin) {
			return res, err
		}
	}
	return LoginResult{}, err
}

func (s *LoginService) recordLogin(ctx context.Context, userID int64) (LoginResult, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("record login: %w", err)
	}

	now := s.now()
	outcome := points.Login(user.LastLogin, now)
	if !outcome.Scored() {
		if _, err := s.store.TouchLogin(ctx, userID, now); err != nil {
			return LoginResult{}, fmt.Errorf("record login: %w", err)
		}
		return LoginResult{Outcome: outcome, Points: user.Points}, nil
	}

	stamp := &storage.LoginStamp{Previous: user.LastLogin, At: now}
	balance, err := s.applier.apply(ctx, user, outcome, now, stamp)
	if err != nil {
		return LoginResult{}, fmt.Errorf("record login: %w", err)
	}
	return LoginResult{Outcome: outcome, Points: balance.UserPoints}, nil
}
