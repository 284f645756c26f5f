package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spendpoints/internal/budget"
	"spendpoints/internal/cache"
	"spendpoints/internal/core"
)

// DefaultHistoryWindows is used when a history request names no count.
const DefaultHistoryWindows = 6

// ReportService answers read-only budget questions.
type ReportService struct {
	store  Store
	caches Caches
	now    func() time.Time
}

func NewReportService(store Store, caches Caches) *ReportService {
	return &ReportService{store: store, caches: caches, now: time.Now}
}

// Progress measures a category in period. An empty period uses the
// category's own limit period.
func (s *ReportService) Progress(ctx context.Context, userID, categoryID int64, period core.Period) (core.CategoryProgress, error) {
	if period != "" && !period.Valid() {
		return core.CategoryProgress{}, core.ErrInvalidPeriod
	}
	load := func(ctx context.Context) (core.CategoryProgress, error) {
		c, err := s.store.GetCategory(ctx, userID, categoryID)
		if err != nil {
			return core.CategoryProgress{}, fmt.Errorf("category progress: %w", err)
		}
		p := period
		if p == "" {
			p = c.Limit.Period
		}
		return budget.CategoryProgress(c, p, s.now()), nil
	}

	if s.caches.Progress == nil || period == "" {
		return load(ctx)
	}
	return cache.GetOrLoad(ctx, s.caches.Progress, progressKey(userID, categoryID, period), load)
}

// History returns the spend of the last count windows of period, oldest
// first. count <= 0 selects DefaultHistoryWindows.
func (s *ReportService) History(ctx context.Context, userID, categoryID int64, period core.Period, count int) ([]core.HistoryPoint, error) {
	if count <= 0 {
		count = DefaultHistoryWindows
	}
	c, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("category history: %w", err)
	}
	if period == "" {
		period = c.Limit.Period
	}
	if !period.Valid() {
		return nil, core.ErrInvalidPeriod
	}
	return budget.History(c, period, count, s.now()), nil
}

// Overview gathers the user, their house and every category's progress in
// its own limit period.
func (s *ReportService) Overview(ctx context.Context, userID int64) (core.Overview, error) {
	var (
		user       core.User
		house      *core.House
		categories []core.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, userID)
		if err != nil {
			return err
		}
		user = u
		if !u.HasHouse() {
			return nil
		}
		h, err := s.store.GetHouse(gctx, *u.HouseID)
		if err != nil {
			return err
		}
		house = &h
		return nil
	})
	g.Go(func() error {
		cs, err := s.store.ListCategories(gctx, userID)
		if err != nil {
			return err
		}
		categories = cs
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Overview{}, fmt.Errorf("overview for user %d: %w", userID, err)
	}

	now := s.now()
	overview := core.Overview{
		User:       user,
		House:      house,
		Categories: make([]core.CategoryProgress, 0, len(categories)),
	}
	for _, c := range categories {
		overview.Categories = append(overview.Categories, budget.CategoryProgress(c, c.Limit.Period, now))
	}
	return overview, nil
}

// Standings returns houses ordered by points, served from cache when
// possible.
func (s *ReportService) Standings(ctx context.Context) ([]core.House, error) {
	if s.caches.Standings == nil {
		return s.store.HouseStandings(ctx)
	}
	return cache.GetOrLoad(ctx, s.caches.Standings, standingsKey, s.store.HouseStandings)
}
