package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendpoints/internal/core"
	applog "spendpoints/internal/log"
	"spendpoints/internal/points"
	"spendpoints/internal/storage"
)

// ExpenditureResult is what recording an expenditure produced.
type ExpenditureResult struct {
	Expenditure core.Expenditure
	Outcome     points.Outcome
	// Balance is zero when the outcome changed no points.
	Balance storage.PointsBalance
}

// ExpenditureService records expenditures and scores them against the
// category's spending limit.
type ExpenditureService struct {
	store   Store
	applier *pointsApplier
	caches  Caches
	now     func() time.Time
}

func NewExpenditureService(store Store, publisher EventPublisher, caches Caches) *ExpenditureService {
	return &ExpenditureService{
		store:   store,
		applier: &pointsApplier{store: store, publisher: publisher, caches: caches},
		caches:  caches,
		now:     time.Now,
	}
}

// Create stores e in the user's category, evaluates it and applies the
// resulting points and notifications.
func (s *ExpenditureService) Create(ctx context.Context, userID, categoryID int64, e core.Expenditure) (ExpenditureResult, error) {
	if err := e.Validate(); err != nil {
		return ExpenditureResult{}, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return ExpenditureResult{}, fmt.Errorf("create expenditure: %w", err)
	}
	// Loaded before the insert: scoring compares against the prior total.
	category, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return ExpenditureResult{}, fmt.Errorf("create expenditure: %w", err)
	}

	e.CategoryID = categoryID
	saved, err := s.store.AddExpenditure(ctx, e)
	if err != nil {
		return ExpenditureResult{}, fmt.Errorf("create expenditure: %w", err)
	}
	s.caches.invalidateUser(ctx, userID)

	now := s.now()
	outcome := points.Evaluate(category, saved, now)
	result := ExpenditureResult{Expenditure: saved, Outcome: outcome}

	fields := applog.NewFields().
		WithOperation(applog.OpEvaluate).
		WithPoints(userID, outcome.Delta, outcome.Reason)
	fields[applog.FieldCategoryID] = categoryID
	fields[applog.FieldExpenditureID] = saved.ID
	fields[applog.FieldAmount] = saved.Amount.String()
	fields[applog.FieldBranch] = outcome.Branch.String()
	slog.InfoContext(ctx, "Expenditure evaluated", fields.ToSlice()...)

	if !outcome.Scored() && len(outcome.Notices) == 0 {
		return result, nil
	}

	balance, err := s.applier.apply(ctx, user, outcome, now, nil)
	if err != nil {
		return ExpenditureResult{}, fmt.Errorf("apply points for expenditure %d: %w", saved.ID, err)
	}
	result.Balance = balance
	return result, nil
}

// Delete removes an expenditure. Points already awarded or deducted for it
// stay as they are.
func (s *ExpenditureService) Delete(ctx context.Context, userID, expenditureID int64) error {
	if err := s.store.DeleteExpenditure(ctx, userID, expenditureID); err != nil {
		return fmt.Errorf("delete expenditure: %w", err)
	}
	s.caches.invalidateUser(ctx, userID)
	slog.InfoContext(ctx, "Expenditure deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldUserID, userID,
		applog.FieldExpenditureID, expenditureID)
	return nil
}
