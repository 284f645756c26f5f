package services

import (
	"context"
	"fmt"
	"strings"

	"spendpoints/internal/core"
)

type CategoryService struct {
	store  Store
	caches Caches
}

func NewCategoryService(store Store, caches Caches) *CategoryService {
	return &CategoryService{store: store, caches: caches}
}

func (s *CategoryService) Create(ctx context.Context, userID int64, name string, limit core.SpendingLimit) (core.Category, error) {
	c := core.Category{UserID: userID, Name: strings.TrimSpace(name), Limit: limit}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return s.store.ListCategories(ctx, userID)
}

// UpdateLimit replaces the category's spending limit. Past scoring is not
// revisited.
func (s *CategoryService) UpdateLimit(ctx context.Context, userID, categoryID int64, limit core.SpendingLimit) error {
	if err := limit.Validate(); err != nil {
		return fmt.Errorf("spending limit: %w", err)
	}
	if err := s.store.UpdateCategoryLimit(ctx, userID, categoryID, limit); err != nil {
		return fmt.Errorf("update limit: %w", err)
	}
	s.caches.invalidateUser(ctx, userID)
	return nil
}
