package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"detetive/internal/core"
)

type CategoryService struct {
	*base
}

func (s *CategoryService) List(ctx context.Context, userID string, includeInactive bool) ([]core.Category, error) {
	return s.stores().Categories.ListCategories(ctx, userID, includeInactive)
}

func (s *CategoryService) Get(ctx context.Context, userID, id string) (core.Category, error) {
	return s.stores().Categories.GetCategory(ctx, userID, id)
}

func (s *CategoryService) Create(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	c.ID = ""
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	c.Active = true
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.stores().Categories.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(userID)
	return created, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, id string, patch core.Category) (core.Category, error) {
	cur, err := s.stores().Categories.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, err
	}
	if !cur.Active {
		return core.Category{}, core.ErrNotFound
	}
	cur.Name = strings.TrimSpace(patch.Name)
	cur.Kind = patch.Kind
	cur.Color = patch.Color
	cur.Icon = patch.Icon
	if err := cur.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.stores().Categories.UpdateCategory(ctx, cur)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.invalidate(userID)
	return updated, nil
}

// Delete soft-deletes the category. Transactions keep pointing at it and
// summaries keep showing its name.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	if err := s.stores().Categories.DeleteCategory(ctx, userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// requireCategory checks the category exists, is active and, for income and
// expense transactions, has the matching kind.
func requireCategory(ctx context.Context, b *base, userID, id string, txType core.TransactionType) error {
	c, err := b.stores().Categories.GetCategory(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) || (err == nil && !c.Active) {
		return &core.ValidationError{Field: "category_id", Err: core.ErrMissingReference}
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	switch {
	case txType == core.Income && c.Kind != core.IncomeCategory,
		txType == core.Expense && c.Kind != core.ExpenseCategory:
		return &core.ValidationError{Field: "category_id", Err: core.ErrInvalidEnum}
	}
	return nil
}
