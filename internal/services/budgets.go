package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"detetive/internal/budget"
	"detetive/internal/core"
	"detetive/internal/ports"
)

type BudgetService struct {
	*base
}

func (s *BudgetService) List(ctx context.Context, userID string, includeInactive bool) ([]core.Budget, error) {
	return s.stores().Budgets.ListBudgets(ctx, userID, includeInactive)
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (core.Budget, error) {
	return s.stores().Budgets.GetBudget(ctx, userID, id)
}

// Create stores a budget. A missing start date defaults to the first day of
// the current month.
func (s *BudgetService) Create(ctx context.Context, userID string, b core.Budget) (core.Budget, error) {
	b.ID = ""
	b.UserID = userID
	b.Active = true
	if b.StartDate.IsZero() {
		b.StartDate = core.DateOf(s.now()).MonthStart()
	}
	if err := s.check(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	created, err := s.stores().Budgets.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.invalidate(userID)
	return created, nil
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, patch core.Budget) (core.Budget, error) {
	cur, err := s.stores().Budgets.GetBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if !cur.Active {
		return core.Budget{}, core.ErrNotFound
	}
	cur.Name = patch.Name
	cur.Amount = patch.Amount
	cur.Period = patch.Period
	if !patch.StartDate.IsZero() {
		cur.StartDate = patch.StartDate
	}
	cur.EndDate = patch.EndDate
	cur.CategoryIDs = patch.CategoryIDs
	if err := s.check(ctx, &cur); err != nil {
		return core.Budget{}, err
	}
	updated, err := s.stores().Budgets.UpdateBudget(ctx, cur)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.invalidate(userID)
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	if err := s.stores().Budgets.DeleteBudget(ctx, userID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// check normalizes and validates b. Category ids are deduplicated and must
// name active expense categories of the user.
func (s *BudgetService) check(ctx context.Context, b *core.Budget) error {
	b.Name = strings.TrimSpace(b.Name)
	if err := b.Validate(); err != nil {
		return err
	}
	seen := map[string]bool{}
	ids := make([]string, 0, len(b.CategoryIDs))
	for _, id := range b.CategoryIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		c, err := s.stores().Categories.GetCategory(ctx, b.UserID, id)
		if errors.Is(err, core.ErrNotFound) || (err == nil && !c.Active) {
			return &core.ValidationError{Field: "category_ids", Err: core.ErrMissingReference}
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if c.Kind != core.ExpenseCategory {
			return &core.ValidationError{Field: "category_ids", Err: core.ErrInvalidEnum}
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b.CategoryIDs = ids
	return nil
}

// Summaries returns the summary of every active budget at the given time.
// Results are cached per user and day until the user's next mutation.
func (s *BudgetService) Summaries(ctx context.Context, userID string, at time.Time) ([]budget.Summary, error) {
	key := cacheKey(userID, "budgets", core.DateOf(at).String())
	return cached(s.base, key, func() ([]budget.Summary, error) {
		budgets, txs, cats, err := loadBudgetInputs(ctx, s.base, userID)
		if err != nil {
			return nil, err
		}
		out := budget.Summarize(budgets, txs, cats, at, s.deps.Budget)
		if out == nil {
			out = []budget.Summary{}
		}
		return out, nil
	})
}

// Summary returns the summary of one budget.
func (s *BudgetService) Summary(ctx context.Context, userID, id string, at time.Time) (budget.Summary, error) {
	b, err := s.stores().Budgets.GetBudget(ctx, userID, id)
	if err != nil {
		return budget.Summary{}, err
	}
	if !b.Active {
		return budget.Summary{}, core.ErrNotFound
	}
	key := cacheKey(userID, "budget", id, core.DateOf(at).String())
	return cached(s.base, key, func() (budget.Summary, error) {
		txs, err := s.stores().Transactions.ListTransactions(ctx, userID, ports.TransactionFilter{Type: core.Expense})
		if err != nil {
			return budget.Summary{}, fmt.Errorf("list transactions: %w", err)
		}
		cats, err := s.stores().Categories.ListCategories(ctx, userID, true)
		if err != nil {
			return budget.Summary{}, fmt.Errorf("list categories: %w", err)
		}
		return budget.SummarizeOne(b, txs, cats, at, s.deps.Budget), nil
	})
}

// loadBudgetInputs loads active budgets, active expenses and every category,
// deleted ones included so their names still resolve.
func loadBudgetInputs(ctx context.Context, b *base, userID string) ([]core.Budget, []core.Transaction, []core.Category, error) {
	budgets, err := b.stores().Budgets.ListBudgets(ctx, userID, false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list budgets: %w", err)
	}
	txs, err := b.stores().Transactions.ListTransactions(ctx, userID, ports.TransactionFilter{Type: core.Expense})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := b.stores().Categories.ListCategories(ctx, userID, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list categories: %w", err)
	}
	return budgets, txs, cats, nil
}
