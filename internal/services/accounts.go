package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"detetive/internal/core"
)

// AccountService manages accounts and the single default account per user.
type AccountService struct {
	*base
}

func (s *AccountService) List(ctx context.Context, userID string, includeInactive bool) ([]core.Account, error) {
	return s.stores().Accounts.ListAccounts(ctx, userID, includeInactive)
}

func (s *AccountService) Get(ctx context.Context, userID, id string) (core.Account, error) {
	return s.stores().Accounts.GetAccount(ctx, userID, id)
}

// Create stores a new account. The initial balance must not be negative and
// the user's first active account becomes the default.
func (s *AccountService) Create(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	a.ID = ""
	a.UserID = userID
	a.Name = strings.TrimSpace(a.Name)
	a.Active = true
	if a.Currency == "" {
		a.Currency = core.DefaultCurrency
	}
	if err := a.Balance.ValidateNonNegative(); err != nil {
		return core.Account{}, &core.ValidationError{Field: "balance", Err: err}
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	existing, err := s.stores().Accounts.ListAccounts(ctx, userID, false)
	if err != nil {
		return core.Account{}, fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) == 0 {
		a.IsDefault = true
	}

	created, err := s.stores().Accounts.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.invalidate(userID)
	return created, nil
}

// Update changes the editable fields. The balance is maintained from
// transactions and cannot be set here. Clearing the default flag of the
// default account is ignored; pick another default instead.
func (s *AccountService) Update(ctx context.Context, userID, id string, patch core.Account) (core.Account, error) {
	cur, err := s.activeAccount(ctx, userID, id)
	if err != nil {
		return core.Account{}, err
	}

	cur.Name = strings.TrimSpace(patch.Name)
	cur.Type = patch.Type
	cur.MinimumBalance = patch.MinimumBalance
	if patch.Currency != "" {
		cur.Currency = patch.Currency
	}
	cur.IsDefault = cur.IsDefault || patch.IsDefault
	if err := cur.Validate(); err != nil {
		return core.Account{}, err
	}

	updated, err := s.stores().Accounts.UpdateAccount(ctx, cur)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	s.invalidate(userID)
	return updated, nil
}

// SetDefault makes the account the user's default, clearing the previous one.
func (s *AccountService) SetDefault(ctx context.Context, userID, id string) (core.Account, error) {
	cur, err := s.activeAccount(ctx, userID, id)
	if err != nil {
		return core.Account{}, err
	}
	if cur.IsDefault {
		return cur, nil
	}
	cur.IsDefault = true
	updated, err := s.stores().Accounts.UpdateAccount(ctx, cur)
	if err != nil {
		return core.Account{}, fmt.Errorf("set default account: %w", err)
	}
	s.invalidate(userID)
	return updated, nil
}

// Delete soft-deletes the account. When it was the default, the oldest
// remaining active account is promoted.
func (s *AccountService) Delete(ctx context.Context, userID, id string) error {
	cur, err := s.activeAccount(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.stores().Accounts.DeleteAccount(ctx, userID, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.invalidate(userID)

	if !cur.IsDefault {
		return nil
	}
	remaining, err := s.stores().Accounts.ListAccounts(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(remaining) == 0 {
		return nil
	}
	next := remaining[0]
	next.IsDefault = true
	if _, err := s.stores().Accounts.UpdateAccount(ctx, next); err != nil {
		return fmt.Errorf("promote default account: %w", err)
	}
	s.deps.Logger.InfoContext(ctx, "Default account promoted", "user_id", userID, "account_id", next.ID)
	return nil
}

// Default returns the user's default account.
func (s *AccountService) Default(ctx context.Context, userID string) (core.Account, error) {
	accounts, err := s.stores().Accounts.ListAccounts(ctx, userID, false)
	if err != nil {
		return core.Account{}, fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.IsDefault {
			return a, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (s *AccountService) activeAccount(ctx context.Context, userID, id string) (core.Account, error) {
	a, err := s.stores().Accounts.GetAccount(ctx, userID, id)
	if err != nil {
		return core.Account{}, err
	}
	if !a.Active {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

// requireActiveAccount reports a missing or deleted account as a validation
// error on field.
func requireActiveAccount(ctx context.Context, b *base, userID, id, field string) (core.Account, error) {
	a, err := b.stores().Accounts.GetAccount(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) || (err == nil && !a.Active) {
		return core.Account{}, &core.ValidationError{Field: field, Err: core.ErrMissingReference}
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}
