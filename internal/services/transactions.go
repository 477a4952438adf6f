package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"detetive/internal/amqp"
	"detetive/internal/core"
	"detetive/internal/ports"
)

// ErrManagedPayment is returned when a bill payment transaction is edited
// directly.
var ErrManagedPayment = fmt.Errorf("payment transactions are managed by bill payment: %w", core.ErrConflict)

// TransactionService keeps account balances and card bills consistent with
// the transactions that feed them.
type TransactionService struct {
	*base
}

func (s *TransactionService) List(ctx context.Context, userID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	return s.stores().Transactions.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.stores().Transactions.GetTransaction(ctx, userID, id)
}

// Create records an income, expense or transfer. Payments are created by
// CardService.PayBill.
func (s *TransactionService) Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if t.Type == core.Payment {
		return core.Transaction{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidEnum}
	}
	return s.create(ctx, userID, t)
}

func (s *TransactionService) create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t.ID = ""
	t.UserID = userID
	t.Active = true
	t.Description = strings.TrimSpace(t.Description)
	if err := s.check(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.stores().Transactions.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	if err := s.applyBalances(ctx, userID, nil, created.BalanceEffects()); err != nil {
		if delErr := s.stores().Transactions.DeleteTransaction(ctx, userID, created.ID); delErr != nil {
			s.deps.Logger.ErrorContext(ctx, "Failed to roll back transaction", "transaction_id", created.ID, "error", delErr)
		}
		return core.Transaction{}, err
	}
	s.refreshBills(ctx, userID, created)
	s.invalidate(userID)
	s.publishExport(ctx, amqp.ActionCreated, userID, created.ID)
	return created, nil
}

// Update replaces the editable fields. The previous balance effects are
// reverted and the new ones applied; bills of both the old and the new
// billing cycle are recomputed.
func (s *TransactionService) Update(ctx context.Context, userID, id string, patch core.Transaction) (core.Transaction, error) {
	cur, err := s.activeTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if cur.Type == core.Payment {
		return core.Transaction{}, ErrManagedPayment
	}
	if patch.Type == core.Payment {
		return core.Transaction{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidEnum}
	}

	next := cur
	next.AccountID = patch.AccountID
	next.DestinationAccountID = patch.DestinationAccountID
	next.CardID = patch.CardID
	next.CategoryID = patch.CategoryID
	next.Type = patch.Type
	next.Amount = patch.Amount
	next.Description = strings.TrimSpace(patch.Description)
	next.Notes = patch.Notes
	next.Date = patch.Date
	if err := s.check(ctx, next); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.stores().Transactions.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := s.applyBalances(ctx, userID, cur.BalanceEffects(), updated.BalanceEffects()); err != nil {
		if _, rbErr := s.stores().Transactions.UpdateTransaction(ctx, cur); rbErr != nil {
			s.deps.Logger.ErrorContext(ctx, "Failed to roll back transaction update", "transaction_id", id, "error", rbErr)
		}
		return core.Transaction{}, err
	}
	s.refreshBills(ctx, userID, cur, updated)
	s.invalidate(userID)
	s.publishExport(ctx, amqp.ActionUpdated, userID, updated.ID)
	return updated, nil
}

// Delete soft-deletes the transaction and reverts its effects.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	cur, err := s.activeTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if cur.Type == core.Payment {
		return ErrManagedPayment
	}
	if err := s.stores().Transactions.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := s.applyBalances(ctx, userID, cur.BalanceEffects(), nil); err != nil {
		if _, rbErr := s.stores().Transactions.UpdateTransaction(ctx, cur); rbErr != nil {
			s.deps.Logger.ErrorContext(ctx, "Failed to restore deleted transaction", "transaction_id", id, "error", rbErr)
		}
		return err
	}
	s.refreshBills(ctx, userID, cur)
	s.invalidate(userID)
	s.publishExport(ctx, amqp.ActionDeleted, userID, id)
	return nil
}

// revert undoes a transaction created moments ago: its balance effects are
// reversed and the record is soft-deleted. Failures are logged.
func (s *TransactionService) revert(ctx context.Context, userID string, t core.Transaction) {
	if err := s.applyBalances(ctx, userID, t.BalanceEffects(), nil); err != nil {
		s.deps.Logger.ErrorContext(ctx, "Failed to revert transaction balances", "transaction_id", t.ID, "error", err)
		return
	}
	if err := s.stores().Transactions.DeleteTransaction(ctx, userID, t.ID); err != nil {
		s.deps.Logger.ErrorContext(ctx, "Failed to delete reverted transaction", "transaction_id", t.ID, "error", err)
	}
	s.invalidate(userID)
	s.publishExport(ctx, amqp.ActionDeleted, userID, t.ID)
}

func (s *TransactionService) activeTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := s.stores().Transactions.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !t.Active {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

// check validates t and the records it references.
func (s *TransactionService) check(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.AccountID != "" {
		if _, err := requireActiveAccount(ctx, s.base, t.UserID, t.AccountID, "account_id"); err != nil {
			return err
		}
	}
	if t.DestinationAccountID != "" {
		if _, err := requireActiveAccount(ctx, s.base, t.UserID, t.DestinationAccountID, "destination_account_id"); err != nil {
			return err
		}
	}
	if t.CardID != "" {
		c, err := s.stores().Cards.GetCard(ctx, t.UserID, t.CardID)
		if errors.Is(err, core.ErrNotFound) || (err == nil && !c.Active) {
			return &core.ValidationError{Field: "card_id", Err: core.ErrMissingReference}
		}
		if err != nil {
			return fmt.Errorf("get card: %w", err)
		}
	}
	if t.CategoryID != "" {
		if err := requireCategory(ctx, s.base, t.UserID, t.CategoryID, t.Type); err != nil {
			return err
		}
	}
	return nil
}

// applyBalances moves every affected account from the before effects to the
// after effects. On failure the adjustments already made are undone.
func (s *TransactionService) applyBalances(ctx context.Context, userID string, before, after map[string]core.Money) error {
	deltas := map[string]core.Money{}
	for id, m := range after {
		deltas[id] = deltas[id].Add(m)
	}
	for id, m := range before {
		deltas[id] = deltas[id].Sub(m)
	}

	applied := map[string]core.Money{}
	for id, d := range deltas {
		if d.IsZero() {
			continue
		}
		if _, err := s.stores().Accounts.AdjustBalance(ctx, userID, id, d); err != nil {
			for done, amount := range applied {
				if _, undoErr := s.stores().Accounts.AdjustBalance(ctx, userID, done, core.Cents(-amount.Cents)); undoErr != nil {
					s.deps.Logger.ErrorContext(ctx, "Failed to undo balance adjustment", "account_id", done, "error", undoErr)
				}
			}
			return fmt.Errorf("adjust balance of account %s: %w", id, err)
		}
		applied[id] = d
	}
	return nil
}

// refreshBills recomputes the bills touched by card expenses among txs.
// Failures are logged; the next change to the cycle recomputes it again.
func (s *TransactionService) refreshBills(ctx context.Context, userID string, txs ...core.Transaction) {
	seen := map[string]bool{}
	for _, t := range txs {
		if t.CardID == "" || t.Type != core.Expense {
			continue
		}
		card, err := s.stores().Cards.GetCard(ctx, userID, t.CardID)
		if err != nil {
			s.deps.Logger.ErrorContext(ctx, "Failed to load card for bill refresh", "card_id", t.CardID, "error", err)
			continue
		}
		cycle := card.CycleFor(t.Date)
		key := card.ID + "|" + cycle.Reference
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, err := recomputeBill(ctx, s.base, card, cycle); err != nil {
			s.deps.Logger.ErrorContext(ctx, "Failed to recompute bill",
				"card_id", card.ID, "reference", cycle.Reference, "error", err)
		}
	}
}

// recomputeBill sums the card's active expenses in the cycle into its bill.
// Payments already made stay on the bill; a paid bill whose amount grows
// past them is reopened for the difference.
func recomputeBill(ctx context.Context, b *base, card core.CreditCard, cycle core.BillCycle) (core.Bill, error) {
	txs, err := b.stores().Transactions.ListTransactions(ctx, card.UserID, ports.TransactionFilter{
		CardID: card.ID,
		Type:   core.Expense,
		From:   cycle.PeriodStart,
		To:     cycle.ClosingDate,
	})
	if err != nil {
		return core.Bill{}, fmt.Errorf("list card transactions: %w", err)
	}
	var total core.Money
	for _, t := range txs {
		total = total.Add(t.Amount)
	}

	bill := core.Bill{
		UserID:      card.UserID,
		CardID:      card.ID,
		Reference:   cycle.Reference,
		PeriodStart: cycle.PeriodStart,
		ClosingDate: cycle.ClosingDate,
		DueDate:     cycle.DueDate,
		Status:      core.BillOpen,
	}
	bills, err := b.stores().Cards.ListBills(ctx, card.UserID, card.ID)
	if err != nil {
		return core.Bill{}, fmt.Errorf("list bills: %w", err)
	}
	for _, existing := range bills {
		if existing.Reference != cycle.Reference {
			continue
		}
		bill.ID = existing.ID
		bill.PaidAmount = existing.PaidAmount
		bill.PaidAt = existing.PaidAt
		if existing.PaidAmount.Cents > 0 && total.Cents <= existing.PaidAmount.Cents {
			bill.Status = core.BillPaid
		}
	}
	bill.Amount = total
	return b.stores().Cards.UpsertBill(ctx, bill)
}
