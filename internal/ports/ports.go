// Package ports declares the outbound store interfaces, one per data domain.
// Every store is scoped by user: records of other users behave as missing.
package ports

import (
	"context"
	"time"

	"detetive/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values do not filter.
type TransactionFilter struct {
	AccountID       string
	CardID          string
	CategoryID      string
	Type            core.TransactionType
	From            core.Date
	To              core.Date
	IncludeInactive bool
}

// Matches applies the filter to a single transaction.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if !f.IncludeInactive && !t.Active {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID && t.DestinationAccountID != f.AccountID {
		return false
	}
	if f.CardID != "" && t.CardID != f.CardID {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUserIDs(ctx context.Context) ([]string, error)
	}

	AccountStore interface {
		ListAccounts(ctx context.Context, userID string, includeInactive bool) ([]core.Account, error)
		GetAccount(ctx context.Context, userID, id string) (core.Account, error)
		// CreateAccount and UpdateAccount clear the default flag of the user's
		// other accounts when the stored account is the default.
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		// UpdateAccount keeps the stored balance; only AdjustBalance moves it.
		UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
		// AdjustBalance adds delta to the account balance atomically.
		AdjustBalance(ctx context.Context, userID, id string, delta core.Money) (core.Account, error)
		DeleteAccount(ctx context.Context, userID, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, userID string, includeInactive bool) ([]core.Category, error)
		GetCategory(ctx context.Context, userID, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, userID, id string) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	CardStore interface {
		ListCards(ctx context.Context, userID string, includeInactive bool) ([]core.CreditCard, error)
		GetCard(ctx context.Context, userID, id string) (core.CreditCard, error)
		CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
		UpdateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
		DeleteCard(ctx context.Context, userID, id string) error

		// ListBills returns the user's bills; an empty cardID returns all of them.
		ListBills(ctx context.Context, userID, cardID string) ([]core.Bill, error)
		GetBill(ctx context.Context, userID, id string) (core.Bill, error)
		// UpsertBill inserts or replaces the bill for (CardID, Reference).
		UpsertBill(ctx context.Context, b core.Bill) (core.Bill, error)
		// MarkBillPaid adds payment to the paid amount of b and marks it paid,
		// provided the stored bill is unpaid and still has b's amount and paid
		// amount. Otherwise it fails with core.ErrConflict.
		MarkBillPaid(ctx context.Context, b core.Bill, payment core.Money, paidAt time.Time) (core.Bill, error)
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context, userID string, includeInactive bool) ([]core.Budget, error)
		GetBudget(ctx context.Context, userID, id string) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, userID, id string) error
	}

	NotificationStore interface {
		ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]core.Notification, error)
		// CreateNotification stores n unless the user already has one with
		// the same dedupe key; created reports which happened.
		CreateNotification(ctx context.Context, n core.Notification) (stored core.Notification, created bool, err error)
		MarkNotificationRead(ctx context.Context, userID, id string) error
		MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
		DeleteNotification(ctx context.Context, userID, id string) error
	}

	// Pinger is implemented by stores that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
