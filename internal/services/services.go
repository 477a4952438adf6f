// Package services provides business logic and orchestration services.
//
// Each domain service works on the per-domain stores resolved by the backend
// package. Stores of different domains may live on different backends, so
// multi-store changes are applied step by step with compensation on failure
// rather than in one database transaction.
package services

import (
	"context"
	"log/slog"
	"time"

	"detetive/internal/amqp"
	"detetive/internal/backend"
	"detetive/internal/budget"
	"detetive/internal/cache"
	"detetive/internal/notify"
)

// Publisher is the outbound event bus. Publishing is best-effort: failures
// are logged by the caller and never fail the request.
type Publisher interface {
	PublishTransactionExport(ctx context.Context, action amqp.Action, userID, transactionID string) error
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

var _ Publisher = (*amqp.Client)(nil)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Stores    *backend.Stores
	Publisher Publisher
	// Cache holds derived per-user views; nil disables caching.
	Cache      *cache.LRUCache[any]
	Tokens     TokenIssuer
	Thresholds notify.Thresholds
	Budget     budget.Options
	Now        func() time.Time
	Logger     *slog.Logger
}

// Services bundles the domain services.
type Services struct {
	Auth          *AuthService
	Accounts      *AccountService
	Categories    *CategoryService
	Transactions  *TransactionService
	Cards         *CardService
	Budgets       *BudgetService
	Notifications *NotificationService
	Dashboard     *DashboardService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	b := &base{deps: d}

	tx := &TransactionService{base: b}
	return &Services{
		Auth:          &AuthService{base: b},
		Accounts:      &AccountService{base: b},
		Categories:    &CategoryService{base: b},
		Transactions:  tx,
		Cards:         &CardService{base: b, transactions: tx},
		Budgets:       &BudgetService{base: b},
		Notifications: &NotificationService{base: b},
		Dashboard:     &DashboardService{base: b},
	}
}

// base carries the shared dependencies and helpers.
type base struct {
	deps Deps
}

func (b *base) stores() *backend.Stores { return b.deps.Stores }

func (b *base) now() time.Time { return b.deps.Now().UTC() }

// invalidate drops every cached view of the user. Called after each mutation.
func (b *base) invalidate(userID string) {
	if b.deps.Cache == nil {
		return
	}
	if n := b.deps.Cache.DeletePrefix(cachePrefix(userID)); n > 0 {
		b.deps.Logger.Debug("Invalidated cached views", "user_id", userID, "entries", n)
	}
}

func cachePrefix(userID string) string { return userID + ":" }

func cacheKey(userID string, parts ...string) string {
	key := cachePrefix(userID)
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// cached returns the cached value for key or computes and stores it.
func cached[T any](b *base, key string, compute func() (T, error)) (T, error) {
	if b.deps.Cache != nil {
		if v, ok := b.deps.Cache.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	if b.deps.Cache != nil {
		b.deps.Cache.Set(key, v)
	}
	return v, nil
}

func (b *base) publishExport(ctx context.Context, action amqp.Action, userID, transactionID string) {
	if b.deps.Publisher == nil {
		return
	}
	if err := b.deps.Publisher.PublishTransactionExport(ctx, action, userID, transactionID); err != nil {
		b.deps.Logger.ErrorContext(ctx, "Failed to publish export message",
			"transaction_id", transactionID, "action", string(action), "error", err)
	}
}
