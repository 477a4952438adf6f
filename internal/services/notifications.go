package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"detetive/internal/amqp"
	"detetive/internal/budget"
	"detetive/internal/core"
	"detetive/internal/notify"
)

// NotificationService generates, stores and serves notifications.
type NotificationService struct {
	*base
}

// Snapshot loads everything the notification rules look at, in parallel.
func (s *NotificationService) Snapshot(ctx context.Context, userID string, now time.Time) (notify.Snapshot, error) {
	now = now.UTC()
	snap := notify.Snapshot{Now: now, UserID: userID}
	var (
		budgets []core.Budget
		txs     []core.Transaction
		cats    []core.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Accounts, err = s.stores().Accounts.ListAccounts(gctx, userID, false)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Cards, err = s.stores().Cards.ListCards(gctx, userID, false)
		if err != nil {
			return fmt.Errorf("list cards: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Bills, err = s.stores().Cards.ListBills(gctx, userID, "")
		if err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budgets, txs, cats, err = loadBudgetInputs(gctx, s.base, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return notify.Snapshot{}, err
	}

	snap.Budgets = budget.Summarize(budgets, txs, cats, now, budget.Options{WarnPercent: s.deps.Thresholds.BudgetWarnPercent})
	return snap, nil
}

// Preview generates the current notifications without storing them.
func (s *NotificationService) Preview(ctx context.Context, userID string, now time.Time) ([]core.Notification, error) {
	snap, err := s.Snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	out := notify.Generate(snap, s.deps.Thresholds)
	if out == nil {
		out = []core.Notification{}
	}
	return out, nil
}

// Refresh generates notifications, stores the ones whose dedupe key is new
// and pushes each new one to the event bus. It returns the new ones.
func (s *NotificationService) Refresh(ctx context.Context, userID string, now time.Time) ([]core.Notification, error) {
	generated, err := s.Preview(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	created := []core.Notification{}
	for _, n := range generated {
		stored, isNew, err := s.stores().Notifications.CreateNotification(ctx, n)
		if err != nil {
			return created, fmt.Errorf("store notification: %w", err)
		}
		if !isNew {
			continue
		}
		created = append(created, stored)
		s.push(ctx, stored)
	}

	if len(created) > 0 {
		s.deps.Logger.InfoContext(ctx, "Notifications refreshed", "user_id", userID, "new", len(created), "generated", len(generated))
	}
	return created, nil
}

// RefreshAll refreshes every user with at most workers users in flight.
// A failing user is logged and does not stop the others; the number of new
// notifications is returned.
func (s *NotificationService) RefreshAll(ctx context.Context, now time.Time, workers int) (int, error) {
	ids, err := s.stores().Users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	if workers <= 0 {
		workers = 4
	}

	counts := make([]int, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			created, err := s.Refresh(gctx, id, now)
			if err != nil {
				s.deps.Logger.ErrorContext(gctx, "Failed to refresh notifications", "user_id", id, "error", err)
				return nil
			}
			counts[i] = len(created)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return total, ctx.Err()
}

func (s *NotificationService) push(ctx context.Context, n core.Notification) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.PublishNotification(ctx, amqp.NewNotificationMessage(n)); err != nil {
		s.deps.Logger.ErrorContext(ctx, "Failed to push notification", "notification_id", n.ID, "error", err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]core.Notification, error) {
	return s.stores().Notifications.ListNotifications(ctx, userID, unreadOnly)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.stores().Notifications.MarkNotificationRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.stores().Notifications.MarkAllNotificationsRead(ctx, userID)
}

// Delete soft-deletes the notification. Its dedupe key stays reserved so the
// same alert is not raised again.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	return s.stores().Notifications.DeleteNotification(ctx, userID, id)
}
