package memory

import (
	"context"
	"sort"
	"time"

	"detetive/internal/core"
	"detetive/internal/ports"
)

// Transactions

func (s *Store) ListTransactions(_ context.Context, userID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

// sortTransactions orders newest first, matching the SQL store.
func sortTransactions(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date.Time) {
			return ts[i].Date.After(ts[j].Date)
		}
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.transactions[t.ID]
	if !ok || cur.UserID != t.UserID {
		return core.Transaction{}, core.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	s.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID || !t.Active {
		return core.ErrNotFound
	}
	t.Active = false
	t.UpdatedAt = s.now().UTC()
	s.transactions[id] = t
	return nil
}

// Cards

func (s *Store) ListCards(_ context.Context, userID string, includeInactive bool) ([]core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CreditCard
	for _, c := range s.cards {
		if c.UserID == userID && (c.Active || includeInactive) {
			out = append(out, c)
		}
	}
	sortByCreated(out, func(c core.CreditCard) time.Time { return c.CreatedAt }, func(c core.CreditCard) string { return c.ID })
	return out, nil
}

func (s *Store) GetCard(_ context.Context, userID, id string) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.UserID != userID {
		return core.CreditCard{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCard(_ context.Context, c core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cards[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.CreditCard{}, core.ErrNotFound
	}
	c.CreatedAt = cur.CreatedAt
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCard(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.UserID != userID || !c.Active {
		return core.ErrNotFound
	}
	c.Active = false
	c.UpdatedAt = s.now().UTC()
	s.cards[id] = c
	return nil
}

// Bills

func (s *Store) ListBills(_ context.Context, userID, cardID string) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Bill
	for _, b := range s.bills {
		if b.UserID == userID && (cardID == "" || b.CardID == cardID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reference != out[j].Reference {
			return out[i].Reference > out[j].Reference
		}
		return out[i].CardID < out[j].CardID
	})
	return out, nil
}

func (s *Store) GetBill(_ context.Context, userID, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok || b.UserID != userID {
		return core.Bill{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) UpsertBill(_ context.Context, b core.Bill) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertBill(b), nil
}

func (s *Store) MarkBillPaid(_ context.Context, b core.Bill, payment core.Money, paidAt time.Time) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bills[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.Bill{}, core.ErrNotFound
	}
	if cur.IsPaid() || cur.Amount != b.Amount || cur.PaidAmount != b.PaidAmount {
		return core.Bill{}, core.ErrConflict
	}
	cur.PaidAmount = cur.PaidAmount.Add(payment)
	cur.Status = core.BillPaid
	at := paidAt.UTC()
	cur.PaidAt = &at
	cur.UpdatedAt = s.now().UTC()
	s.bills[cur.ID] = cur
	return cur, nil
}

// upsertBill keys bills by card and reference. Caller holds mu.
func (s *Store) upsertBill(b core.Bill) core.Bill {
	for id, cur := range s.bills {
		if cur.CardID == b.CardID && cur.Reference == b.Reference && cur.UserID == b.UserID {
			b.ID = id
			b.CreatedAt = cur.CreatedAt
			break
		}
	}
	s.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	s.bills[b.ID] = b
	return b
}

// Budgets

func cloneBudget(b core.Budget) core.Budget {
	b.CategoryIDs = append([]string(nil), b.CategoryIDs...)
	return b
}

func (s *Store) ListBudgets(_ context.Context, userID string, includeInactive bool) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && (b.Active || includeInactive) {
			out = append(out, cloneBudget(b))
		}
	}
	sortByCreated(out, func(b core.Budget) time.Time { return b.CreatedAt }, func(b core.Budget) string { return b.ID })
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, userID, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return core.Budget{}, core.ErrNotFound
	}
	return cloneBudget(b), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	s.budgets[b.ID] = cloneBudget(b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.budgets[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.Budget{}, core.ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	s.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	s.budgets[b.ID] = cloneBudget(b)
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.UserID != userID || !b.Active {
		return core.ErrNotFound
	}
	b.Active = false
	b.UpdatedAt = s.now().UTC()
	s.budgets[id] = b
	return nil
}

// Notifications

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && n.Active && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateNotification(_ context.Context, n core.Notification) (core.Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupeKey != "" {
		for _, cur := range s.notifications {
			if cur.UserID == n.UserID && cur.DedupeKey == n.DedupeKey {
				return cur, false, nil
			}
		}
	}
	var updated time.Time
	s.stamp(&n.ID, &n.CreatedAt, &updated)
	s.notifications[n.ID] = n
	return n, true, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID || !n.Active {
		return core.ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID && n.Active && !n.Read {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteNotification(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID || !n.Active {
		return core.ErrNotFound
	}
	n.Active = false
	s.notifications[id] = n
	return nil
}
