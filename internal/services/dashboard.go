package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"detetive/internal/budget"
	"detetive/internal/core"
	"detetive/internal/ports"
)

// Dashboard is the aggregate view of one month.
type Dashboard struct {
	TotalBalance core.Money         `json:"total_balance"`
	Month        core.MonthOverview `json:"month"`
	Cards        []core.CardUsage   `json:"cards"`
	Budgets      []budget.Summary   `json:"budgets"`
}

type DashboardService struct {
	*base
}

// Get builds the dashboard for year/month. Budgets are summarized at the
// current time for the current month and at the month's last day otherwise.
func (s *DashboardService) Get(ctx context.Context, userID string, year, month int) (Dashboard, error) {
	if month < 1 || month > 12 {
		return Dashboard{}, &core.ValidationError{Field: "month", Err: core.ErrInvalidDate}
	}
	if year < 1900 || year > 9999 {
		return Dashboard{}, &core.ValidationError{Field: "year", Err: core.ErrInvalidDate}
	}
	key := cacheKey(userID, "dashboard", fmt.Sprintf("%04d-%02d", year, month), core.DateOf(s.now()).String())
	return cached(s.base, key, func() (Dashboard, error) {
		return s.build(ctx, userID, year, month)
	})
}

func (s *DashboardService) build(ctx context.Context, userID string, year, month int) (Dashboard, error) {
	from := core.NewDate(year, month, 1)
	to := from.MonthEnd()
	at := s.now()
	if today := core.DateOf(at); today.Before(from) || today.After(to) {
		at = to.Time.Add(12 * time.Hour)
	}

	var (
		accounts []core.Account
		monthTxs []core.Transaction
		cats     []core.Category
		cards    []core.CreditCard
		bills    []core.Bill
		budgets  []budget.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = s.stores().Accounts.ListAccounts(gctx, userID, false)
		return err
	})
	g.Go(func() (err error) {
		monthTxs, err = s.stores().Transactions.ListTransactions(gctx, userID, ports.TransactionFilter{From: from, To: to})
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.stores().Categories.ListCategories(gctx, userID, true)
		return err
	})
	g.Go(func() (err error) {
		cards, err = s.stores().Cards.ListCards(gctx, userID, false)
		return err
	})
	g.Go(func() (err error) {
		bills, err = s.stores().Cards.ListBills(gctx, userID, "")
		return err
	})
	g.Go(func() error {
		bs, txs, allCats, err := loadBudgetInputs(gctx, s.base, userID)
		if err != nil {
			return err
		}
		budgets = budget.Summarize(bs, txs, allCats, at, s.deps.Budget)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	d := Dashboard{
		Month:   monthOverview(year, month, monthTxs, cats),
		Cards:   cardUsage(cards, bills),
		Budgets: budgets,
	}
	if d.Budgets == nil {
		d.Budgets = []budget.Summary{}
	}
	for _, a := range accounts {
		d.TotalBalance = d.TotalBalance.Add(a.Balance)
	}
	return d, nil
}

// monthOverview totals income and expenses of the month; transfers and bill
// payments move money between the user's own accounts and are left out.
func monthOverview(year, month int, txs []core.Transaction, cats []core.Category) core.MonthOverview {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	ov := core.MonthOverview{Year: year, Month: month, ByCategory: []core.CategoryAmount{}}
	byCat := map[string]core.Money{}
	for _, t := range txs {
		if !t.Active {
			continue
		}
		switch t.Type {
		case core.Income:
			ov.Income = ov.Income.Add(t.Amount)
		case core.Expense:
			ov.Expense = ov.Expense.Add(t.Amount)
			byCat[t.CategoryID] = byCat[t.CategoryID].Add(t.Amount)
		}
	}
	ov.Net = ov.Income.Sub(ov.Expense)

	for id, amount := range byCat {
		name, ok := names[id]
		if !ok {
			name = core.UnknownCategoryName
		}
		ov.ByCategory = append(ov.ByCategory, core.CategoryAmount{CategoryID: id, Name: name, Amount: amount})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return ov
}

// cardUsage is the unpaid bill total of each active card against its limit.
func cardUsage(cards []core.CreditCard, bills []core.Bill) []core.CardUsage {
	used := map[string]core.Money{}
	for _, b := range bills {
		if !b.IsPaid() {
			used[b.CardID] = used[b.CardID].Add(b.Outstanding())
		}
	}
	out := make([]core.CardUsage, 0, len(cards))
	for _, c := range cards {
		if !c.Active {
			continue
		}
		out = append(out, core.CardUsage{
			CardID:  c.ID,
			Name:    c.Name,
			Limit:   c.Limit,
			Used:    used[c.ID],
			Percent: core.Percent(used[c.ID], c.Limit),
		})
	}
	return out
}
