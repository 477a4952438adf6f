// Package budget computes spending summaries of budgets over their current
// window. Everything here is pure: callers load the collections.
package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"detetive/internal/core"
)

type Status string

const (
	OnTrack  Status = "on_track"
	Warning  Status = "warning"
	Exceeded Status = "exceeded"
)

// DefaultWarnPercent is used when Options.WarnPercent is not set.
const DefaultWarnPercent = 80

type Options struct {
	WarnPercent float64
}

func (o Options) warn() float64 {
	if o.WarnPercent <= 0 {
		return DefaultWarnPercent
	}
	return o.WarnPercent
}

type CategorySpend struct {
	CategoryID string     `json:"category_id"`
	Name       string     `json:"name"`
	Spent      core.Money `json:"spent"`
}

type Summary struct {
	BudgetID    string            `json:"budget_id"`
	Name        string            `json:"name"`
	Period      core.BudgetPeriod `json:"period"`
	Amount      core.Money        `json:"amount"`
	Spent       core.Money        `json:"spent"`
	Remaining   core.Money        `json:"remaining"`
	PercentUsed float64           `json:"percent_used"`
	Projected   core.Money        `json:"projected"`
	DailyRate   core.Money        `json:"daily_rate"`
	WindowStart core.Date         `json:"window_start"`
	WindowEnd   core.Date         `json:"window_end"`
	DaysTotal   int               `json:"days_total"`
	DaysElapsed int               `json:"days_elapsed"`
	Status      Status            `json:"status"`
	Categories  []CategorySpend   `json:"categories"`
}

// Window returns the period of b containing today, clipped to the budget's
// own start and end dates.
func Window(b core.Budget, today core.Date) (start, end core.Date) {
	switch b.Period {
	case core.Custom:
		return b.StartDate, b.EndDate
	case core.Weekly:
		offset := (int(today.Weekday()) + 6) % 7 // Monday is 0
		start = today.AddDays(-offset)
		end = start.AddDays(6)
	case core.Yearly:
		start = core.NewDate(today.Year(), 1, 1)
		end = core.NewDate(today.Year(), 12, 31)
	default:
		start, end = today.MonthStart(), today.MonthEnd()
	}
	if !b.StartDate.IsZero() && start.Before(b.StartDate) {
		start = b.StartDate
	}
	if !b.EndDate.IsZero() && end.After(b.EndDate) {
		end = b.EndDate
	}
	return start, end
}

// Summarize summarizes every active budget, in input order.
func Summarize(budgets []core.Budget, txs []core.Transaction, cats []core.Category, now time.Time, opts Options) []Summary {
	names := categoryNames(cats)
	out := make([]Summary, 0, len(budgets))
	for _, b := range budgets {
		if !b.Active {
			continue
		}
		out = append(out, summarize(b, txs, names, now, opts))
	}
	return out
}

// SummarizeOne summarizes a single budget regardless of its active flag.
func SummarizeOne(b core.Budget, txs []core.Transaction, cats []core.Category, now time.Time, opts Options) Summary {
	return summarize(b, txs, categoryNames(cats), now, opts)
}

func categoryNames(cats []core.Category) map[string]string {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}

func summarize(b core.Budget, txs []core.Transaction, names map[string]string, now time.Time, opts Options) Summary {
	today := core.DateOf(now)
	start, end := Window(b, today)

	s := Summary{
		BudgetID:    b.ID,
		Name:        b.Name,
		Period:      b.Period,
		Amount:      b.Amount,
		WindowStart: start,
		WindowEnd:   end,
		DaysTotal:   core.DaysInclusive(start, end),
	}
	s.DaysElapsed = min(max(core.DaysInclusive(start, today), 0), s.DaysTotal)

	byCategory := map[string]core.Money{}
	for _, t := range txs {
		if !t.Active || t.Type != core.Expense || !b.Covers(t.CategoryID) {
			continue
		}
		if !t.Date.Between(start, end) {
			continue
		}
		s.Spent = s.Spent.Add(t.Amount)
		byCategory[t.CategoryID] = byCategory[t.CategoryID].Add(t.Amount)
	}

	s.Remaining = b.Amount.Sub(s.Spent)
	s.PercentUsed = core.Percent(s.Spent, b.Amount)
	s.Projected, s.DailyRate = project(s.Spent, s.DaysTotal, s.DaysElapsed)
	s.Status = status(s, opts.warn())

	s.Categories = make([]CategorySpend, 0, len(byCategory))
	for id, spent := range byCategory {
		name, ok := names[id]
		if !ok {
			name = core.UnknownCategoryName
		}
		s.Categories = append(s.Categories, CategorySpend{CategoryID: id, Name: name, Spent: spent})
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		ci, cj := s.Categories[i], s.Categories[j]
		if ci.Spent.Cents != cj.Spent.Cents {
			return ci.Spent.Cents > cj.Spent.Cents
		}
		return ci.Name < cj.Name
	})
	return s
}

// project extrapolates the spend linearly over the whole window. Rounding is
// half-up to the cent.
func project(spent core.Money, total, elapsed int) (projected, daily core.Money) {
	if elapsed <= 0 {
		return spent, core.Money{}
	}
	d := decimal.NewFromInt(spent.Cents)
	days := decimal.NewFromInt(int64(elapsed))
	projected = core.Cents(d.Mul(decimal.NewFromInt(int64(total))).Div(days).Round(0).IntPart())
	daily = core.Cents(d.Div(days).Round(0).IntPart())
	return projected, daily
}

func status(s Summary, warn float64) Status {
	switch {
	case s.PercentUsed >= 100:
		return Exceeded
	case s.PercentUsed >= warn || s.Projected.Cents > s.Amount.Cents:
		return Warning
	default:
		return OnTrack
	}
}
