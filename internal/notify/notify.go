package notify

import (
	"sort"
	"time"

	"detetive/internal/budget"
	"detetive/internal/core"
)

// Snapshot is everything the rules look at for one user.
type Snapshot struct {
	Now      time.Time
	UserID   string
	Accounts []core.Account
	Cards    []core.CreditCard
	Bills    []core.Bill
	Budgets  []budget.Summary
}

func (s Snapshot) today() core.Date {
	return core.DateOf(s.Now)
}

func (s Snapshot) activeCards() map[string]core.CreditCard {
	out := make(map[string]core.CreditCard, len(s.Cards))
	for _, c := range s.Cards {
		if c.Active {
			out[c.ID] = c
		}
	}
	return out
}

type Thresholds struct {
	BillDueWindowDays     int
	CardWarnPercent       float64
	CardCriticalPercent   float64
	BudgetWarnPercent     float64
	DefaultMinimumBalance core.Money
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		BillDueWindowDays:   5,
		CardWarnPercent:     80,
		CardCriticalPercent: 95,
		BudgetWarnPercent:   budget.DefaultWarnPercent,
	}
}

// Generate runs every registered rule and returns the alerts ordered by
// severity (critical first), then type, then entity.
func Generate(s Snapshot, th Thresholds) []core.Notification {
	var out []core.Notification
	for _, t := range Types() {
		for _, n := range rules[t].Evaluate(s, th) {
			n.Type = t
			n.UserID = s.UserID
			n.Active = true
			n.CreatedAt = s.Now
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.DedupeKey < b.DedupeKey
	})
	return out
}
