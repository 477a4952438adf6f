// Package notify derives alerts from a user's financial snapshot.
//
// Each notification type has its own Rule. Rules live in a registry keyed by
// type so new alert kinds can be added without touching Generate.
package notify

import (
	"fmt"
	"sort"

	"detetive/internal/budget"
	"detetive/internal/core"
)

// Rule is the strategy interface for one notification type.
type Rule interface {
	// Evaluate returns the alerts the rule raises for the snapshot. Type,
	// UserID, Active and CreatedAt are filled in by Generate.
	Evaluate(s Snapshot, th Thresholds) []core.Notification
}

// BillDueRule warns about unpaid bills close to or past their due date.
type BillDueRule struct{}

func (BillDueRule) Evaluate(s Snapshot, th Thresholds) []core.Notification {
	today := s.today()
	cards := s.activeCards()
	var out []core.Notification
	for _, b := range s.Bills {
		card, ok := cards[b.CardID]
		if !ok || b.IsPaid() || b.Outstanding().Cents <= 0 {
			continue
		}
		days := today.DaysUntil(b.DueDate)
		var (
			sev   core.Severity
			level string
			title string
		)
		switch {
		case days < 0:
			sev, level, title = core.SeverityCritical, "overdue", "Fatura vencida"
		case days == 0:
			sev, level, title = core.SeverityCritical, "today", "Fatura vence hoje"
		case days <= th.BillDueWindowDays:
			sev, level, title = core.SeverityWarning, "soon", fmt.Sprintf("Fatura vence em %d dias", days)
			if days == 1 {
				title = "Fatura vence amanhã"
			}
		default:
			continue
		}
		out = append(out, core.Notification{
			Severity:  sev,
			Title:     title,
			Message:   fmt.Sprintf("A fatura %s do cartão %s, no valor de %s, vence em %s.", b.Reference, card.Name, b.Outstanding().BRL(), b.DueDate.Format("02/01/2006")),
			EntityID:  b.ID,
			DedupeKey: fmt.Sprintf("bill_due:%s:%s:%s", b.ID, b.DueDate, level),
		})
	}
	return out
}

// CardLimitRule warns when the unpaid balance of a card nears its limit.
type CardLimitRule struct{}

func (CardLimitRule) Evaluate(s Snapshot, th Thresholds) []core.Notification {
	used := map[string]core.Money{}
	for _, b := range s.Bills {
		if !b.IsPaid() {
			used[b.CardID] = used[b.CardID].Add(b.Outstanding())
		}
	}
	month := s.today().Format("2006-01")
	var out []core.Notification
	for _, c := range s.Cards {
		if !c.Active || c.Limit.Cents <= 0 {
			continue
		}
		pct := core.Percent(used[c.ID], c.Limit)
		var sev core.Severity
		switch {
		case pct >= th.CardCriticalPercent:
			sev = core.SeverityCritical
		case pct >= th.CardWarnPercent:
			sev = core.SeverityWarning
		default:
			continue
		}
		out = append(out, core.Notification{
			Severity:  sev,
			Title:     fmt.Sprintf("Cartão %s com %.0f%% do limite usado", c.Name, pct),
			Message:   fmt.Sprintf("Você já usou %s de um limite de %s.", used[c.ID].BRL(), c.Limit.BRL()),
			EntityID:  c.ID,
			DedupeKey: fmt.Sprintf("card_limit:%s:%s:%s", c.ID, month, sev),
		})
	}
	return out
}

// LowBalanceRule warns about accounts below their minimum balance.
type LowBalanceRule struct{}

func (LowBalanceRule) Evaluate(s Snapshot, th Thresholds) []core.Notification {
	day := s.today().String()
	var out []core.Notification
	for _, a := range s.Accounts {
		if !a.Active {
			continue
		}
		minimum := a.MinimumBalance
		if minimum.IsZero() {
			minimum = th.DefaultMinimumBalance
		}
		var (
			sev   core.Severity
			title string
		)
		switch {
		case a.Balance.IsNegative():
			sev, title = core.SeverityCritical, fmt.Sprintf("Conta %s está negativa", a.Name)
		case a.Balance.Cents < minimum.Cents:
			sev, title = core.SeverityWarning, fmt.Sprintf("Saldo baixo na conta %s", a.Name)
		default:
			continue
		}
		out = append(out, core.Notification{
			Severity:  sev,
			Title:     title,
			Message:   fmt.Sprintf("Saldo atual de %s, abaixo do mínimo de %s.", a.Balance.BRL(), minimum.BRL()),
			EntityID:  a.ID,
			DedupeKey: fmt.Sprintf("low_balance:%s:%s:%s", a.ID, day, sev),
		})
	}
	return out
}

// BudgetLimitRule reports budgets that are exceeded, close to the limit, or
// projected to overshoot.
type BudgetLimitRule struct{}

func (BudgetLimitRule) Evaluate(s Snapshot, th Thresholds) []core.Notification {
	var out []core.Notification
	for _, b := range s.Budgets {
		var (
			sev   core.Severity
			level string
			title string
			msg   string
		)
		switch {
		case b.Status == budget.Exceeded:
			sev, level = core.SeverityCritical, "exceeded"
			title = fmt.Sprintf("Orçamento %s estourado", b.Name)
			msg = fmt.Sprintf("Gasto de %s para um orçamento de %s (%.2f%%).", b.Spent.BRL(), b.Amount.BRL(), b.PercentUsed)
		case b.PercentUsed >= th.BudgetWarnPercent:
			sev, level = core.SeverityWarning, "warning"
			title = fmt.Sprintf("Orçamento %s em %.0f%%", b.Name, b.PercentUsed)
			msg = fmt.Sprintf("Restam %s de %s até %s.", b.Remaining.BRL(), b.Amount.BRL(), b.WindowEnd.Format("02/01/2006"))
		case b.Projected.Cents > b.Amount.Cents:
			sev, level = core.SeverityInfo, "projected"
			title = fmt.Sprintf("Orçamento %s deve estourar", b.Name)
			msg = fmt.Sprintf("No ritmo atual o gasto chega a %s, acima de %s.", b.Projected.BRL(), b.Amount.BRL())
		default:
			continue
		}
		out = append(out, core.Notification{
			Severity:  sev,
			Title:     title,
			Message:   msg,
			EntityID:  b.BudgetID,
			DedupeKey: fmt.Sprintf("budget_limit:%s:%s:%s", b.BudgetID, b.WindowStart, level),
		})
	}
	return out
}

// rules maps notification types to their rules.
var rules = map[core.NotificationType]Rule{
	core.BillDue:     BillDueRule{},
	core.CardLimit:   CardLimitRule{},
	core.LowBalance:  LowBalanceRule{},
	core.BudgetLimit: BudgetLimitRule{},
}

// GetRule returns the rule registered for a notification type.
func GetRule(t core.NotificationType) (Rule, error) {
	r, ok := rules[t]
	if !ok {
		return nil, fmt.Errorf("unknown notification type: %s", t)
	}
	return r, nil
}

// RegisterRule registers or replaces the rule for a notification type.
// It is not safe to call concurrently with Generate.
func RegisterRule(t core.NotificationType, r Rule) {
	rules[t] = r
}

// Types returns the registered notification types in a stable order.
func Types() []core.NotificationType {
	out := make([]core.NotificationType, 0, len(rules))
	for t := range rules {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
