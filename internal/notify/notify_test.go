package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detetive/internal/budget"
	"detetive/internal/core"
)

var now = time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)

func bill(id string, cents int64, due core.Date) core.Bill {
	return core.Bill{ID: id, CardID: "card", Reference: "2025-04", DueDate: due, Amount: core.Cents(cents), Status: core.BillClosed}
}

func TestBillDueRule(t *testing.T) {
	card := core.CreditCard{ID: "card", Name: "Roxo", Active: true}
	tests := []struct {
		name     string
		bill     core.Bill
		wantSev  core.Severity
		wantKey  string
		wantNone bool
	}{
		{"overdue", bill("b1", 1000, core.NewDate(2025, 4, 8)), core.SeverityCritical, "bill_due:b1:2025-04-08:overdue", false},
		{"due today", bill("b2", 1000, core.NewDate(2025, 4, 10)), core.SeverityCritical, "bill_due:b2:2025-04-10:today", false},
		{"within window", bill("b3", 1000, core.NewDate(2025, 4, 15)), core.SeverityWarning, "bill_due:b3:2025-04-15:soon", false},
		{"beyond window", bill("b4", 1000, core.NewDate(2025, 4, 16)), "", "", true},
		{"zero amount", bill("b5", 0, core.NewDate(2025, 4, 9)), "", "", true},
		{"paid", core.Bill{ID: "b6", CardID: "card", DueDate: core.NewDate(2025, 4, 9), Amount: core.Cents(10), Status: core.BillPaid}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{Now: now, Cards: []core.CreditCard{card}, Bills: []core.Bill{tt.bill}}
			got := BillDueRule{}.Evaluate(s, DefaultThresholds())
			if tt.wantNone {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantSev, got[0].Severity)
			assert.Equal(t, tt.wantKey, got[0].DedupeKey)
			assert.Equal(t, tt.bill.ID, got[0].EntityID)
		})
	}
}

func TestBillDueSkipsDeletedCards(t *testing.T) {
	s := Snapshot{Now: now, Cards: []core.CreditCard{{ID: "card", Active: false}},
		Bills: []core.Bill{bill("b1", 1000, core.NewDate(2025, 4, 8))}}
	assert.Empty(t, BillDueRule{}.Evaluate(s, DefaultThresholds()))
}

func TestCardLimitRule(t *testing.T) {
	tests := []struct {
		name    string
		used    int64
		wantSev core.Severity
	}{
		{"below warn", 7999, ""},
		{"warn", 8000, core.SeverityWarning},
		{"critical", 9500, core.SeverityCritical},
		{"over limit", 12000, core.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{
				Now:   now,
				Cards: []core.CreditCard{{ID: "card", Name: "Roxo", Limit: core.Cents(10000), Active: true}},
				Bills: []core.Bill{
					bill("b1", tt.used, core.NewDate(2025, 4, 20)),
					{ID: "old", CardID: "card", Amount: core.Cents(5000), Status: core.BillPaid},
				},
			}
			got := CardLimitRule{}.Evaluate(s, DefaultThresholds())
			if tt.wantSev == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantSev, got[0].Severity)
			assert.Equal(t, "card_limit:card:2025-04:"+string(tt.wantSev), got[0].DedupeKey)
		})
	}
}

func TestReopenedBillCountsOnlyOutstanding(t *testing.T) {
	reopened := core.Bill{ID: "b1", CardID: "card", Reference: "2025-04", DueDate: core.NewDate(2025, 4, 12),
		Amount: core.Cents(17000), PaidAmount: core.Cents(15000), Status: core.BillOpen}
	s := Snapshot{
		Now:   now,
		Cards: []core.CreditCard{{ID: "card", Name: "Roxo", Limit: core.Cents(10000), Active: true}},
		Bills: []core.Bill{reopened},
	}
	assert.Empty(t, CardLimitRule{}.Evaluate(s, DefaultThresholds()), "20% of the limit is outstanding")

	due := BillDueRule{}.Evaluate(s, DefaultThresholds())
	require.Len(t, due, 1)
	assert.Contains(t, due[0].Message, core.Cents(2000).BRL())
}

func TestLowBalanceRule(t *testing.T) {
	th := DefaultThresholds()
	th.DefaultMinimumBalance = core.Cents(10000)
	accounts := []core.Account{
		{ID: "neg", Name: "Corrente", Balance: core.Cents(-1), Active: true},
		{ID: "own-min", Name: "Poupança", Balance: core.Cents(40000), MinimumBalance: core.Cents(50000), Active: true},
		{ID: "default-min", Name: "Carteira", Balance: core.Cents(9999), Active: true},
		{ID: "fine", Name: "Investimento", Balance: core.Cents(10000), Active: true},
		{ID: "deleted", Name: "Antiga", Balance: core.Cents(-500), Active: false},
	}
	got := LowBalanceRule{}.Evaluate(Snapshot{Now: now, Accounts: accounts}, th)
	require.Len(t, got, 3)

	bySev := map[string]core.Severity{}
	for _, n := range got {
		bySev[n.EntityID] = n.Severity
	}
	assert.Equal(t, core.SeverityCritical, bySev["neg"])
	assert.Equal(t, core.SeverityWarning, bySev["own-min"])
	assert.Equal(t, core.SeverityWarning, bySev["default-min"])
	assert.Contains(t, got[0].DedupeKey, ":2025-04-10:")
}

func TestBudgetLimitRule(t *testing.T) {
	summaries := []budget.Summary{
		{BudgetID: "over", Name: "A", Amount: core.Cents(100), Spent: core.Cents(150), PercentUsed: 150, Status: budget.Exceeded, WindowStart: core.NewDate(2025, 4, 1)},
		{BudgetID: "warn", Name: "B", Amount: core.Cents(100), Spent: core.Cents(85), PercentUsed: 85, Projected: core.Cents(95), Status: budget.Warning, WindowStart: core.NewDate(2025, 4, 1)},
		{BudgetID: "proj", Name: "C", Amount: core.Cents(100), Spent: core.Cents(40), PercentUsed: 40, Projected: core.Cents(120), Status: budget.Warning, WindowStart: core.NewDate(2025, 4, 1)},
		{BudgetID: "ok", Name: "D", Amount: core.Cents(100), Spent: core.Cents(10), PercentUsed: 10, Projected: core.Cents(30), Status: budget.OnTrack},
	}
	got := BudgetLimitRule{}.Evaluate(Snapshot{Now: now, Budgets: summaries}, DefaultThresholds())
	require.Len(t, got, 3)
	assert.Equal(t, core.SeverityCritical, got[0].Severity)
	assert.Equal(t, "budget_limit:over:2025-04-01:exceeded", got[0].DedupeKey)
	assert.Equal(t, core.SeverityWarning, got[1].Severity)
	assert.Equal(t, core.SeverityInfo, got[2].Severity)
}

func TestGenerateOrderingAndDeterminism(t *testing.T) {
	s := Snapshot{
		Now:    now,
		UserID: "u1",
		Accounts: []core.Account{
			{ID: "acc", Name: "Corrente", Balance: core.Cents(-100), Active: true},
		},
		Cards: []core.CreditCard{{ID: "card", Name: "Roxo", Limit: core.Cents(1000), Active: true}},
		Bills: []core.Bill{bill("b1", 850, core.NewDate(2025, 4, 12))},
		Budgets: []budget.Summary{
			{BudgetID: "bud", Name: "X", Amount: core.Cents(100), PercentUsed: 10, Projected: core.Cents(200), Status: budget.Warning},
		},
	}

	first := Generate(s, DefaultThresholds())
	second := Generate(s, DefaultThresholds())
	require.Len(t, first, 4)
	assert.Equal(t, first, second)

	assert.Equal(t, core.LowBalance, first[0].Type)
	assert.Equal(t, core.SeverityCritical, first[0].Severity)
	assert.Equal(t, core.BillDue, first[1].Type)
	assert.Equal(t, core.CardLimit, first[2].Type)
	assert.Equal(t, core.BudgetLimit, first[3].Type)
	for _, n := range first {
		assert.Equal(t, "u1", n.UserID)
		assert.True(t, n.Active)
		assert.False(t, n.Read)
		assert.NotEmpty(t, n.DedupeKey)
	}
}

func TestRegistry(t *testing.T) {
	_, err := GetRule("unknown")
	assert.Error(t, err)

	r, err := GetRule(core.BillDue)
	require.NoError(t, err)
	assert.IsType(t, BillDueRule{}, r)
	assert.Len(t, Types(), 4)
}
