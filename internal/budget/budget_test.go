package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detetive/internal/core"
)

func expense(cat string, cents int64, d core.Date) core.Transaction {
	return core.Transaction{ID: cat + d.String(), CategoryID: cat, Type: core.Expense, Amount: core.Cents(cents), Date: d, Active: true}
}

func TestWindow(t *testing.T) {
	today := core.NewDate(2025, 3, 19) // Wednesday
	tests := []struct {
		name      string
		budget    core.Budget
		wantStart string
		wantEnd   string
	}{
		{"monthly", core.Budget{Period: core.Monthly}, "2025-03-01", "2025-03-31"},
		{"weekly starts monday", core.Budget{Period: core.Weekly}, "2025-03-17", "2025-03-23"},
		{"yearly", core.Budget{Period: core.Yearly}, "2025-01-01", "2025-12-31"},
		{"custom", core.Budget{Period: core.Custom, StartDate: core.NewDate(2025, 2, 10), EndDate: core.NewDate(2025, 4, 10)}, "2025-02-10", "2025-04-10"},
		{"monthly clipped by start", core.Budget{Period: core.Monthly, StartDate: core.NewDate(2025, 3, 10)}, "2025-03-10", "2025-03-31"},
		{"monthly clipped by end", core.Budget{Period: core.Monthly, EndDate: core.NewDate(2025, 3, 20)}, "2025-03-01", "2025-03-20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(tt.budget, today)
			assert.Equal(t, tt.wantStart, start.String())
			assert.Equal(t, tt.wantEnd, end.String())
		})
	}

	sunday := core.NewDate(2025, 3, 23)
	start, _ := Window(core.Budget{Period: core.Weekly}, sunday)
	assert.Equal(t, "2025-03-17", start.String(), "sunday belongs to the week started on monday")
}

func TestSummarizeOneProjection(t *testing.T) {
	b := core.Budget{ID: "b1", Name: "Mercado", Amount: core.Cents(100000), Period: core.Monthly,
		StartDate: core.NewDate(2025, 1, 1), CategoryIDs: []string{"food"}, Active: true}
	txs := []core.Transaction{
		expense("food", 20000, core.NewDate(2025, 4, 2)),
		expense("food", 10000, core.NewDate(2025, 4, 10)),
		expense("food", 99999, core.NewDate(2025, 3, 31)), // previous window
		expense("fun", 5000, core.NewDate(2025, 4, 5)),    // outside category set
		{CategoryID: "food", Type: core.Income, Amount: core.Cents(7000), Date: core.NewDate(2025, 4, 3), Active: true},
		{CategoryID: "food", Type: core.Expense, Amount: core.Cents(7000), Date: core.NewDate(2025, 4, 3), Active: false},
	}
	cats := []core.Category{{ID: "food", Name: "Alimentação"}}
	now := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)

	s := SummarizeOne(b, txs, cats, now, Options{})

	assert.Equal(t, int64(30000), s.Spent.Cents)
	assert.Equal(t, int64(70000), s.Remaining.Cents)
	assert.Equal(t, 30.0, s.PercentUsed)
	assert.Equal(t, 30, s.DaysTotal)
	assert.Equal(t, 10, s.DaysElapsed)
	assert.Equal(t, int64(90000), s.Projected.Cents)
	assert.Equal(t, int64(3000), s.DailyRate.Cents)
	assert.Equal(t, OnTrack, s.Status, "projection 900 stays below 1000")
	require.Len(t, s.Categories, 1)
	assert.Equal(t, "Alimentação", s.Categories[0].Name)
}

func TestStatus(t *testing.T) {
	now := time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)
	start := core.NewDate(2025, 4, 1)
	tests := []struct {
		name  string
		spent int64
		opts  Options
		want  Status
	}{
		{"on track", 5000, Options{}, OnTrack},
		{"warning at 80 percent", 8000, Options{}, Warning},
		{"custom warn threshold", 6000, Options{WarnPercent: 50}, Warning},
		{"exceeded at 100 percent", 10000, Options{}, Exceeded},
		{"exceeded above", 15000, Options{}, Exceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := core.Budget{Amount: core.Cents(10000), Period: core.Monthly, StartDate: start, Active: true}
			s := SummarizeOne(b, []core.Transaction{expense("x", tt.spent, start)}, nil, now, tt.opts)
			assert.Equal(t, tt.want, s.Status)
		})
	}
}

func TestProjectedOverAmountWarns(t *testing.T) {
	b := core.Budget{Amount: core.Cents(10000), Period: core.Monthly, StartDate: core.NewDate(2025, 1, 1), Active: true}
	now := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	s := SummarizeOne(b, []core.Transaction{expense("x", 2000, core.NewDate(2025, 4, 1))}, nil, now, Options{})

	assert.Equal(t, 20.0, s.PercentUsed)
	assert.Equal(t, int64(20000), s.Projected.Cents)
	assert.Equal(t, Warning, s.Status)
}

func TestProjectionHalfUp(t *testing.T) {
	projected, daily := project(core.Cents(100), 31, 3)
	assert.Equal(t, int64(1033), projected.Cents) // 1033.33
	assert.Equal(t, int64(33), daily.Cents)

	projected, _ = project(core.Cents(1), 3, 2)
	assert.Equal(t, int64(2), projected.Cents) // 1.5 rounds up

	projected, daily = project(core.Cents(500), 30, 0)
	assert.Equal(t, int64(500), projected.Cents)
	assert.True(t, daily.IsZero())
}

func TestNotStartedBudget(t *testing.T) {
	b := core.Budget{Amount: core.Cents(10000), Period: core.Custom,
		StartDate: core.NewDate(2025, 5, 1), EndDate: core.NewDate(2025, 5, 31), Active: true}
	s := SummarizeOne(b, nil, nil, time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC), Options{})
	assert.Equal(t, 0, s.DaysElapsed)
	assert.Equal(t, 31, s.DaysTotal)
	assert.True(t, s.Projected.IsZero())
	assert.Equal(t, OnTrack, s.Status)
}

func TestSummarizeEmptySetCoversAllAndUnknownCategory(t *testing.T) {
	now := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	budgets := []core.Budget{
		{ID: "all", Amount: core.Cents(100000), Period: core.Monthly, StartDate: core.NewDate(2025, 1, 1), Active: true},
		{ID: "gone", Amount: core.Cents(100), Period: core.Monthly, StartDate: core.NewDate(2025, 1, 1), Active: false},
	}
	txs := []core.Transaction{
		expense("food", 3000, core.NewDate(2025, 4, 1)),
		expense("deleted-cat", 5000, core.NewDate(2025, 4, 2)),
		expense("food", 1000, core.NewDate(2025, 4, 3)),
	}
	cats := []core.Category{{ID: "food", Name: "Alimentação"}}

	out := Summarize(budgets, txs, cats, now, Options{})
	require.Len(t, out, 1, "inactive budgets are skipped")
	s := out[0]
	assert.Equal(t, int64(9000), s.Spent.Cents)
	require.Len(t, s.Categories, 2)
	assert.Equal(t, core.UnknownCategoryName, s.Categories[0].Name)
	assert.Equal(t, int64(5000), s.Categories[0].Spent.Cents)
	assert.Equal(t, int64(4000), s.Categories[1].Spent.Cents)
}
