package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"detetive/internal/core"
	"detetive/internal/ports"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRebind(t *testing.T) {
	r := &Repository{dialect: Postgres}
	if got := r.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &Repository{dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	version, dirty, err := MigrationVersion(SQLite, path)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("version=%d dirty=%v, want 2 clean", version, dirty)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.CreateUser(ctx, core.User{Email: "Ana@Example.com", Name: "Ana", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Email: "ana@example.com", Name: "Other", PasswordHash: "y"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
	got, err := repo.GetUserByEmail(ctx, "ANA@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
	if _, err := repo.GetUser(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountsDefaultAndBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a1, err := repo.CreateAccount(ctx, core.Account{UserID: "u", Name: "Corrente", Type: core.Checking,
		Balance: core.Cents(1000), Currency: "BRL", IsDefault: true, Active: true})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	a2, err := repo.CreateAccount(ctx, core.Account{UserID: "u", Name: "Poupança", Type: core.Savings,
		Currency: "BRL", IsDefault: true, Active: true})
	if err != nil {
		t.Fatalf("CreateAccount second default: %v", err)
	}

	first, _ := repo.GetAccount(ctx, "u", a1.ID)
	second, _ := repo.GetAccount(ctx, "u", a2.ID)
	if first.IsDefault || !second.IsDefault {
		t.Fatalf("default not moved: first=%v second=%v", first.IsDefault, second.IsDefault)
	}

	adjusted, err := repo.AdjustBalance(ctx, "u", a1.ID, core.Cents(-1500))
	if err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	if adjusted.Balance.Cents != -500 {
		t.Errorf("balance = %d, want -500", adjusted.Balance.Cents)
	}
	if _, err := repo.AdjustBalance(ctx, "someone-else", a1.ID, core.Cents(1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found for foreign adjust, got %v", err)
	}

	first.Name = "Conta corrente"
	renamed, err := repo.UpdateAccount(ctx, first)
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	stored, _ := repo.GetAccount(ctx, "u", a1.ID)
	if stored.Balance.Cents != -500 || renamed.Balance.Cents != -500 || stored.Name != "Conta corrente" {
		t.Errorf("update from a stale copy: stored=%+v returned=%+v", stored, renamed)
	}

	if err := repo.DeleteAccount(ctx, "u", a2.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	active, _ := repo.ListAccounts(ctx, "u", false)
	all, _ := repo.ListAccounts(ctx, "u", true)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("active=%d all=%d", len(active), len(all))
	}
	if err := repo.DeleteAccount(ctx, "u", a2.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestCategoriesUniqueName(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c, err := repo.CreateCategory(ctx, core.Category{UserID: "u", Name: "Lazer", Kind: core.ExpenseCategory, Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: "u", Name: "LAZER", Kind: core.ExpenseCategory, Active: true}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := repo.DeleteCategory(ctx, "u", c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: "u", Name: "Lazer", Kind: core.ExpenseCategory, Active: true}); err != nil {
		t.Fatalf("name should be reusable after soft delete: %v", err)
	}
}

func TestTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mk := func(tx core.Transaction) core.Transaction {
		t.Helper()
		tx.UserID = "u"
		tx.Active = true
		created, err := repo.CreateTransaction(ctx, tx)
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		return created
	}
	mk(core.Transaction{AccountID: "a1", CategoryID: "food", Type: core.Expense, Amount: core.Cents(1000), Description: "Mercado", Date: core.NewDate(2025, 3, 1)})
	mk(core.Transaction{CardID: "c1", CategoryID: "fun", Type: core.Expense, Amount: core.Cents(2000), Description: "Cinema", Date: core.NewDate(2025, 3, 10)})
	transfer := mk(core.Transaction{AccountID: "a2", DestinationAccountID: "a1", Type: core.Transfer, Amount: core.Cents(500), Description: "Reserva", Date: core.NewDate(2025, 3, 20)})

	all, err := repo.ListTransactions(ctx, "u", ports.TransactionFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %d %v", len(all), err)
	}
	if all[0].ID != transfer.ID {
		t.Errorf("expected newest first")
	}
	if all[0].CardID != "" || all[0].DestinationAccountID != "a1" {
		t.Errorf("nullable columns not restored: %+v", all[0])
	}

	tests := []struct {
		name   string
		filter ports.TransactionFilter
		want   int
	}{
		{"by account includes destination", ports.TransactionFilter{AccountID: "a1"}, 2},
		{"by card", ports.TransactionFilter{CardID: "c1"}, 1},
		{"by category", ports.TransactionFilter{CategoryID: "food"}, 1},
		{"by type", ports.TransactionFilter{Type: core.Expense}, 2},
		{"date range", ports.TransactionFilter{From: core.NewDate(2025, 3, 5), To: core.NewDate(2025, 3, 20)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, "u", tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d transactions, want %d", len(got), tt.want)
			}
		})
	}

	if err := repo.DeleteTransaction(ctx, "u", transfer.ID); err != nil {
		t.Fatal(err)
	}
	active, _ := repo.ListTransactions(ctx, "u", ports.TransactionFilter{})
	withInactive, _ := repo.ListTransactions(ctx, "u", ports.TransactionFilter{IncludeInactive: true})
	if len(active) != 2 || len(withInactive) != 3 {
		t.Errorf("active=%d withInactive=%d", len(active), len(withInactive))
	}
}

func TestBillsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b := core.Bill{UserID: "u", CardID: "c1", Reference: "2025-03", PeriodStart: core.NewDate(2025, 2, 26),
		ClosingDate: core.NewDate(2025, 3, 25), DueDate: core.NewDate(2025, 4, 5), Amount: core.Cents(100), Status: core.BillOpen}
	first, err := repo.UpsertBill(ctx, b)
	if err != nil {
		t.Fatalf("UpsertBill: %v", err)
	}
	paidAt := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	b.Amount = core.Cents(900)
	b.PaidAmount = core.Cents(900)
	b.Status = core.BillPaid
	b.PaidAt = &paidAt
	second, err := repo.UpsertBill(ctx, b)
	if err != nil {
		t.Fatalf("UpsertBill again: %v", err)
	}
	if second.ID != first.ID || second.Amount.Cents != 900 || !second.IsPaid() {
		t.Fatalf("unexpected bill after upsert: %+v", second)
	}
	if second.PaidAt == nil || !second.PaidAt.Equal(paidAt) {
		t.Errorf("paid_at = %v, want %v", second.PaidAt, paidAt)
	}
	if second.DueDate.String() != "2025-04-05" {
		t.Errorf("due date = %s", second.DueDate)
	}
}

func TestMarkBillPaid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.UpsertBill(ctx, core.Bill{UserID: "u", CardID: "c1", Reference: "2025-04", PeriodStart: core.NewDate(2025, 3, 26),
		ClosingDate: core.NewDate(2025, 4, 25), DueDate: core.NewDate(2025, 5, 5), Amount: core.Cents(15000), Status: core.BillOpen})
	if err != nil {
		t.Fatal(err)
	}
	paidAt := time.Date(2025, 4, 28, 9, 0, 0, 0, time.UTC)
	paid, err := repo.MarkBillPaid(ctx, b, core.Cents(15000), paidAt)
	if err != nil {
		t.Fatalf("MarkBillPaid: %v", err)
	}
	if !paid.IsPaid() || paid.PaidAmount.Cents != 15000 || paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected paid bill %+v", paid)
	}
	if _, err := repo.MarkBillPaid(ctx, b, core.Cents(15000), paidAt); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second payment of the same bill: got %v, want conflict", err)
	}

	// A purchase reopens the bill for the difference.
	paid.Amount = core.Cents(17000)
	paid.Status = core.BillOpen
	reopened, err := repo.UpsertBill(ctx, paid)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.PaidAmount.Cents != 15000 || reopened.Outstanding().Cents != 2000 {
		t.Fatalf("reopened bill %+v", reopened)
	}
	stale := reopened
	stale.Amount = core.Cents(16000)
	if _, err := repo.MarkBillPaid(ctx, stale, core.Cents(1000), paidAt); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("payment against a changed amount: got %v, want conflict", err)
	}
	settled, err := repo.MarkBillPaid(ctx, reopened, reopened.Outstanding(), paidAt)
	if err != nil {
		t.Fatal(err)
	}
	if settled.PaidAmount.Cents != 17000 || !settled.Outstanding().IsZero() {
		t.Errorf("settled bill %+v", settled)
	}
}

func TestBudgetsCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	b, err := repo.CreateBudget(ctx, core.Budget{UserID: "u", Name: "Comida", Amount: core.Cents(50000), Period: core.Monthly,
		StartDate: core.NewDate(2025, 1, 1), CategoryIDs: []string{"food", "food", "drinks"}, Active: true})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	got, err := repo.GetBudget(ctx, "u", b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.CategoryIDs) != 2 || got.CategoryIDs[0] != "drinks" || !got.EndDate.IsZero() {
		t.Fatalf("unexpected budget %+v", got)
	}

	got.CategoryIDs = nil
	got.EndDate = core.NewDate(2025, 12, 31)
	if _, err := repo.UpdateBudget(ctx, got); err != nil {
		t.Fatal(err)
	}
	list, _ := repo.ListBudgets(ctx, "u", false)
	if len(list) != 1 || len(list[0].CategoryIDs) != 0 || list[0].EndDate.String() != "2025-12-31" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestNotificationsDedupe(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	n := core.Notification{UserID: "u", Type: core.BillDue, Severity: core.SeverityWarning, Title: "t", Message: "m",
		EntityID: "b1", DedupeKey: "bill_due:b1:2025-04-05:warning", Active: true}

	first, created, err := repo.CreateNotification(ctx, n)
	if err != nil || !created {
		t.Fatalf("CreateNotification: created=%v err=%v", created, err)
	}
	again, created, err := repo.CreateNotification(ctx, n)
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("duplicate should return stored row: %+v created=%v err=%v", again, created, err)
	}

	if err := repo.MarkNotificationRead(ctx, "u", first.ID); err != nil {
		t.Fatal(err)
	}
	unread, _ := repo.ListNotifications(ctx, "u", true)
	if len(unread) != 0 {
		t.Errorf("expected no unread notifications")
	}
	count, err := repo.MarkAllNotificationsRead(ctx, "u")
	if err != nil || count != 0 {
		t.Errorf("MarkAll = %d, %v", count, err)
	}
	if err := repo.DeleteNotification(ctx, "u", first.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteNotification(ctx, "u", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
