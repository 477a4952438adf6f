package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"detetive/internal/core"
	"detetive/internal/ports"
)

var seedTime = time.Date(2025, 3, 18, 12, 0, 0, 0, time.UTC)

func TestDefaultFixtures(t *testing.T) {
	s, err := NewFromFixtures("", seedTime)
	if err != nil {
		t.Fatalf("NewFromFixtures: %v", err)
	}
	ctx := context.Background()

	u, err := s.GetUserByEmail(ctx, "DEMO@detetive.local")
	if err != nil {
		t.Fatalf("demo user missing: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(DemoPassword)); err != nil {
		t.Fatalf("demo password does not match hash")
	}

	accounts, _ := s.ListAccounts(ctx, DemoUserID, false)
	defaults := 0
	for _, a := range accounts {
		if a.IsDefault {
			defaults++
		}
	}
	if len(accounts) != 2 || defaults != 1 {
		t.Fatalf("expected 2 accounts with one default, got %d accounts, %d defaults", len(accounts), defaults)
	}

	bills, _ := s.ListBills(ctx, DemoUserID, "")
	if len(bills) != 1 {
		t.Fatalf("expected card purchases aggregated into one bill, got %d", len(bills))
	}
	if bills[0].Amount.Cents != 18990+9630 {
		t.Errorf("bill amount = %d, want %d", bills[0].Amount.Cents, 18990+9630)
	}
	if bills[0].Reference != "2025-03" {
		t.Errorf("bill reference = %s, want 2025-03", bills[0].Reference)
	}
}

func TestFixturesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures.yaml")
	content := `users:
  - id: u1
    email: ana@example.com
    name: Ana
    password: segredo123
accounts:
  - id: a1
    user_id: u1
    name: Carteira
    type: cash
    balance: "10,50"
transactions:
  - user_id: u1
    account_id: a1
    type: expense
    amount: "2.25"
    description: Café
    date: "2025-03-01"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromFixtures(path, seedTime)
	if err != nil {
		t.Fatalf("NewFromFixtures: %v", err)
	}
	a, err := s.GetAccount(context.Background(), "u1", "a1")
	if err != nil || a.Balance.Cents != 1050 || a.Currency != "BRL" {
		t.Fatalf("unexpected account %+v err=%v", a, err)
	}
	txs, _ := s.ListTransactions(context.Background(), "u1", ports.TransactionFilter{})
	if len(txs) != 1 || txs[0].Date.String() != "2025-03-01" {
		t.Fatalf("unexpected transactions %+v", txs)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("accounts:\n  - user_id: u1\n    name: X\n    type: gold\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFixtures(bad, seedTime); !errors.Is(err, core.ErrInvalidEnum) {
		t.Fatalf("expected invalid enum error, got %v", err)
	}
}

func TestSingleDefaultAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	first, _ := s.CreateAccount(ctx, core.Account{UserID: "u", Name: "A", Type: core.Checking, Currency: "BRL", IsDefault: true, Active: true})
	other, _ := s.CreateAccount(ctx, core.Account{UserID: "v", Name: "V", Type: core.Checking, Currency: "BRL", IsDefault: true, Active: true})
	second, _ := s.CreateAccount(ctx, core.Account{UserID: "u", Name: "B", Type: core.Savings, Currency: "BRL", IsDefault: true, Active: true})

	got, _ := s.GetAccount(ctx, "u", first.ID)
	if got.IsDefault {
		t.Error("previous default should be cleared")
	}
	if got, _ := s.GetAccount(ctx, "u", second.ID); !got.IsDefault {
		t.Error("new account should be default")
	}
	if got, _ := s.GetAccount(ctx, "v", other.ID); !got.IsDefault {
		t.Error("other users' defaults must not change")
	}

	if err := s.DeleteAccount(ctx, "u", second.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetAccount(ctx, "u", second.ID); got.IsDefault || got.Active {
		t.Errorf("deleted account should be inactive and not default: %+v", got)
	}
	if err := s.DeleteAccount(ctx, "u", second.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
	active, _ := s.ListAccounts(ctx, "u", false)
	all, _ := s.ListAccounts(ctx, "u", true)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("active=%d all=%d", len(active), len(all))
	}
}

func TestOwnershipScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	b, _ := s.CreateBudget(ctx, core.Budget{UserID: "u", Name: "B", Amount: core.Cents(100), Period: core.Monthly, Active: true})
	if _, err := s.GetBudget(ctx, "intruder", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found for another user, got %v", err)
	}
	if _, err := s.UpdateBudget(ctx, core.Budget{ID: b.ID, UserID: "intruder"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found on foreign update, got %v", err)
	}
	if err := s.DeleteBudget(ctx, "intruder", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found on foreign delete, got %v", err)
	}
}

func TestCategoryNameConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, err := s.CreateCategory(ctx, core.Category{UserID: "u", Name: "Lazer", Kind: core.ExpenseCategory, Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{UserID: "u", Name: " lazer ", Kind: core.ExpenseCategory, Active: true}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{UserID: "v", Name: "Lazer", Kind: core.ExpenseCategory, Active: true}); err != nil {
		t.Fatalf("other user may reuse the name: %v", err)
	}
	if err := s.DeleteCategory(ctx, "u", c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{UserID: "u", Name: "Lazer", Kind: core.ExpenseCategory, Active: true}); err != nil {
		t.Fatalf("name should be free after soft delete: %v", err)
	}
}

func TestNotificationsDedupe(t *testing.T) {
	ctx := context.Background()
	s := New()
	n := core.Notification{UserID: "u", Type: core.LowBalance, Severity: core.SeverityWarning, DedupeKey: "k1", Active: true}

	first, created, err := s.CreateNotification(ctx, n)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}
	again, created, _ := s.CreateNotification(ctx, n)
	if created || again.ID != first.ID {
		t.Fatalf("duplicate key should return the stored notification")
	}

	if err := s.DeleteNotification(ctx, "u", first.ID); err != nil {
		t.Fatal(err)
	}
	if _, created, _ := s.CreateNotification(ctx, n); created {
		t.Fatal("deleted notification must not be recreated for the same key")
	}

	s.CreateNotification(ctx, core.Notification{UserID: "u", DedupeKey: "k2", Active: true})
	s.CreateNotification(ctx, core.Notification{UserID: "u", DedupeKey: "k3", Active: true})
	unread, _ := s.ListNotifications(ctx, "u", true)
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(unread))
	}
	count, _ := s.MarkAllNotificationsRead(ctx, "u")
	if count != 2 {
		t.Errorf("marked %d, want 2", count)
	}
	unread, _ = s.ListNotifications(ctx, "u", true)
	if len(unread) != 0 {
		t.Errorf("expected no unread after mark all")
	}
}

func TestUpsertBillByReference(t *testing.T) {
	ctx := context.Background()
	s := New()
	b1, _ := s.UpsertBill(ctx, core.Bill{UserID: "u", CardID: "c", Reference: "2025-03", Amount: core.Cents(100), Status: core.BillOpen})
	b2, _ := s.UpsertBill(ctx, core.Bill{UserID: "u", CardID: "c", Reference: "2025-03", Amount: core.Cents(250), Status: core.BillOpen})
	if b1.ID != b2.ID {
		t.Fatalf("upsert should keep the bill id")
	}
	bills, _ := s.ListBills(ctx, "u", "c")
	if len(bills) != 1 || bills[0].Amount.Cents != 250 {
		t.Fatalf("unexpected bills %+v", bills)
	}
}

func TestMarkBillPaidIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	b, _ := s.UpsertBill(ctx, core.Bill{UserID: "u", CardID: "c", Reference: "2025-04", Amount: core.Cents(15000), Status: core.BillOpen})

	if _, err := s.MarkBillPaid(ctx, core.Bill{ID: b.ID, UserID: "other"}, core.Cents(1), seedTime); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign bill: got %v, want not found", err)
	}
	paid, err := s.MarkBillPaid(ctx, b, core.Cents(15000), seedTime)
	if err != nil {
		t.Fatalf("MarkBillPaid: %v", err)
	}
	if !paid.IsPaid() || paid.PaidAmount.Cents != 15000 {
		t.Fatalf("unexpected bill %+v", paid)
	}
	if _, err := s.MarkBillPaid(ctx, b, core.Cents(15000), seedTime); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("double payment: got %v, want conflict", err)
	}
}

func TestUpdateAccountKeepsBalance(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.CreateAccount(ctx, core.Account{UserID: "u", Name: "Corrente", Type: core.Checking, Balance: core.Cents(100000), Active: true})
	if _, err := s.AdjustBalance(ctx, "u", a.ID, core.Cents(-30000)); err != nil {
		t.Fatal(err)
	}
	a.Name = "Conta principal"
	updated, err := s.UpdateAccount(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetAccount(ctx, "u", a.ID)
	if got.Balance.Cents != 70000 || updated.Balance.Cents != 70000 {
		t.Errorf("balance = %d (returned %d), want 70000", got.Balance.Cents, updated.Balance.Cents)
	}
}
