package memory

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"detetive/internal/core"
)

// Demo credentials seeded by DefaultFixtures.
const (
	DemoUserID   = "00000000-0000-4000-8000-000000000001"
	DemoEmail    = "demo@detetive.local"
	DemoPassword = "detetive123"
)

// Fixtures is the seed data of the mock backend. Amounts are decimal strings;
// a transaction either names a Date or a DaysAgo offset from the seed time.
type Fixtures struct {
	Users        []UserFixture        `yaml:"users"`
	Accounts     []AccountFixture     `yaml:"accounts"`
	Categories   []CategoryFixture    `yaml:"categories"`
	Cards        []CardFixture        `yaml:"cards"`
	Transactions []TransactionFixture `yaml:"transactions"`
	Budgets      []BudgetFixture      `yaml:"budgets"`
}

type UserFixture struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type AccountFixture struct {
	ID             string `yaml:"id"`
	UserID         string `yaml:"user_id"`
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	Balance        string `yaml:"balance"`
	MinimumBalance string `yaml:"minimum_balance"`
	Currency       string `yaml:"currency"`
	IsDefault      bool   `yaml:"default"`
}

type CategoryFixture struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Color  string `yaml:"color"`
	Icon   string `yaml:"icon"`
}

type CardFixture struct {
	ID         string `yaml:"id"`
	UserID     string `yaml:"user_id"`
	Name       string `yaml:"name"`
	Brand      string `yaml:"brand"`
	Limit      string `yaml:"limit"`
	ClosingDay int    `yaml:"closing_day"`
	DueDay     int    `yaml:"due_day"`
	LastFour   string `yaml:"last_four"`
}

type TransactionFixture struct {
	ID                   string `yaml:"id"`
	UserID               string `yaml:"user_id"`
	AccountID            string `yaml:"account_id"`
	DestinationAccountID string `yaml:"destination_account_id"`
	CardID               string `yaml:"card_id"`
	CategoryID           string `yaml:"category_id"`
	Type                 string `yaml:"type"`
	Amount               string `yaml:"amount"`
	Description          string `yaml:"description"`
	Date                 string `yaml:"date"`
	DaysAgo              int    `yaml:"days_ago"`
}

type BudgetFixture struct {
	ID          string   `yaml:"id"`
	UserID      string   `yaml:"user_id"`
	Name        string   `yaml:"name"`
	Amount      string   `yaml:"amount"`
	Period      string   `yaml:"period"`
	StartDate   string   `yaml:"start_date"`
	EndDate     string   `yaml:"end_date"`
	CategoryIDs []string `yaml:"category_ids"`
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

// NewFromFixtures builds a store seeded from path, or from DefaultFixtures
// when path is empty.
func NewFromFixtures(path string, now time.Time) (*Store, error) {
	f := DefaultFixtures()
	if path != "" {
		loaded, err := LoadFixtures(path)
		if err != nil {
			return nil, err
		}
		f = loaded
	}
	s := New()
	if err := s.Seed(f, now); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultFixtures is a small household: one user, two accounts, a card with
// purchases in the current cycle and a monthly budget.
func DefaultFixtures() Fixtures {
	const (
		checking = "00000000-0000-4000-8000-0000000000a1"
		savings  = "00000000-0000-4000-8000-0000000000a2"
		card     = "00000000-0000-4000-8000-0000000000c1"
		food     = "00000000-0000-4000-8000-0000000000f1"
		home     = "00000000-0000-4000-8000-0000000000f2"
		leisure  = "00000000-0000-4000-8000-0000000000f3"
		salary   = "00000000-0000-4000-8000-0000000000f4"
	)
	return Fixtures{
		Users: []UserFixture{{ID: DemoUserID, Email: DemoEmail, Name: "Demo", Password: DemoPassword}},
		Accounts: []AccountFixture{
			{ID: checking, UserID: DemoUserID, Name: "Conta Corrente", Type: "checking", Balance: "3250.40", MinimumBalance: "500", IsDefault: true},
			{ID: savings, UserID: DemoUserID, Name: "Poupança", Type: "savings", Balance: "12000"},
		},
		Categories: []CategoryFixture{
			{ID: food, UserID: DemoUserID, Name: "Alimentação", Kind: "expense", Color: "#E4572E"},
			{ID: home, UserID: DemoUserID, Name: "Moradia", Kind: "expense", Color: "#17BEBB"},
			{ID: leisure, UserID: DemoUserID, Name: "Lazer", Kind: "expense", Color: "#FFC914"},
			{ID: salary, UserID: DemoUserID, Name: "Salário", Kind: "income", Color: "#76B041"},
		},
		Cards: []CardFixture{
			{ID: card, UserID: DemoUserID, Name: "Cartão Roxo", Brand: "mastercard", Limit: "2500", ClosingDay: 25, DueDay: 5, LastFour: "4242"},
		},
		Transactions: []TransactionFixture{
			{UserID: DemoUserID, AccountID: checking, CategoryID: salary, Type: "income", Amount: "6500", Description: "Salário", DaysAgo: 2},
			{UserID: DemoUserID, AccountID: checking, CategoryID: home, Type: "expense", Amount: "1800", Description: "Aluguel", DaysAgo: 1},
			{UserID: DemoUserID, AccountID: checking, CategoryID: food, Type: "expense", Amount: "312.75", Description: "Mercado", DaysAgo: 0},
			{UserID: DemoUserID, CardID: card, CategoryID: leisure, Type: "expense", Amount: "189.90", Description: "Cinema e jantar", DaysAgo: 3},
			{UserID: DemoUserID, CardID: card, CategoryID: food, Type: "expense", Amount: "96.30", Description: "Delivery", DaysAgo: 0},
			{UserID: DemoUserID, AccountID: checking, DestinationAccountID: savings, Type: "transfer", Amount: "500", Description: "Reserva", DaysAgo: 1},
		},
		Budgets: []BudgetFixture{
			{UserID: DemoUserID, Name: "Mercado e restaurantes", Amount: "1200", Period: "monthly", CategoryIDs: []string{food}},
			{UserID: DemoUserID, Name: "Gastos do mês", Amount: "4000", Period: "monthly"},
		},
	}
}

// Seed validates and inserts f. Card purchases are aggregated into bills.
// Account balances are taken as given.
func (s *Store) Seed(f Fixtures, now time.Time) error {
	today := core.DateOf(now.UTC())
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, uf := range f.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(uf.Password), bcrypt.MinCost)
		if err != nil {
			return fmt.Errorf("hash fixture password: %w", err)
		}
		u := core.User{ID: uf.ID, Email: strings.ToLower(strings.TrimSpace(uf.Email)), Name: uf.Name, PasswordHash: string(hash)}
		if err := u.Validate(); err != nil {
			return fmt.Errorf("fixture user %q: %w", uf.Email, err)
		}
		var updated time.Time
		s.stamp(&u.ID, &u.CreatedAt, &updated)
		s.users[u.ID] = u
	}

	for i, af := range f.Accounts {
		balance, err := parseFixtureMoney(af.Balance)
		if err != nil {
			return fmt.Errorf("fixture account %q balance: %w", af.Name, err)
		}
		minimum, err := parseFixtureMoney(af.MinimumBalance)
		if err != nil {
			return fmt.Errorf("fixture account %q minimum: %w", af.Name, err)
		}
		currency := af.Currency
		if currency == "" {
			currency = core.DefaultCurrency
		}
		a := core.Account{
			ID: af.ID, UserID: af.UserID, Name: af.Name, Type: core.AccountType(af.Type),
			Balance: balance, MinimumBalance: minimum, Currency: currency,
			IsDefault: af.IsDefault, Active: true,
			CreatedAt: now.UTC().Add(time.Duration(i) * time.Millisecond),
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("fixture account %q: %w", af.Name, err)
		}
		s.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		s.putAccount(a)
	}

	for _, cf := range f.Categories {
		c := core.Category{ID: cf.ID, UserID: cf.UserID, Name: cf.Name, Kind: core.CategoryKind(cf.Kind), Color: cf.Color, Icon: cf.Icon, Active: true}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("fixture category %q: %w", cf.Name, err)
		}
		if s.nameTaken(c) {
			return fmt.Errorf("fixture category %q: %w", cf.Name, core.ErrConflict)
		}
		s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		s.categories[c.ID] = c
	}

	for _, cf := range f.Cards {
		limit, err := parseFixtureMoney(cf.Limit)
		if err != nil {
			return fmt.Errorf("fixture card %q limit: %w", cf.Name, err)
		}
		c := core.CreditCard{
			ID: cf.ID, UserID: cf.UserID, Name: cf.Name, Brand: core.CardBrand(cf.Brand), Limit: limit,
			ClosingDay: cf.ClosingDay, DueDay: cf.DueDay, LastFour: cf.LastFour, Active: true,
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("fixture card %q: %w", cf.Name, err)
		}
		s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		s.cards[c.ID] = c
	}

	bills := map[string]core.Bill{}
	for _, tf := range f.Transactions {
		amount, err := core.ParseMoney(tf.Amount)
		if err != nil {
			return fmt.Errorf("fixture transaction %q amount: %w", tf.Description, err)
		}
		date := today.AddDays(-tf.DaysAgo)
		if tf.Date != "" {
			if date, err = core.ParseDate(tf.Date); err != nil {
				return fmt.Errorf("fixture transaction %q date: %w", tf.Description, err)
			}
		}
		t := core.Transaction{
			ID: tf.ID, UserID: tf.UserID, AccountID: tf.AccountID, DestinationAccountID: tf.DestinationAccountID,
			CardID: tf.CardID, CategoryID: tf.CategoryID, Type: core.TransactionType(tf.Type),
			Amount: amount, Description: tf.Description, Date: date, Active: true,
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("fixture transaction %q: %w", tf.Description, err)
		}
		s.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		s.transactions[t.ID] = t

		if t.CardID == "" {
			continue
		}
		card, ok := s.cards[t.CardID]
		if !ok {
			return fmt.Errorf("fixture transaction %q: unknown card %s", tf.Description, t.CardID)
		}
		cycle := card.CycleFor(t.Date)
		key := card.ID + "|" + cycle.Reference
		b, ok := bills[key]
		if !ok {
			b = core.Bill{
				UserID: t.UserID, CardID: card.ID, Reference: cycle.Reference,
				PeriodStart: cycle.PeriodStart, ClosingDate: cycle.ClosingDate, DueDate: cycle.DueDate,
				Status: core.BillOpen,
			}
		}
		b.Amount = b.Amount.Add(t.Amount)
		bills[key] = b
	}
	for _, b := range bills {
		s.upsertBill(b)
	}

	for _, bf := range f.Budgets {
		amount, err := core.ParseMoney(bf.Amount)
		if err != nil {
			return fmt.Errorf("fixture budget %q amount: %w", bf.Name, err)
		}
		start := today.MonthStart()
		if bf.StartDate != "" {
			if start, err = core.ParseDate(bf.StartDate); err != nil {
				return fmt.Errorf("fixture budget %q start: %w", bf.Name, err)
			}
		}
		var end core.Date
		if bf.EndDate != "" {
			if end, err = core.ParseDate(bf.EndDate); err != nil {
				return fmt.Errorf("fixture budget %q end: %w", bf.Name, err)
			}
		}
		b := core.Budget{
			ID: bf.ID, UserID: bf.UserID, Name: bf.Name, Amount: amount, Period: core.BudgetPeriod(bf.Period),
			StartDate: start, EndDate: end, CategoryIDs: append([]string(nil), bf.CategoryIDs...), Active: true,
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("fixture budget %q: %w", bf.Name, err)
		}
		s.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		s.budgets[b.ID] = b
	}
	return nil
}

func parseFixtureMoney(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, nil
	}
	return core.ParseMoney(s)
}
