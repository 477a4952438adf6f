// Package seed fills a backend with realistic fake households for local
// development and demos.
package seed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"detetive/internal/core"
	"detetive/internal/services"
)

// Options controls how much data is generated.
type Options struct {
	Users                int
	Months               int
	TransactionsPerMonth int
	// Seed makes the output reproducible; zero picks a random seed.
	Seed     int64
	Password string
	Now      time.Time
}

// Report counts what was created.
type Report struct {
	Emails       []string
	Accounts     int
	Categories   int
	Cards        int
	Transactions int
	Budgets      int
}

var (
	expenseCategories = []string{"Alimentação", "Transporte", "Moradia", "Lazer", "Saúde", "Educação"}
	incomeCategories  = []string{"Salário", "Freelance"}
	cardNames         = []string{"Cartão Roxo", "Cartão Laranja", "Cartão Black", "Cartão Azul"}
	cardBrands        = []core.CardBrand{core.Visa, core.Mastercard, core.Elo, core.Amex, core.Hipercard}
	merchants         = []string{"Mercado", "Padaria", "Farmácia", "Posto", "Restaurante", "Cinema", "Livraria", "Uber"}
)

// Generator creates users and their records through the services, so every
// invariant the API enforces also holds for seeded data.
type Generator struct {
	svc   *services.Services
	faker *gofakeit.Faker
	opts  Options
}

func NewGenerator(svc *services.Services, opts Options) *Generator {
	if opts.Users <= 0 {
		opts.Users = 1
	}
	if opts.Months <= 0 {
		opts.Months = 3
	}
	if opts.TransactionsPerMonth <= 0 {
		opts.TransactionsPerMonth = 20
	}
	if opts.Password == "" {
		opts.Password = "detetive123"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	return &Generator{svc: svc, faker: gofakeit.New(opts.Seed), opts: opts}
}

// Run creates opts.Users households.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	var rep Report
	for i := 0; i < g.opts.Users; i++ {
		if err := g.household(ctx, i, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (g *Generator) household(ctx context.Context, i int, rep *Report) error {
	f := g.faker
	email := fmt.Sprintf("%s.%d@detetive.test", strings.ToLower(f.Username()), i+1)
	session, err := g.svc.Auth.Register(ctx, email, f.Name(), g.opts.Password)
	if err != nil {
		return fmt.Errorf("register %s: %w", email, err)
	}
	uid := session.User.ID
	rep.Emails = append(rep.Emails, email)

	checking, err := g.svc.Accounts.Create(ctx, uid, core.Account{
		Name:           "Conta Corrente",
		Type:           core.Checking,
		Balance:        g.money(1000, 8000),
		MinimumBalance: core.Cents(50000),
	})
	if err != nil {
		return fmt.Errorf("create checking account: %w", err)
	}
	savings, err := g.svc.Accounts.Create(ctx, uid, core.Account{
		Name:    "Poupança",
		Type:    core.Savings,
		Balance: g.money(2000, 20000),
	})
	if err != nil {
		return fmt.Errorf("create savings account: %w", err)
	}
	rep.Accounts += 2

	var expenseIDs, incomeIDs []string
	for _, name := range expenseCategories {
		c, err := g.svc.Categories.Create(ctx, uid, core.Category{Name: name, Kind: core.ExpenseCategory, Color: f.HexColor()})
		if err != nil {
			return fmt.Errorf("create category %s: %w", name, err)
		}
		expenseIDs = append(expenseIDs, c.ID)
	}
	for _, name := range incomeCategories {
		c, err := g.svc.Categories.Create(ctx, uid, core.Category{Name: name, Kind: core.IncomeCategory, Color: f.HexColor()})
		if err != nil {
			return fmt.Errorf("create category %s: %w", name, err)
		}
		incomeIDs = append(incomeIDs, c.ID)
	}
	rep.Categories += len(expenseIDs) + len(incomeIDs)

	closing := f.Number(1, 28)
	card, err := g.svc.Cards.Create(ctx, uid, core.CreditCard{
		Name:       f.RandomString(cardNames),
		Brand:      cardBrands[f.Number(0, len(cardBrands)-1)],
		Limit:      core.Cents(int64(f.Number(20, 100)) * 10000),
		ClosingDay: closing,
		DueDay:     (closing+9)%28 + 1,
		LastFour:   f.Numerify("####"),
	})
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	rep.Cards++

	today := core.DateOf(g.opts.Now.UTC())
	first := core.NewDate(today.Year(), today.Month(), 1)
	start := core.Date{Time: first.AddDate(0, -(g.opts.Months - 1), 0)}

	for m := 0; m < g.opts.Months; m++ {
		month := core.Date{Time: start.AddDate(0, m, 0)}
		salaryDay := core.NewDate(month.Year(), month.Month(), 5)
		if !salaryDay.After(today) {
			if _, err := g.svc.Transactions.Create(ctx, uid, core.Transaction{
				Type:        core.Income,
				AccountID:   checking.ID,
				CategoryID:  incomeIDs[0],
				Amount:      g.money(4000, 9000),
				Description: "Salário",
				Date:        salaryDay,
			}); err != nil {
				return fmt.Errorf("create salary: %w", err)
			}
			rep.Transactions++
		}

		for n := 0; n < g.opts.TransactionsPerMonth; n++ {
			date := core.NewDate(month.Year(), month.Month(), f.Number(1, 28))
			if date.After(today) {
				continue
			}
			tx := core.Transaction{
				Type:        core.Expense,
				CategoryID:  expenseIDs[f.Number(0, len(expenseIDs)-1)],
				Amount:      g.money(5, 350),
				Description: f.RandomString(merchants),
				Date:        date,
			}
			if f.Bool() {
				tx.CardID = card.ID
			} else {
				tx.AccountID = checking.ID
			}
			if _, err := g.svc.Transactions.Create(ctx, uid, tx); err != nil {
				return fmt.Errorf("create expense: %w", err)
			}
			rep.Transactions++
		}

		transferDay := core.NewDate(month.Year(), month.Month(), 10)
		if !transferDay.After(today) {
			if _, err := g.svc.Transactions.Create(ctx, uid, core.Transaction{
				Type:                 core.Transfer,
				AccountID:            checking.ID,
				DestinationAccountID: savings.ID,
				Amount:               g.money(100, 800),
				Description:          "Reserva",
				Date:                 transferDay,
			}); err != nil {
				return fmt.Errorf("create transfer: %w", err)
			}
			rep.Transactions++
		}
	}

	budgets := []core.Budget{
		{Name: "Gastos do mês", Amount: g.money(3000, 6000), Period: core.Monthly, StartDate: start},
		{Name: "Mercado", Amount: g.money(600, 1500), Period: core.Monthly, StartDate: start, CategoryIDs: expenseIDs[:1]},
	}
	for _, b := range budgets {
		if _, err := g.svc.Budgets.Create(ctx, uid, b); err != nil {
			return fmt.Errorf("create budget %s: %w", b.Name, err)
		}
		rep.Budgets++
	}
	return nil
}

// money draws an amount in reais with cent precision.
func (g *Generator) money(min, max float64) core.Money {
	return core.Cents(int64(math.Round(g.faker.Price(min, max) * 100)))
}
