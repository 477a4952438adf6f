package core

import (
	"regexp"
	"strings"
	"time"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Cash       AccountType = "cash"
	Investment AccountType = "investment"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
	Payment  TransactionType = "payment"
)

const (
	IncomeCategory  CategoryKind = "income"
	ExpenseCategory CategoryKind = "expense"
)

const (
	Visa       CardBrand = "visa"
	Mastercard CardBrand = "mastercard"
	Elo        CardBrand = "elo"
	Amex       CardBrand = "amex"
	Hipercard  CardBrand = "hipercard"
	OtherBrand CardBrand = "other"
)

const (
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
	Custom  BudgetPeriod = "custom"
)

const DefaultCurrency = "BRL"

const (
	maxNameLen        = 80
	maxDescriptionLen = 200
	maxNotesLen       = 1000
)

type (
	AccountType     string
	TransactionType string
	CategoryKind    string
	CardBrand       string
	BudgetPeriod    string

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Account struct {
		ID             string      `json:"id"`
		UserID         string      `json:"-"`
		Name           string      `json:"name"`
		Type           AccountType `json:"type"`
		Balance        Money       `json:"balance"`
		MinimumBalance Money       `json:"minimum_balance"`
		Currency       string      `json:"currency"`
		IsDefault      bool        `json:"is_default"`
		Active         bool        `json:"active"`
		CreatedAt      time.Time   `json:"created_at"`
		UpdatedAt      time.Time   `json:"updated_at"`
	}

	Category struct {
		ID        string       `json:"id"`
		UserID    string       `json:"-"`
		Name      string       `json:"name"`
		Kind      CategoryKind `json:"kind"`
		Color     string       `json:"color,omitempty"`
		Icon      string       `json:"icon,omitempty"`
		Active    bool         `json:"active"`
		CreatedAt time.Time    `json:"created_at"`
		UpdatedAt time.Time    `json:"updated_at"`
	}

	Transaction struct {
		ID                   string          `json:"id"`
		UserID               string          `json:"-"`
		AccountID            string          `json:"account_id,omitempty"`
		DestinationAccountID string          `json:"destination_account_id,omitempty"`
		CardID               string          `json:"card_id,omitempty"`
		CategoryID           string          `json:"category_id,omitempty"`
		Type                 TransactionType `json:"type"`
		Amount               Money           `json:"amount"`
		Description          string          `json:"description"`
		Notes                string          `json:"notes,omitempty"`
		Date                 Date            `json:"date"`
		Active               bool            `json:"active"`
		CreatedAt            time.Time       `json:"created_at"`
		UpdatedAt            time.Time       `json:"updated_at"`
	}

	CreditCard struct {
		ID         string    `json:"id"`
		UserID     string    `json:"-"`
		Name       string    `json:"name"`
		Brand      CardBrand `json:"brand"`
		Limit      Money     `json:"limit"`
		ClosingDay int       `json:"closing_day"`
		DueDay     int       `json:"due_day"`
		LastFour   string    `json:"last_four,omitempty"`
		Active     bool      `json:"active"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	Budget struct {
		ID          string       `json:"id"`
		UserID      string       `json:"-"`
		Name        string       `json:"name"`
		Amount      Money        `json:"amount"`
		Period      BudgetPeriod `json:"period"`
		StartDate   Date         `json:"start_date"`
		EndDate     Date         `json:"end_date"`
		CategoryIDs []string     `json:"category_ids"`
		Active      bool         `json:"active"`
		CreatedAt   time.Time    `json:"created_at"`
		UpdatedAt   time.Time    `json:"updated_at"`
	}
)

var (
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	colorRe    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	lastFourRe = regexp.MustCompile(`^[0-9]{4}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Cash, Investment:
		return true
	}
	return false
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer, Payment:
		return true
	}
	return false
}

func (k CategoryKind) IsValid() bool {
	return k == IncomeCategory || k == ExpenseCategory
}

func (b CardBrand) IsValid() bool {
	switch b {
	case Visa, Mastercard, Elo, Amex, Hipercard, OtherBrand:
		return true
	}
	return false
}

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case Weekly, Monthly, Yearly, Custom:
		return true
	}
	return false
}

func validateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid(field, ErrEmptyName)
	}
	if len(name) > maxNameLen {
		return invalid(field, ErrTooLong)
	}
	return nil
}

func (u User) Validate() error {
	if !emailRe.MatchString(strings.TrimSpace(u.Email)) {
		return invalid("email", ErrInvalidEmail)
	}
	return validateName("name", u.Name)
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return invalid("password", ErrWeakPassword)
	}
	return nil
}

func (a Account) Validate() error {
	if err := validateName("name", a.Name); err != nil {
		return err
	}
	if !a.Type.IsValid() {
		return invalid("type", ErrInvalidEnum)
	}
	if err := a.MinimumBalance.ValidateNonNegative(); err != nil {
		return invalid("minimum_balance", err)
	}
	if !currencyRe.MatchString(a.Currency) {
		return invalid("currency", ErrInvalidCurrency)
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateName("name", c.Name); err != nil {
		return err
	}
	if !c.Kind.IsValid() {
		return invalid("kind", ErrInvalidEnum)
	}
	if c.Color != "" && !colorRe.MatchString(c.Color) {
		return invalid("color", ErrInvalidColor)
	}
	if len(c.Icon) > 40 {
		return invalid("icon", ErrTooLong)
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return invalid("type", ErrInvalidEnum)
	}
	if err := t.Amount.ValidatePositive(); err != nil {
		return invalid("amount", err)
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if len(t.Description) > maxDescriptionLen {
		return invalid("description", ErrTooLong)
	}
	if len(t.Notes) > maxNotesLen {
		return invalid("notes", ErrTooLong)
	}

	switch t.Type {
	case Income:
		if t.AccountID == "" {
			return invalid("account_id", ErrMissingReference)
		}
		if t.CardID != "" {
			return invalid("card_id", ErrInvalidEnum)
		}
	case Expense:
		if (t.AccountID == "") == (t.CardID == "") {
			return invalid("account_id", ErrMissingReference)
		}
	case Transfer:
		if t.AccountID == "" {
			return invalid("account_id", ErrMissingReference)
		}
		if t.DestinationAccountID == "" {
			return invalid("destination_account_id", ErrMissingReference)
		}
		if t.AccountID == t.DestinationAccountID {
			return invalid("destination_account_id", ErrSameAccount)
		}
	case Payment:
		if t.AccountID == "" {
			return invalid("account_id", ErrMissingReference)
		}
	}
	if t.Type != Transfer && t.DestinationAccountID != "" {
		return invalid("destination_account_id", ErrInvalidEnum)
	}
	return nil
}

// BalanceEffects returns the balance change each account receives from t.
// Card purchases do not touch account balances.
func (t Transaction) BalanceEffects() map[string]Money {
	effects := map[string]Money{}
	if !t.Active {
		return effects
	}
	switch t.Type {
	case Income:
		effects[t.AccountID] = t.Amount
	case Expense:
		if t.AccountID != "" {
			effects[t.AccountID] = Money{Cents: -t.Amount.Cents}
		}
	case Payment:
		effects[t.AccountID] = Money{Cents: -t.Amount.Cents}
	case Transfer:
		effects[t.AccountID] = Money{Cents: -t.Amount.Cents}
		effects[t.DestinationAccountID] = t.Amount
	}
	return effects
}

func (c CreditCard) Validate() error {
	if err := validateName("name", c.Name); err != nil {
		return err
	}
	if !c.Brand.IsValid() {
		return invalid("brand", ErrInvalidEnum)
	}
	if err := c.Limit.ValidateNonNegative(); err != nil {
		return invalid("limit", err)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return invalid("closing_day", ErrInvalidDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return invalid("due_day", ErrInvalidDay)
	}
	if c.LastFour != "" && !lastFourRe.MatchString(c.LastFour) {
		return invalid("last_four", ErrInvalidEnum)
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateName("name", b.Name); err != nil {
		return err
	}
	if err := b.Amount.ValidatePositive(); err != nil {
		return invalid("amount", err)
	}
	if !b.Period.IsValid() {
		return invalid("period", ErrInvalidEnum)
	}
	if err := b.StartDate.Validate(); err != nil {
		return invalid("start_date", err)
	}
	if b.Period == Custom && b.EndDate.IsZero() {
		return invalid("end_date", ErrInvalidDate)
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		return invalid("end_date", ErrInvalidDate)
	}
	return nil
}

// Covers reports whether the budget tracks the given category. An empty
// category set tracks every expense category.
func (b Budget) Covers(categoryID string) bool {
	if len(b.CategoryIDs) == 0 {
		return true
	}
	for _, id := range b.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}
