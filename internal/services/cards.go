package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"detetive/internal/core"
)

// CardService manages credit cards and their bills.
type CardService struct {
	*base
	transactions *TransactionService
}

// BillPayment is the result of paying a bill.
type BillPayment struct {
	Bill        core.Bill        `json:"bill"`
	Transaction core.Transaction `json:"transaction"`
}

func (s *CardService) List(ctx context.Context, userID string, includeInactive bool) ([]core.CreditCard, error) {
	return s.stores().Cards.ListCards(ctx, userID, includeInactive)
}

func (s *CardService) Get(ctx context.Context, userID, id string) (core.CreditCard, error) {
	return s.stores().Cards.GetCard(ctx, userID, id)
}

func (s *CardService) Create(ctx context.Context, userID string, c core.CreditCard) (core.CreditCard, error) {
	c.ID = ""
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	c.Active = true
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	created, err := s.stores().Cards.CreateCard(ctx, c)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create card: %w", err)
	}
	s.invalidate(userID)
	return created, nil
}

// Update changes the card. Existing bills keep the cycle they were built
// with; new purchases use the new closing and due days.
func (s *CardService) Update(ctx context.Context, userID, id string, patch core.CreditCard) (core.CreditCard, error) {
	cur, err := s.activeCard(ctx, userID, id)
	if err != nil {
		return core.CreditCard{}, err
	}
	cur.Name = strings.TrimSpace(patch.Name)
	cur.Brand = patch.Brand
	cur.Limit = patch.Limit
	cur.ClosingDay = patch.ClosingDay
	cur.DueDay = patch.DueDay
	cur.LastFour = patch.LastFour
	if err := cur.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	updated, err := s.stores().Cards.UpdateCard(ctx, cur)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("update card: %w", err)
	}
	s.invalidate(userID)
	return updated, nil
}

func (s *CardService) Delete(ctx context.Context, userID, id string) error {
	if err := s.stores().Cards.DeleteCard(ctx, userID, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// Bills lists the card's bills with their effective status for today.
func (s *CardService) Bills(ctx context.Context, userID, cardID string) ([]core.Bill, error) {
	if _, err := s.stores().Cards.GetCard(ctx, userID, cardID); err != nil {
		return nil, err
	}
	bills, err := s.stores().Cards.ListBills(ctx, userID, cardID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	today := core.DateOf(s.now())
	for i := range bills {
		bills[i].Status = bills[i].StatusAt(today)
	}
	return bills, nil
}

// PayBill settles what is still owed on the bill from an account, the
// default one when accountID is empty. The payment is recorded as a payment
// transaction debiting the account. A bill reopened by later purchases is
// charged only for the difference.
func (s *CardService) PayBill(ctx context.Context, userID, cardID, billID, accountID string) (BillPayment, error) {
	card, err := s.stores().Cards.GetCard(ctx, userID, cardID)
	if err != nil {
		return BillPayment{}, err
	}
	bill, err := s.stores().Cards.GetBill(ctx, userID, billID)
	if err != nil {
		return BillPayment{}, err
	}
	if bill.CardID != card.ID {
		return BillPayment{}, core.ErrNotFound
	}
	if bill.IsPaid() {
		return BillPayment{}, fmt.Errorf("bill %s already paid: %w", bill.Reference, core.ErrConflict)
	}
	due := bill.Outstanding()
	if due.Cents <= 0 {
		return BillPayment{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}

	if accountID == "" {
		def, err := (&AccountService{base: s.base}).Default(ctx, userID)
		if err != nil {
			return BillPayment{}, &core.ValidationError{Field: "account_id", Err: core.ErrMissingReference}
		}
		accountID = def.ID
	}

	now := s.now()
	payment, err := s.transactions.create(ctx, userID, core.Transaction{
		AccountID:   accountID,
		CardID:      card.ID,
		Type:        core.Payment,
		Amount:      due,
		Description: fmt.Sprintf("Pagamento fatura %s %s", card.Name, bill.Reference),
		Date:        core.DateOf(now),
	})
	if err != nil {
		return BillPayment{}, err
	}

	paid, err := s.stores().Cards.MarkBillPaid(ctx, bill, due, now)
	if err != nil {
		s.transactions.revert(ctx, userID, payment)
		if errors.Is(err, core.ErrConflict) {
			return BillPayment{}, fmt.Errorf("bill %s changed during payment: %w", bill.Reference, core.ErrConflict)
		}
		return BillPayment{}, fmt.Errorf("mark bill paid: %w", err)
	}
	s.invalidate(userID)
	s.deps.Logger.InfoContext(ctx, "Bill paid",
		"card_id", card.ID, "bill_id", paid.ID, "account_id", accountID, "amount_cents", due.Cents)
	return BillPayment{Bill: paid, Transaction: payment}, nil
}

func (s *CardService) activeCard(ctx context.Context, userID, id string) (core.CreditCard, error) {
	c, err := s.stores().Cards.GetCard(ctx, userID, id)
	if err != nil {
		return core.CreditCard{}, err
	}
	if !c.Active {
		return core.CreditCard{}, core.ErrNotFound
	}
	return c, nil
}
