package core

import (
	"fmt"
	"time"
)

const (
	BillOpen    BillStatus = "open"
	BillClosed  BillStatus = "closed"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

type (
	BillStatus string

	// Bill aggregates the card charges of one billing cycle.
	Bill struct {
		ID          string     `json:"id"`
		UserID      string     `json:"-"`
		CardID      string     `json:"card_id"`
		Reference   string     `json:"reference"` // YYYY-MM of the closing date
		PeriodStart Date       `json:"period_start"`
		ClosingDate Date       `json:"closing_date"`
		DueDate     Date       `json:"due_date"`
		Amount      Money      `json:"amount"`
		PaidAmount  Money      `json:"paid_amount"`
		Status      BillStatus `json:"status"`
		PaidAt      *time.Time `json:"paid_at,omitempty"`
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
	}

	// BillCycle is the billing window a purchase date falls into.
	BillCycle struct {
		Reference   string
		PeriodStart Date
		ClosingDate Date
		DueDate     Date
	}
)

func (s BillStatus) IsValid() bool {
	switch s {
	case BillOpen, BillClosed, BillPaid:
		return true
	}
	return false
}

// StatusAt derives the effective status of the bill on the given day.
func (b Bill) StatusAt(today Date) BillStatus {
	switch {
	case b.Status == BillPaid:
		return BillPaid
	case today.After(b.DueDate):
		return BillOverdue
	case today.After(b.ClosingDate):
		return BillClosed
	default:
		return BillOpen
	}
}

// IsPaid reports whether the bill was settled.
func (b Bill) IsPaid() bool {
	return b.Status == BillPaid
}

// Outstanding is the part of the bill not covered by payments yet.
func (b Bill) Outstanding() Money {
	if b.PaidAmount.Cents >= b.Amount.Cents {
		return Money{}
	}
	return b.Amount.Sub(b.PaidAmount)
}

// CycleFor returns the billing cycle containing the purchase day d.
func (c CreditCard) CycleFor(d Date) BillCycle {
	closing := DayInMonth(d.Year(), d.Month(), c.ClosingDay)
	if d.After(closing) {
		next := d.MonthStart().AddDays(32)
		closing = DayInMonth(next.Year(), next.Month(), c.ClosingDay)
	}
	prevMonth := closing.MonthStart().AddDays(-1)
	prevClosing := DayInMonth(prevMonth.Year(), prevMonth.Month(), c.ClosingDay)

	due := DayInMonth(closing.Year(), closing.Month(), c.DueDay)
	if c.DueDay <= c.ClosingDay {
		next := closing.MonthStart().AddDays(32)
		due = DayInMonth(next.Year(), next.Month(), c.DueDay)
	}

	return BillCycle{
		Reference:   fmt.Sprintf("%04d-%02d", closing.Year(), closing.Month()),
		PeriodStart: prevClosing.AddDays(1),
		ClosingDate: closing,
		DueDate:     due,
	}
}
