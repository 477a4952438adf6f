package core

import "time"

const (
	BillDue     NotificationType = "bill_due"
	CardLimit   NotificationType = "card_limit"
	LowBalance  NotificationType = "low_balance"
	BudgetLimit NotificationType = "budget_limit"
)

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type (
	NotificationType string
	Severity         string

	Notification struct {
		ID        string           `json:"id"`
		UserID    string           `json:"-"`
		Type      NotificationType `json:"type"`
		Severity  Severity         `json:"severity"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		EntityID  string           `json:"entity_id"`
		DedupeKey string           `json:"dedupe_key"`
		Read      bool             `json:"read"`
		Active    bool             `json:"active"`
		CreatedAt time.Time        `json:"created_at"`
	}
)

func (t NotificationType) IsValid() bool {
	switch t {
	case BillDue, CardLimit, LowBalance, BudgetLimit:
		return true
	}
	return false
}

// Rank orders severities, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}
