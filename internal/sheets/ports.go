package sheets

import (
	"context"
	"time"

	"detetive/internal/core"
)

// Row statuses written to the sheet.
const (
	StatusActive  = "ativa"
	StatusDeleted = "excluida"
)

// Header is the first row of the export sheet.
var Header = []any{"ID", "Data", "Tipo", "Descrição", "Categoria", "Conta", "Cartão", "Valor", "Situação", "Atualizado em"}

// Row is one exported transaction.
type Row struct {
	TransactionID string
	Date          string
	Type          string
	Description   string
	Category      string
	Account       string
	Card          string
	Amount        string
	Status        string
	UpdatedAt     string
}

// Names resolves the IDs a transaction points at into display names.
type Names struct {
	Category string
	Account  string
	Card     string
}

// NewRow builds the sheet row for a transaction. Expenses and payments are
// written as negative amounts so the sheet sums to the net flow.
func NewRow(tx core.Transaction, names Names) Row {
	amount := tx.Amount
	if tx.Type == core.Expense || tx.Type == core.Payment {
		amount = core.Cents(-amount.Cents)
	}
	status := StatusActive
	if !tx.Active {
		status = StatusDeleted
	}
	return Row{
		TransactionID: tx.ID,
		Date:          tx.Date.String(),
		Type:          string(tx.Type),
		Description:   tx.Description,
		Category:      names.Category,
		Account:       names.Account,
		Card:          names.Card,
		Amount:        amount.String(),
		Status:        status,
		UpdatedAt:     tx.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Values returns the row in column order.
func (r Row) Values() []any {
	return []any{r.TransactionID, r.Date, r.Type, r.Description, r.Category, r.Account, r.Card, r.Amount, r.Status, r.UpdatedAt}
}

// Ports for outbound adapters.
type (
	// TransactionExporter writes transactions to an external spreadsheet.
	TransactionExporter interface {
		// Upsert writes the row, replacing an existing row with the same
		// transaction ID. It returns a reference to the written range.
		Upsert(ctx context.Context, row Row) (rowRef string, err error)
		// MarkDeleted flags the row of a transaction as deleted. Missing rows
		// are not an error.
		MarkDeleted(ctx context.Context, transactionID string) error
	}
)
