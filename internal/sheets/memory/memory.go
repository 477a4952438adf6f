package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"detetive/internal/sheets"
)

// Exporter keeps exported rows in memory. It stands in for the spreadsheet
// when no Google credentials are configured.
type Exporter struct {
	mu    sync.Mutex
	order []string
	rows  map[string]sheets.Row
}

var _ sheets.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: map[string]sheets.Row{}}
}

// Upsert stores the row and returns a synthetic row reference.
func (e *Exporter) Upsert(_ context.Context, row sheets.Row) (string, error) {
	if row.TransactionID == "" {
		return "", errors.New("row without transaction id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[row.TransactionID]; !ok {
		e.order = append(e.order, row.TransactionID)
	}
	e.rows[row.TransactionID] = row
	return fmt.Sprintf("mem:%d", e.indexOf(row.TransactionID)+1), nil
}

func (e *Exporter) MarkDeleted(_ context.Context, transactionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	row, ok := e.rows[transactionID]
	if !ok {
		return nil
	}
	row.Status = sheets.StatusDeleted
	e.rows[transactionID] = row
	return nil
}

// Rows returns the exported rows in first-written order.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sheets.Row, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.rows[id])
	}
	return out
}

func (e *Exporter) indexOf(id string) int {
	for i, v := range e.order {
		if v == id {
			return i
		}
	}
	return -1
}
