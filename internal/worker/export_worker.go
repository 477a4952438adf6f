package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"detetive/internal/amqp"
	"detetive/internal/core"
	"detetive/internal/ports"
	"detetive/internal/sheets"
)

// ExportWorker exports transactions to the spreadsheet as AMQP messages arrive.
type ExportWorker struct {
	users        ports.UserStore
	transactions ports.TransactionStore
	accounts     ports.AccountStore
	categories   ports.CategoryStore
	cards        ports.CardStore
	exporter     sheets.TransactionExporter
}

// Stores groups the read-only stores the worker resolves names from.
type Stores struct {
	Users        ports.UserStore
	Transactions ports.TransactionStore
	Accounts     ports.AccountStore
	Categories   ports.CategoryStore
	Cards        ports.CardStore
}

func NewExportWorker(stores Stores, exporter sheets.TransactionExporter) *ExportWorker {
	return &ExportWorker{
		users:        stores.Users,
		transactions: stores.Transactions,
		accounts:     stores.Accounts,
		categories:   stores.Categories,
		cards:        stores.Cards,
		exporter:     exporter,
	}
}

// HandleExportMessage processes a single transaction export message from AMQP.
// A transaction that no longer exists is a permanent failure and is not
// requeued.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.TransactionExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"transaction_id", msg.TransactionID,
		"action", string(msg.Action))

	if msg.Action == amqp.ActionDeleted {
		if err := w.exporter.MarkDeleted(ctx, msg.TransactionID); err != nil {
			return fmt.Errorf("mark transaction deleted: %w", err)
		}
		return nil
	}

	tx, err := w.transactions.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("transaction %s: %w", msg.TransactionID, amqp.ErrPermanent)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.export(ctx, tx)
}

// ExportUser writes every transaction of the user, deleted ones included.
// It recovers the sheet after missed messages or worker downtime.
func (w *ExportWorker) ExportUser(ctx context.Context, userID string) (int, error) {
	txs, err := w.transactions.ListTransactions(ctx, userID, ports.TransactionFilter{IncludeInactive: true})
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	exported := 0
	for _, tx := range txs {
		if err := w.export(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "transaction_id", tx.ID, "error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

// StartupExport exports every user's transactions at worker startup.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	ids, err := w.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users for startup export: %w", err)
	}

	total := 0
	for _, id := range ids {
		n, err := w.ExportUser(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Startup export failed for user", "user_id", id, "error", err)
			continue
		}
		total += n
	}

	slog.InfoContext(ctx, "Startup export completed", "users", len(ids), "transactions", total)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, tx core.Transaction) error {
	ref, err := w.exporter.Upsert(ctx, sheets.NewRow(tx, w.names(ctx, tx)))
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// names resolves display names; lookup failures leave the name blank.
func (w *ExportWorker) names(ctx context.Context, tx core.Transaction) sheets.Names {
	var n sheets.Names
	if tx.CategoryID != "" && w.categories != nil {
		if c, err := w.categories.GetCategory(ctx, tx.UserID, tx.CategoryID); err == nil {
			n.Category = c.Name
		} else {
			n.Category = core.UnknownCategoryName
		}
	}
	if tx.AccountID != "" && w.accounts != nil {
		if a, err := w.accounts.GetAccount(ctx, tx.UserID, tx.AccountID); err == nil {
			n.Account = a.Name
		}
	}
	if tx.CardID != "" && w.cards != nil {
		if c, err := w.cards.GetCard(ctx, tx.UserID, tx.CardID); err == nil {
			n.Card = c.Name
		}
	}
	return n
}
