package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"detetive/internal/core"
	"detetive/internal/ports"
)

// Transactions

const transactionColumns = `id, user_id, account_id, destination_account_id, card_id, category_id, type,
	amount_cents, description, notes, date, active, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                   core.Transaction
		account, dest, card sql.NullString
		category            sql.NullString
		date                dbDate
		created, updated    dbTime
	)
	err := row.Scan(&t.ID, &t.UserID, &account, &dest, &card, &category, &t.Type,
		&t.Amount.Cents, &t.Description, &t.Notes, &date, &t.Active, &created, &updated)
	if err != nil {
		return core.Transaction{}, err
	}
	t.AccountID, t.DestinationAccountID = account.String, dest.String
	t.CardID, t.CategoryID = card.String, category.String
	t.Date = date.Date
	t.CreatedAt, t.UpdatedAt = created.Time, updated.Time
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if !f.IncludeInactive {
		where = append(where, "active = ?")
		args = append(args, true)
	}
	if f.AccountID != "" {
		where = append(where, "(account_id = ? OR destination_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CardID != "" {
		where = append(where, "card_id = ?")
		args = append(args, f.CardID)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, r.dateArg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, r.dateArg(f.To))
	}

	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC, id`
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := scanTransaction(r.queryRow(ctx, r.db,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", mapError(err))
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	r.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	_, err := r.exec(ctx, r.db, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, nullString(t.AccountID), nullString(t.DestinationAccountID), nullString(t.CardID),
		nullString(t.CategoryID), string(t.Type), t.Amount.Cents, t.Description, t.Notes, r.dateArg(t.Date),
		t.Active, r.timeArg(t.CreatedAt), r.timeArg(t.UpdatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", mapError(err))
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	cur, err := r.GetTransaction(ctx, t.UserID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = cur.CreatedAt
	r.stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	_, err = r.exec(ctx, r.db, `UPDATE transactions SET account_id = ?, destination_account_id = ?, card_id = ?,
		category_id = ?, type = ?, amount_cents = ?, description = ?, notes = ?, date = ?, active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nullString(t.AccountID), nullString(t.DestinationAccountID), nullString(t.CardID), nullString(t.CategoryID),
		string(t.Type), t.Amount.Cents, t.Description, t.Notes, r.dateArg(t.Date), t.Active, r.timeArg(t.UpdatedAt),
		t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", mapError(err))
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db,
		`UPDATE transactions SET active = ?, updated_at = ? WHERE id = ? AND user_id = ? AND active = ?`,
		false, r.timeArg(r.now()), id, userID, true)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// Cards

const cardColumns = `id, user_id, name, brand, limit_cents, closing_day, due_day, last_four, active, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (core.CreditCard, error) {
	var (
		c                core.CreditCard
		created, updated dbTime
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Brand, &c.Limit.Cents, &c.ClosingDay, &c.DueDay,
		&c.LastFour, &c.Active, &created, &updated)
	if err != nil {
		return core.CreditCard{}, err
	}
	c.CreatedAt, c.UpdatedAt = created.Time, updated.Time
	return c, nil
}

func (r *Repository) ListCards(ctx context.Context, userID string, includeInactive bool) ([]core.CreditCard, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE user_id = ?`
	args := []any{userID}
	if !includeInactive {
		q += ` AND active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY created_at, id`
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	var out []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCard(ctx context.Context, userID, id string) (core.CreditCard, error) {
	c, err := scanCard(r.queryRow(ctx, r.db, `SELECT `+cardColumns+` FROM cards WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("get card: %w", mapError(err))
	}
	return c, nil
}

func (r *Repository) CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	r.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err := r.exec(ctx, r.db, `INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Brand), c.Limit.Cents, c.ClosingDay, c.DueDay, c.LastFour, c.Active,
		r.timeArg(c.CreatedAt), r.timeArg(c.UpdatedAt))
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("insert card: %w", mapError(err))
	}
	return c, nil
}

func (r *Repository) UpdateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	cur, err := r.GetCard(ctx, c.UserID, c.ID)
	if err != nil {
		return core.CreditCard{}, err
	}
	c.CreatedAt = cur.CreatedAt
	r.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err = r.exec(ctx, r.db, `UPDATE cards SET name = ?, brand = ?, limit_cents = ?, closing_day = ?, due_day = ?,
		last_four = ?, active = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Brand), c.Limit.Cents, c.ClosingDay, c.DueDay, c.LastFour, c.Active,
		r.timeArg(c.UpdatedAt), c.ID, c.UserID)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("update card: %w", mapError(err))
	}
	return c, nil
}

func (r *Repository) DeleteCard(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db,
		`UPDATE cards SET active = ?, updated_at = ? WHERE id = ? AND user_id = ? AND active = ?`,
		false, r.timeArg(r.now()), id, userID, true)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// Bills

const billColumns = `id, user_id, card_id, reference, period_start, closing_date, due_date, amount_cents,
	paid_cents, status, paid_at, created_at, updated_at`

func scanBill(row interface{ Scan(...any) error }) (core.Bill, error) {
	var (
		b                      core.Bill
		start, closing, due    dbDate
		paid, created, updated dbTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.CardID, &b.Reference, &start, &closing, &due, &b.Amount.Cents,
		&b.PaidAmount.Cents, &b.Status, &paid, &created, &updated)
	if err != nil {
		return core.Bill{}, err
	}
	b.PeriodStart, b.ClosingDate, b.DueDate = start.Date, closing.Date, due.Date
	b.PaidAt = paid.ptr()
	b.CreatedAt, b.UpdatedAt = created.Time, updated.Time
	return b, nil
}

func (r *Repository) ListBills(ctx context.Context, userID, cardID string) ([]core.Bill, error) {
	q := `SELECT ` + billColumns + ` FROM bills WHERE user_id = ?`
	args := []any{userID}
	if cardID != "" {
		q += ` AND card_id = ?`
		args = append(args, cardID)
	}
	q += ` ORDER BY reference DESC, card_id`
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) GetBill(ctx context.Context, userID, id string) (core.Bill, error) {
	b, err := scanBill(r.queryRow(ctx, r.db, `SELECT `+billColumns+` FROM bills WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", mapError(err))
	}
	return b, nil
}

func (r *Repository) UpsertBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	id := b.ID
	r.stamp(&id, &b.CreatedAt, &b.UpdatedAt)
	_, err := r.exec(ctx, r.db, `INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (card_id, reference) DO UPDATE SET
			period_start = excluded.period_start, closing_date = excluded.closing_date,
			due_date = excluded.due_date, amount_cents = excluded.amount_cents,
			paid_cents = excluded.paid_cents, status = excluded.status, paid_at = excluded.paid_at, updated_at = excluded.updated_at`,
		id, b.UserID, b.CardID, b.Reference, r.dateArg(b.PeriodStart), r.dateArg(b.ClosingDate), r.dateArg(b.DueDate),
		b.Amount.Cents, b.PaidAmount.Cents, string(b.Status), r.optTimeArg(b.PaidAt), r.timeArg(b.CreatedAt), r.timeArg(b.UpdatedAt))
	if err != nil {
		return core.Bill{}, fmt.Errorf("upsert bill: %w", mapError(err))
	}
	stored, err := scanBill(r.queryRow(ctx, r.db,
		`SELECT `+billColumns+` FROM bills WHERE card_id = ? AND reference = ? AND user_id = ?`,
		b.CardID, b.Reference, b.UserID))
	if err != nil {
		return core.Bill{}, fmt.Errorf("reload bill: %w", mapError(err))
	}
	return stored, nil
}

func (r *Repository) MarkBillPaid(ctx context.Context, b core.Bill, payment core.Money, paidAt time.Time) (core.Bill, error) {
	res, err := r.exec(ctx, r.db, `UPDATE bills SET paid_cents = paid_cents + ?, status = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status <> ? AND amount_cents = ? AND paid_cents = ?`,
		payment.Cents, string(core.BillPaid), r.timeArg(paidAt), r.timeArg(r.now()),
		b.ID, b.UserID, string(core.BillPaid), b.Amount.Cents, b.PaidAmount.Cents)
	if err != nil {
		return core.Bill{}, fmt.Errorf("mark bill paid: %w", mapError(err))
	}
	if err := affected(res); err != nil {
		return core.Bill{}, fmt.Errorf("bill %s changed before payment: %w", b.Reference, core.ErrConflict)
	}
	return r.GetBill(ctx, b.UserID, b.ID)
}
