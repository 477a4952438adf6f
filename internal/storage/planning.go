package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"detetive/internal/core"
)

// Budgets

const budgetColumns = `id, user_id, name, amount_cents, period, start_date, end_date, active, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b                core.Budget
		start, end       dbDate
		created, updated dbTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount.Cents, &b.Period, &start, &end, &b.Active, &created, &updated)
	if err != nil {
		return core.Budget{}, err
	}
	b.StartDate, b.EndDate = start.Date, end.Date
	b.CreatedAt, b.UpdatedAt = created.Time, updated.Time
	return b, nil
}

// budgetCategories loads the category sets of the user's budgets.
func (r *Repository) budgetCategories(ctx context.Context, userID string) (map[string][]string, error) {
	rows, err := r.query(ctx, r.db, `SELECT bc.budget_id, bc.category_id FROM budget_categories bc
		JOIN budgets b ON b.id = bc.budget_id WHERE b.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var budgetID, categoryID string
		if err := rows.Scan(&budgetID, &categoryID); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		out[budgetID] = append(out[budgetID], categoryID)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out, rows.Err()
}

func (r *Repository) ListBudgets(ctx context.Context, userID string, includeInactive bool) ([]core.Budget, error) {
	q := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	args := []any{userID}
	if !includeInactive {
		q += ` AND active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY created_at, id`
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	cats, err := r.budgetCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CategoryIDs = cats[out[i].ID]
	}
	return out, nil
}

func (r *Repository) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	b, err := scanBudget(r.queryRow(ctx, r.db, `SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", mapError(err))
	}
	rows, err := r.query(ctx, r.db, `SELECT category_id FROM budget_categories WHERE budget_id = ? ORDER BY category_id`, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return core.Budget{}, fmt.Errorf("scan budget category: %w", err)
		}
		b.CategoryIDs = append(b.CategoryIDs, c)
	}
	return b, rows.Err()
}

func (r *Repository) replaceBudgetCategories(ctx context.Context, tx *sql.Tx, b core.Budget) error {
	if _, err := r.exec(ctx, tx, `DELETE FROM budget_categories WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear budget categories: %w", err)
	}
	seen := map[string]bool{}
	for _, c := range b.CategoryIDs {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if _, err := r.exec(ctx, tx, `INSERT INTO budget_categories (budget_id, category_id) VALUES (?, ?)`, b.ID, c); err != nil {
			return fmt.Errorf("insert budget category: %w", err)
		}
	}
	return nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	r.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := r.exec(ctx, tx, `INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.UserID, b.Name, b.Amount.Cents, string(b.Period), r.dateArg(b.StartDate), r.dateArg(b.EndDate),
			b.Active, r.timeArg(b.CreatedAt), r.timeArg(b.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert budget: %w", mapError(err))
		}
		return r.replaceBudgetCategories(ctx, tx, b)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	cur, err := r.GetBudget(ctx, b.UserID, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = cur.CreatedAt
	r.stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := r.exec(ctx, tx, `UPDATE budgets SET name = ?, amount_cents = ?, period = ?, start_date = ?, end_date = ?,
			active = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			b.Name, b.Amount.Cents, string(b.Period), r.dateArg(b.StartDate), r.dateArg(b.EndDate), b.Active,
			r.timeArg(b.UpdatedAt), b.ID, b.UserID)
		if err != nil {
			return fmt.Errorf("update budget: %w", mapError(err))
		}
		return r.replaceBudgetCategories(ctx, tx, b)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db,
		`UPDATE budgets SET active = ?, updated_at = ? WHERE id = ? AND user_id = ? AND active = ?`,
		false, r.timeArg(r.now()), id, userID, true)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// Notifications

const notificationColumns = `id, user_id, type, severity, title, message, entity_id, dedupe_key, read, active, created_at`

func scanNotification(row interface{ Scan(...any) error }) (core.Notification, error) {
	var (
		n       core.Notification
		created dbTime
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Severity, &n.Title, &n.Message, &n.EntityID, &n.DedupeKey,
		&n.Read, &n.Active, &created)
	if err != nil {
		return core.Notification{}, err
	}
	n.CreatedAt = created.Time
	return n, nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]core.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ? AND active = ?`
	args := []any{userID, true}
	if unreadOnly {
		q += ` AND read = ?`
		args = append(args, false)
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, bool, error) {
	var updated time.Time
	r.stamp(&n.ID, &n.CreatedAt, &updated)
	if n.DedupeKey == "" {
		n.DedupeKey = n.ID
	}
	res, err := r.exec(ctx, r.db, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (user_id, dedupe_key) DO NOTHING`,
		n.ID, n.UserID, string(n.Type), string(n.Severity), n.Title, n.Message, n.EntityID, n.DedupeKey,
		n.Read, n.Active, r.timeArg(n.CreatedAt))
	if err != nil {
		return core.Notification{}, false, fmt.Errorf("insert notification: %w", mapError(err))
	}
	if affected(res) == nil {
		return n, true, nil
	}
	existing, err := scanNotification(r.queryRow(ctx, r.db,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? AND dedupe_key = ?`, n.UserID, n.DedupeKey))
	if err != nil {
		return core.Notification{}, false, fmt.Errorf("load existing notification: %w", mapError(err))
	}
	return existing, false, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db, `UPDATE notifications SET read = ? WHERE id = ? AND user_id = ? AND active = ?`,
		true, id, userID, true)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res, err := r.exec(ctx, r.db, `UPDATE notifications SET read = ? WHERE user_id = ? AND active = ? AND read = ?`,
		true, userID, true, false)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *Repository) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db, `UPDATE notifications SET active = ? WHERE id = ? AND user_id = ? AND active = ?`,
		false, id, userID, true)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
