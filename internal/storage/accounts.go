package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"detetive/internal/core"
)

func newID() string { return uuid.NewString() }

// Users

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var updated time.Time
	r.stamp(&u.ID, &u.CreatedAt, &updated)
	_, err := r.exec(ctx, r.db,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, r.timeArg(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", mapError(err))
	}
	return u, nil
}

const userColumns = `id, email, name, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u       core.User
		created dbTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = created.Time
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", mapError(err))
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", mapError(err))
	}
	return u, nil
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.query(ctx, r.db, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Accounts

const accountColumns = `id, user_id, name, type, balance_cents, minimum_balance_cents, currency, is_default, active, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a                core.Account
		created, updated dbTime
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance.Cents, &a.MinimumBalance.Cents,
		&a.Currency, &a.IsDefault, &a.Active, &created, &updated)
	if err != nil {
		return core.Account{}, err
	}
	a.CreatedAt, a.UpdatedAt = created.Time, updated.Time
	return a, nil
}

func (r *Repository) ListAccounts(ctx context.Context, userID string, includeInactive bool) ([]core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	if !includeInactive {
		q += ` AND active = ?`
	}
	q += ` ORDER BY created_at, id`
	args := []any{userID}
	if !includeInactive {
		args = append(args, true)
	}
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) getAccount(ctx context.Context, q execer, userID, id string) (core.Account, error) {
	a, err := scanAccount(r.queryRow(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", mapError(err))
	}
	return a, nil
}

func (r *Repository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	return r.getAccount(ctx, r.db, userID, id)
}

// clearDefault drops the default flag from the user's other accounts.
func (r *Repository) clearDefault(ctx context.Context, tx *sql.Tx, a core.Account) error {
	if !a.IsDefault || !a.Active {
		return nil
	}
	_, err := r.exec(ctx, tx,
		`UPDATE accounts SET is_default = ?, updated_at = ? WHERE user_id = ? AND id <> ? AND is_default = ?`,
		false, r.timeArg(a.UpdatedAt), a.UserID, a.ID, true)
	if err != nil {
		return fmt.Errorf("clear default account: %w", err)
	}
	return nil
}

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	r.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if !a.Active {
		a.IsDefault = false
	}
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.clearDefault(ctx, tx, a); err != nil {
			return err
		}
		_, err := r.exec(ctx, tx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.Name, string(a.Type), a.Balance.Cents, a.MinimumBalance.Cents, a.Currency,
			a.IsDefault, a.Active, r.timeArg(a.CreatedAt), r.timeArg(a.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert account: %w", mapError(err))
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if !a.Active {
		a.IsDefault = false
	}
	var out core.Account
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := r.getAccount(ctx, tx, a.UserID, a.ID)
		if err != nil {
			return err
		}
		a.CreatedAt = cur.CreatedAt
		a.Balance = cur.Balance
		r.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err := r.clearDefault(ctx, tx, a); err != nil {
			return err
		}
		_, err = r.exec(ctx, tx, `UPDATE accounts SET name = ?, type = ?, minimum_balance_cents = ?,
			currency = ?, is_default = ?, active = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			a.Name, string(a.Type), a.MinimumBalance.Cents, a.Currency, a.IsDefault, a.Active,
			r.timeArg(a.UpdatedAt), a.ID, a.UserID)
		if err != nil {
			return fmt.Errorf("update account: %w", mapError(err))
		}
		out = a
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return out, nil
}

func (r *Repository) AdjustBalance(ctx context.Context, userID, id string, delta core.Money) (core.Account, error) {
	res, err := r.exec(ctx, r.db,
		`UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		delta.Cents, r.timeArg(r.now()), id, userID)
	if err != nil {
		return core.Account{}, fmt.Errorf("adjust balance: %w", err)
	}
	if err := affected(res); err != nil {
		return core.Account{}, fmt.Errorf("adjust balance: %w", err)
	}
	return r.GetAccount(ctx, userID, id)
}

func (r *Repository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db,
		`UPDATE accounts SET active = ?, is_default = ?, updated_at = ? WHERE id = ? AND user_id = ? AND active = ?`,
		false, false, r.timeArg(r.now()), id, userID, true)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Categories

const categoryColumns = `id, user_id, name, kind, color, icon, active, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c                core.Category
		created, updated dbTime
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.Color, &c.Icon, &c.Active, &created, &updated); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt, c.UpdatedAt = created.Time, updated.Time
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID string, includeInactive bool) ([]core.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?`
	args := []any{userID}
	if !includeInactive {
		q += ` AND active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY kind, lower(name)`
	rows, err := r.query(ctx, r.db, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	c, err := scanCategory(r.queryRow(ctx, r.db,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", mapError(err))
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	r.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err := r.exec(ctx, r.db, `INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, strings.TrimSpace(c.Name), string(c.Kind), c.Color, c.Icon, c.Active,
		r.timeArg(c.CreatedAt), r.timeArg(c.UpdatedAt))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", mapError(err))
	}
	c.Name = strings.TrimSpace(c.Name)
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	cur, err := r.GetCategory(ctx, c.UserID, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = cur.CreatedAt
	c.Name = strings.TrimSpace(c.Name)
	r.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	_, err = r.exec(ctx, r.db, `UPDATE categories SET name = ?, kind = ?, color = ?, icon = ?, active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Kind), c.Color, c.Icon, c.Active, r.timeArg(c.UpdatedAt), c.ID, c.UserID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", mapError(err))
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db,
		`UPDATE categories SET active = ?, updated_at = ? WHERE id = ? AND user_id = ? AND active = ?`,
		false, r.timeArg(r.now()), id, userID, true)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
