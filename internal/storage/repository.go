// Package storage is the relational backend. One Repository serves every
// domain store over database/sql, either on a local sqlite file (modernc) or
// on postgres (pgx stdlib).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"detetive/internal/core"
	"detetive/internal/ports"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// timestampLayout keeps sqlite TEXT timestamps lexically sortable.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) dsn(target string) string {
	if d == SQLite && !strings.HasPrefix(target, "file:") {
		return "file:" + target + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return target
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var (
	_ ports.UserStore         = (*Repository)(nil)
	_ ports.AccountStore      = (*Repository)(nil)
	_ ports.CategoryStore     = (*Repository)(nil)
	_ ports.TransactionStore  = (*Repository)(nil)
	_ ports.CardStore         = (*Repository)(nil)
	_ ports.BudgetStore       = (*Repository)(nil)
	_ ports.NotificationStore = (*Repository)(nil)
	_ ports.Pinger            = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the sqlite database at
// dbPath and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to databaseURL and migrates the schema.
func NewPostgresRepository(databaseURL string) (*Repository, error) {
	return open(Postgres, databaseURL)
}

func open(d Dialect, target string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), d.dsn(target))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if d == SQLite {
		// One writer avoids SQLITE_BUSY between concurrent requests.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, target); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("Relational store ready", "dialect", string(d))
	return &Repository{db: db, dialect: d, now: time.Now}, nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $n for postgres.
func (r *Repository) rebind(q string) string {
	if r.dialect != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, r.rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, q execer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, r.rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, q execer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, r.rebind(query), args...)
}

// inTx runs fn in a transaction, rolling back on error.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Argument encoders. sqlite stores dates and timestamps as TEXT, postgres
// uses native DATE and TIMESTAMPTZ columns.

func (r *Repository) timeArg(t time.Time) any {
	if r.dialect == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(timestampLayout)
}

func (r *Repository) optTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return r.timeArg(*t)
}

func (r *Repository) dateArg(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	if r.dialect == Postgres {
		return d.Time
	}
	return d.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dbTime scans TEXT or native timestamps.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("scan timestamp: unsupported type %T", src)
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan timestamp %q: %w", s, err)
	}
	t.Time, t.Valid = parsed.UTC(), true
	return nil
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// dbDate scans TEXT or native dates.
type dbDate struct {
	Date core.Date
}

func (d *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Date = core.Date{}
		return nil
	case time.Time:
		d.Date = core.DateOf(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}

func (d *dbDate) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	parsed, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", s, err)
	}
	d.Date = parsed
	return nil
}

// mapError turns driver errors into domain sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.ConstraintName)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", core.ErrConflict, liteErr.Error())
		}
	}
	return err
}

// affected reports ErrNotFound when the statement touched no row.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) stamp(id *string, created, updated *time.Time) {
	now := r.now().UTC()
	if *id == "" {
		*id = newID()
	}
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
