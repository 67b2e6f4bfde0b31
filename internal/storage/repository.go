package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
	"spendlens/internal/log"

	_ "modernc.org/sqlite"
)

const expenseColumns = "id, user_id, category, amount, date, description, notes"

const insertExpenseSQL = `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

const nowSQL = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := NewSQLiteRepositoryWithDB(db, logger)
	repo.logger.Info("SQLite repository ready", "path", dbPath, "schema_version", version)
	return repo, nil
}

// NewSQLiteRepositoryWithDB wraps an already migrated database handle.
func NewSQLiteRepositoryWithDB(db *sql.DB, logger *log.Logger) *SQLiteRepository {
	if logger == nil {
		logger = log.Discard()
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.RawExpense) (core.RawExpense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, err := r.db.ExecContext(ctx, insertExpenseSQL, expenseArgs(e)...); err != nil {
		return core.RawExpense{}, fmt.Errorf("insert expense: %w", err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, e.ID,
		log.FieldUserID, e.UserID,
		log.FieldCategory, e.Category)
	return e, nil
}

// ImportExpenses inserts records in one transaction. Records without an ID
// get a fresh one.
func (r *SQLiteRepository) ImportExpenses(ctx context.Context, records []core.RawExpense) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertExpenseSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, expenseArgs(rec)...); err != nil {
			return 0, fmt.Errorf("import record %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	r.logger.InfoContext(ctx, "Imported expenses", log.FieldCount, len(records))
	return len(records), nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.RawExpense) (core.RawExpense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET category = ?, amount = ?, date = ?, description = ?, notes = ?, updated_at = `+nowSQL+` WHERE id = ?`,
		e.Category, sqlAmount(e.Amount), sqlDate(e.Date), e.Description, e.Notes, e.ID)
	if err != nil {
		return core.RawExpense{}, fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.RawExpense{}, fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	if n == 0 {
		return core.RawExpense{}, fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.RawExpense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RawExpense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RawExpense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

// DeleteExpense removes an expense and returns what was stored.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) (core.RawExpense, error) {
	row := r.db.QueryRowContext(ctx, `DELETE FROM expenses WHERE id = ? RETURNING `+expenseColumns, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RawExpense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RawExpense{}, fmt.Errorf("delete expense %s: %w", id, err)
	}
	return e, nil
}

// ListExpenses returns a user's expenses in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.RawExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.RawExpense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// SaveInsights replaces the user's insight set.
func (r *SQLiteRepository) SaveInsights(ctx context.Context, userID string, insights []core.Insight) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save insights: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM insights WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear insights: %w", err)
	}
	for i, in := range insights {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO insights (id, user_id, position, text, type, generated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, userID, i, in.Text, string(in.Type), in.GeneratedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert insight: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insights: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListInsights(ctx context.Context, userID string) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, text, type, generated_at FROM insights WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := make([]core.Insight, 0)
	for rows.Next() {
		var (
			in          core.Insight
			kind, stamp string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.Text, &kind, &stamp); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Type = core.InsightType(kind)
		if in.GeneratedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parse insight timestamp %q: %w", stamp, err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.RawExpense, error) {
	var (
		e        core.RawExpense
		category sql.NullString
		amount   any
		date     sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &category, &amount, &date, &e.Description, &e.Notes); err != nil {
		return core.RawExpense{}, err
	}
	e.Category = category.String
	if b, ok := amount.([]byte); ok {
		amount = string(b)
	}
	e.Amount = amount
	if date.Valid {
		e.Date = date.String
	}
	return e, nil
}

func expenseArgs(e core.RawExpense) []any {
	return []any{e.ID, e.UserID, e.Category, sqlAmount(e.Amount), sqlDate(e.Date), e.Description, e.Notes}
}

// sqlAmount keeps numbers numeric and everything else as text so that
// malformed amounts survive storage unchanged.
func sqlAmount(v any) any {
	switch a := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return a.InexactFloat64()
	case json.Number:
		if f, err := a.Float64(); err == nil {
			return f
		}
		return a.String()
	case float64, float32, int, int8, int16, int32, int64, uint8, uint16, uint32, string:
		return a
	default:
		return fmt.Sprint(a)
	}
}

func sqlDate(v any) any {
	switch d := v.(type) {
	case nil:
		return nil
	case string:
		return d
	case core.Date:
		if d.IsZero() {
			return nil
		}
		return d.String()
	case time.Time:
		if d.IsZero() {
			return nil
		}
		return d.Format(time.RFC3339)
	default:
		return fmt.Sprint(d)
	}
}
