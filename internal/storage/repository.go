package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stocktrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && !strings.Contains(dbPath, ":memory:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one.
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the underlying database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetOrCreateUser resolves a user by name, creating it on first use.
func (r *SQLiteRepository) GetOrCreateUser(ctx context.Context, name string) (core.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	var u core.User
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name FROM users WHERE name = ?`, name).Scan(&u.ID, &u.Name)
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetOrCreateMonth resolves the month row for (user, year, month). The
// UNIQUE(user_id, year, month) constraint makes concurrent callers
// converge on a single row.
func (r *SQLiteRepository) GetOrCreateMonth(ctx context.Context, userID int64, p core.Period) (core.Month, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO months (user_id, year, month) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, year, month) DO NOTHING`,
		userID, p.Year(), p.Month())
	if err != nil {
		return core.Month{}, fmt.Errorf("insert month: %w", err)
	}

	var m core.Month
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, year, month FROM months
		 WHERE user_id = ? AND year = ? AND month = ?`,
		userID, p.Year(), p.Month()).Scan(&m.ID, &m.UserID, &m.Year, &m.Month)
	if err != nil {
		return core.Month{}, fmt.Errorf("select month: %w", err)
	}
	return m, nil
}

// ListDays returns the month's days in calendar order.
func (r *SQLiteRepository) ListDays(ctx context.Context, monthID int64) ([]core.Day, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, month_id, date, photo, video FROM days
		 WHERE month_id = ? ORDER BY date`, monthID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []core.Day
	for rows.Next() {
		var d core.Day
		if err := rows.Scan(&d.ID, &d.MonthID, &d.Date, &d.Photo, &d.Video); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// CreateDays inserts the full calendar grid for a month in a single
// transaction: either every day is committed or none are.
func (r *SQLiteRepository) CreateDays(ctx context.Context, monthID int64, dates []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin days transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO days (month_id, date, photo, video) VALUES (?, ?, 0, 0)
		 ON CONFLICT(month_id, date) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare day insert: %w", err)
	}
	defer stmt.Close()

	for _, date := range dates {
		if _, err := stmt.ExecContext(ctx, monthID, date); err != nil {
			return fmt.Errorf("insert day %d: %w", date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit days: %w", err)
	}

	slog.DebugContext(ctx, "Materialized month days", "month_id", monthID, "count", len(dates))
	return nil
}

func (r *SQLiteRepository) GetDay(ctx context.Context, monthID int64, date int) (core.Day, error) {
	var d core.Day
	err := r.db.QueryRowContext(ctx,
		`SELECT id, month_id, date, photo, video FROM days
		 WHERE month_id = ? AND date = ?`, monthID, date).
		Scan(&d.ID, &d.MonthID, &d.Date, &d.Photo, &d.Video)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Day{}, core.ErrDayNotFound
	}
	if err != nil {
		return core.Day{}, fmt.Errorf("select day: %w", err)
	}
	return d, nil
}

// UpdateDayTotals overwrites the raw per-day photo/video totals. This
// is the direct month-grid input; stock counts accumulate instead.
func (r *SQLiteRepository) UpdateDayTotals(ctx context.Context, dayID int64, photo, video int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE days SET photo = ?, video = ? WHERE id = ?`, photo, video, dayID)
	if err != nil {
		return fmt.Errorf("update day totals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrDayNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateStock(ctx context.Context, userID int64, name, pseudoName string) (core.Stock, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO stocks (user_id, name, pseudo_name) VALUES (?, ?, ?)`,
		userID, name, pseudoName)
	if err != nil {
		return core.Stock{}, fmt.Errorf("insert stock: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Stock{}, fmt.Errorf("stock insert id: %w", err)
	}
	return core.Stock{ID: id, UserID: userID, Name: name, PseudoName: pseudoName}, nil
}

// StockNameInUse reports whether a canonical name is taken. With
// global=true the check spans all users, otherwise only the given one.
func (r *SQLiteRepository) StockNameInUse(ctx context.Context, userID int64, name string, global bool) (bool, error) {
	return r.stockFieldInUse(ctx, "name", userID, name, global)
}

// PseudoNameInUse is StockNameInUse for the display alias.
func (r *SQLiteRepository) PseudoNameInUse(ctx context.Context, userID int64, pseudoName string, global bool) (bool, error) {
	return r.stockFieldInUse(ctx, "pseudo_name", userID, pseudoName, global)
}

func (r *SQLiteRepository) stockFieldInUse(ctx context.Context, column string, userID int64, value string, global bool) (bool, error) {
	query := `SELECT COUNT(*) FROM stocks WHERE ` + column + ` = ?`
	args := []any{value}
	if !global {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check stock %s: %w", column, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetStockByName(ctx context.Context, userID int64, name string) (core.Stock, error) {
	var s core.Stock
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, pseudo_name FROM stocks
		 WHERE user_id = ? AND name = ?`, userID, name).
		Scan(&s.ID, &s.UserID, &s.Name, &s.PseudoName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Stock{}, core.ErrStockNotFound
	}
	if err != nil {
		return core.Stock{}, fmt.Errorf("select stock by name: %w", err)
	}
	return s, nil
}

// ListStocks returns the user's stocks in storage order (insertion
// order), which fixes the row order of the totals report.
func (r *SQLiteRepository) ListStocks(ctx context.Context, userID int64) ([]core.Stock, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, pseudo_name FROM stocks
		 WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []core.Stock
	for rows.Next() {
		var s core.Stock
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.PseudoName); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// AccumulateCount records activity for (stock, day). The upsert adds
// the deltas to any existing row, so repeating a submission doubles the
// stored totals instead of replacing them.
func (r *SQLiteRepository) AccumulateCount(ctx context.Context, stockID, dayID int64, photo, video int, income float64) (core.Count, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stock_counts (stock_id, day_id, photo, video, income, sync_status)
		 VALUES (?, ?, ?, ?, ?, 'pending')
		 ON CONFLICT(stock_id, day_id) DO UPDATE SET
		     photo  = photo + excluded.photo,
		     video  = video + excluded.video,
		     income = income + excluded.income,
		     sync_status = 'pending'`,
		stockID, dayID, photo, video, income)
	if err != nil {
		return core.Count{}, fmt.Errorf("accumulate count: %w", err)
	}

	return r.getCountByPair(ctx, stockID, dayID)
}

func (r *SQLiteRepository) getCountByPair(ctx context.Context, stockID, dayID int64) (core.Count, error) {
	var c core.Count
	err := r.db.QueryRowContext(ctx,
		`SELECT id, stock_id, day_id, photo, video, income, sync_status
		 FROM stock_counts WHERE stock_id = ? AND day_id = ?`, stockID, dayID).
		Scan(&c.ID, &c.StockID, &c.DayID, &c.Photo, &c.Video, &c.Income, &c.SyncStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Count{}, core.ErrCountNotFound
	}
	if err != nil {
		return core.Count{}, fmt.Errorf("select count: %w", err)
	}
	return c, nil
}

// ListCountsForDays returns the stock's counts for the given days,
// ordered by calendar date of the owning day.
func (r *SQLiteRepository) ListCountsForDays(ctx context.Context, stockID int64, dayIDs []int64) ([]core.Count, error) {
	if len(dayIDs) == 0 {
		return nil, nil
	}

	query := `SELECT c.id, c.stock_id, c.day_id, c.photo, c.video, c.income, c.sync_status
		 FROM stock_counts c
		 JOIN days d ON d.id = c.day_id
		 WHERE c.stock_id = ? AND c.day_id IN (` + placeholders(len(dayIDs)) + `)
		 ORDER BY d.date`
	args := make([]any, 0, len(dayIDs)+1)
	args = append(args, stockID)
	for _, id := range dayIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list counts: %w", err)
	}
	defer rows.Close()

	var counts []core.Count
	for rows.Next() {
		var c core.Count
		if err := rows.Scan(&c.ID, &c.StockID, &c.DayID, &c.Photo, &c.Video, &c.Income, &c.SyncStatus); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CreateZeroCounts inserts zero-valued counts for the given days in one
// transaction. Days that already have a count are left untouched, so
// callers can pass exactly the missing subset or the whole range.
// Zero fills are born synced; there is nothing to archive.
func (r *SQLiteRepository) CreateZeroCounts(ctx context.Context, stockID int64, dayIDs []int64) error {
	if len(dayIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin counts transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stock_counts (stock_id, day_id, photo, video, income, sync_status)
		 VALUES (?, ?, 0, 0, 0, 'synced')
		 ON CONFLICT(stock_id, day_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare count insert: %w", err)
	}
	defer stmt.Close()

	for _, dayID := range dayIDs {
		if _, err := stmt.ExecContext(ctx, stockID, dayID); err != nil {
			return fmt.Errorf("insert zero count for day %d: %w", dayID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit zero counts: %w", err)
	}
	return nil
}

const entrySelect = `
	SELECT c.id, u.name, s.name, m.year, m.month, d.date, c.photo, c.video, c.income
	FROM stock_counts c
	JOIN stocks s ON s.id = c.stock_id
	JOIN users  u ON u.id = s.user_id
	JOIN days   d ON d.id = c.day_id
	JOIN months m ON m.id = d.month_id`

// GetEntry returns the denormalized archive view of one count.
func (r *SQLiteRepository) GetEntry(ctx context.Context, countID int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, entrySelect+` WHERE c.id = ?`, countID)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrCountNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("select entry: %w", err)
	}
	return e, nil
}

// ListPendingEntries returns up to limit entries awaiting archive,
// oldest first. The worker drains these on startup.
func (r *SQLiteRepository) ListPendingEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		entrySelect+` WHERE c.sync_status = 'pending' ORDER BY c.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (core.Entry, error) {
	var (
		e           core.Entry
		year, month int
		date        int
	)
	if err := scan(&e.CountID, &e.User, &e.Stock, &year, &month, &date, &e.Photo, &e.Video, &e.Income); err != nil {
		return core.Entry{}, err
	}
	d, err := core.NewDate(year, month, date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("stored date out of range: %w", err)
	}
	e.Date = d
	return e, nil
}

func (r *SQLiteRepository) MarkCountSynced(ctx context.Context, countID int64) error {
	return r.setSyncStatus(ctx, countID, core.SyncSynced)
}

func (r *SQLiteRepository) MarkCountSyncError(ctx context.Context, countID int64) error {
	return r.setSyncStatus(ctx, countID, core.SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, countID int64, status core.SyncStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stock_counts SET sync_status = ? WHERE id = ?`, string(status), countID)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrCountNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
