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
	"time"

	"github.com/shopspring/decimal"

	"spendpoints/internal/core"
	applog "spendpoints/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row addressed by id does not exist or does
// not belong to the given user.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique name is already taken.
var ErrConflict = errors.New("already exists")

// ErrStaleLogin is returned by ApplyPoints when the user's last login moved
// since it was read.
var ErrStaleLogin = errors.New("last login changed concurrently")

// Fixed-width UTC timestamps sort correctly as text.
const (
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout      = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

// PointsChange is one signed point delta with the notifications it produces.
// HouseID is nil for users without a house.
type PointsChange struct {
	UserID        int64
	HouseID       *int64
	Delta         int
	Notifications []core.Notification
	// Login, when set, moves the user's last login in the same transaction.
	Login *LoginStamp
}

// LoginStamp replaces the last login Previous (zero for none) with At.
type LoginStamp struct {
	Previous time.Time
	At       time.Time
}

// PointsBalance holds the totals after a PointsChange was applied.
type PointsBalance struct {
	UserPoints  int
	HousePoints *int
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; one connection serializes point updates.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
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

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Houses

func (r *SQLiteRepository) CreateHouse(ctx context.Context, name string) (core.House, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO houses (name, points, created_at) VALUES (?, 0, ?)`,
		name, formatTime(time.Now()))
	if err != nil {
		return core.House{}, fmt.Errorf("create house: %w", mapConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.House{}, fmt.Errorf("create house: %w", err)
	}

	slog.InfoContext(ctx, "House created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldHouseID, id,
		"name", name)
	return core.House{ID: id, Name: name}, nil
}

const houseColumns = `
	SELECT h.id, h.name, h.points, COUNT(u.id)
	FROM houses h LEFT JOIN users u ON u.house_id = h.id`

func (r *SQLiteRepository) GetHouse(ctx context.Context, id int64) (core.House, error) {
	var h core.House
	err := r.db.QueryRowContext(ctx, houseColumns+` WHERE h.id = ? GROUP BY h.id`, id).
		Scan(&h.ID, &h.Name, &h.Points, &h.MemberCount)
	if err != nil {
		return core.House{}, fmt.Errorf("get house %d: %w", id, mapNoRows(err))
	}
	return h, nil
}

// HouseStandings lists every house, highest points first.
func (r *SQLiteRepository) HouseStandings(ctx context.Context) ([]core.House, error) {
	rows, err := r.db.QueryContext(ctx, houseColumns+` GROUP BY h.id ORDER BY h.points DESC, h.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	defer rows.Close()

	var houses []core.House
	for rows.Next() {
		var h core.House
		if err := rows.Scan(&h.ID, &h.Name, &h.Points, &h.MemberCount); err != nil {
			return nil, fmt.Errorf("scan house: %w", err)
		}
		houses = append(houses, h)
	}
	return houses, rows.Err()
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, username string, houseID *int64) (core.User, error) {
	now := time.Now().UTC()
	u := core.User{Username: strings.TrimSpace(username), HouseID: houseID, CreatedAt: now}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if houseID != nil {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM houses WHERE id = ?`, *houseID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("house %d: %w", *houseID, mapNoRows(err))
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, house_id, created_at) VALUES (?, ?, ?)`,
			u.Username, nullableID(houseID), formatTime(now))
		if err != nil {
			return mapConstraint(err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO points (user_id, count) VALUES (?, 0)`, u.ID)
		return err
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, u.ID,
		"username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u         core.User
		houseID   sql.NullInt64
		lastLogin sql.NullString
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.house_id, u.last_login, u.created_at, COALESCE(p.count, 0)
		FROM users u LEFT JOIN points p ON p.user_id = u.id
		WHERE u.id = ?`, id).
		Scan(&u.ID, &u.Username, &houseID, &lastLogin, &createdAt, &u.Points)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, mapNoRows(err))
	}
	if houseID.Valid {
		u.HouseID = &houseID.Int64
	}
	if lastLogin.Valid {
		if u.LastLogin, err = parseTime(lastLogin.String); err != nil {
			return core.User{}, fmt.Errorf("get user %d: last login: %w", id, err)
		}
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.User{}, fmt.Errorf("get user %d: created at: %w", id, err)
	}
	return u, nil
}

// TouchLogin stores at as the user's last login and returns the value it
// replaced. The previous login is zero for a user's first login.
func (r *SQLiteRepository) TouchLogin(ctx context.Context, userID int64, at time.Time) (time.Time, error) {
	var previous time.Time
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var last sql.NullString
		if err := tx.QueryRowContext(ctx, `SELECT last_login FROM users WHERE id = ?`, userID).Scan(&last); err != nil {
			return mapNoRows(err)
		}
		if last.Valid {
			t, err := parseTime(last.String)
			if err != nil {
				return fmt.Errorf("last login: %w", err)
			}
			previous = t
		}
		_, err := tx.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, formatTime(at), userID)
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("touch login for user %d: %w", userID, err)
	}
	return previous, nil
}

// Categories

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, limit_amount, limit_period, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Limit.Amount.String(), string(c.Limit.Period), formatTime(time.Now()))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapConstraint(err))
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.Expenditures = nil

	slog.InfoContext(ctx, "Category created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldCategoryID, c.ID,
		applog.FieldUserID, c.UserID,
		applog.FieldAmount, c.Limit.Amount.String(),
		applog.FieldPeriod, c.Limit.Period)
	return c, nil
}

// GetCategory loads a category owned by userID with all its expenditures.
func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, limit_amount, limit_period
		FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID))
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", categoryID, mapNoRows(err))
	}

	exps, err := r.listExpenditures(ctx, `WHERE category_id = ?`, categoryID)
	if err != nil {
		return core.Category{}, err
	}
	c.Expenditures = exps[categoryID]
	return c, nil
}

// ListCategories loads every category of userID with its expenditures.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, limit_amount, limit_period
		FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list categories: %w", err)
		}
		categories = append(categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	exps, err := r.listExpenditures(ctx,
		`WHERE category_id IN (SELECT id FROM categories WHERE user_id = ?)`, userID)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].Expenditures = exps[categories[i].ID]
	}
	return categories, nil
}

func (r *SQLiteRepository) UpdateCategoryLimit(ctx context.Context, userID, categoryID int64, limit core.SpendingLimit) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET limit_amount = ?, limit_period = ?
		WHERE id = ? AND user_id = ?`,
		limit.Amount.String(), string(limit.Period), categoryID, userID)
	if err != nil {
		return fmt.Errorf("update category limit: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("update category %d limit: %w", categoryID, err)
	}

	slog.InfoContext(ctx, "Category limit updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldCategoryID, categoryID,
		applog.FieldAmount, limit.Amount.String(),
		applog.FieldPeriod, limit.Period)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c      core.Category
		amount string
		period string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &amount, &period); err != nil {
		return core.Category{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Category{}, fmt.Errorf("category %d limit %q: %w", c.ID, amount, err)
	}
	c.Limit = core.SpendingLimit{Amount: d, Period: core.Period(period)}
	return c, nil
}

// Expenditures

func (r *SQLiteRepository) AddExpenditure(ctx context.Context, e core.Expenditure) (core.Expenditure, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenditures (category_id, amount, spent_on, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.CategoryID, e.Amount.String(), e.Date.Format(dateLayout), e.Description, formatTime(time.Now()))
	if err != nil {
		return core.Expenditure{}, fmt.Errorf("add expenditure: %w", mapConstraint(err))
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expenditure{}, fmt.Errorf("add expenditure: %w", err)
	}

	slog.InfoContext(ctx, "Expenditure saved to SQLite",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldExpenditureID, e.ID,
		applog.FieldCategoryID, e.CategoryID,
		applog.FieldAmount, e.Amount.String(),
		"date", e.Date.String())
	return e, nil
}

// DeleteExpenditure removes an expenditure that belongs to one of userID's
// categories.
func (r *SQLiteRepository) DeleteExpenditure(ctx context.Context, userID, expenditureID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM expenditures
		WHERE id = ? AND category_id IN (SELECT id FROM categories WHERE user_id = ?)`,
		expenditureID, userID)
	if err != nil {
		return fmt.Errorf("delete expenditure: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("delete expenditure %d: %w", expenditureID, err)
	}

	slog.InfoContext(ctx, "Expenditure deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldExpenditureID, expenditureID,
		applog.FieldUserID, userID)
	return nil
}

// listExpenditures returns the matching expenditures grouped by category,
// oldest first.
func (r *SQLiteRepository) listExpenditures(ctx context.Context, where string, args ...any) (map[int64][]core.Expenditure, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, amount, spent_on, description
		FROM expenditures `+where+` ORDER BY spent_on, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenditures: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]core.Expenditure)
	for rows.Next() {
		var (
			e       core.Expenditure
			amount  string
			spentOn string
		)
		if err := rows.Scan(&e.ID, &e.CategoryID, &amount, &spentOn, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expenditure: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("expenditure %d amount %q: %w", e.ID, amount, err)
		}
		if e.Date, err = core.ParseDate(spentOn); err != nil {
			return nil, fmt.Errorf("expenditure %d: %w", e.ID, err)
		}
		out[e.CategoryID] = append(out[e.CategoryID], e)
	}
	return out, rows.Err()
}

// Points

// ApplyPoints applies change atomically: the user's count is floored at
// zero, the house total is not, and the notifications are stored in the
// same transaction.
func (r *SQLiteRepository) ApplyPoints(ctx context.Context, change PointsChange) (PointsBalance, error) {
	var balance PointsBalance
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if change.Login != nil {
			if err := stampLogin(ctx, tx, change.UserID, *change.Login); err != nil {
				return err
			}
		}

		err := tx.QueryRowContext(ctx,
			`UPDATE points SET count = MAX(0, count + ?) WHERE user_id = ? RETURNING count`,
			change.Delta, change.UserID).Scan(&balance.UserPoints)
		if err != nil {
			return fmt.Errorf("user %d points: %w", change.UserID, mapNoRows(err))
		}

		if change.HouseID != nil {
			var house int
			err := tx.QueryRowContext(ctx,
				`UPDATE houses SET points = points + ? WHERE id = ? RETURNING points`,
				change.Delta, *change.HouseID).Scan(&house)
			if err != nil {
				return fmt.Errorf("house %d points: %w", *change.HouseID, mapNoRows(err))
			}
			balance.HousePoints = &house
		}

		for _, n := range change.Notifications {
			if err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PointsBalance{}, fmt.Errorf("apply points: %w", err)
	}

	slog.InfoContext(ctx, "Points applied",
		applog.FieldUserID, change.UserID,
		applog.FieldPointsDelta, change.Delta,
		"user_points", balance.UserPoints,
		"notifications", len(change.Notifications))
	return balance, nil
}

func stampLogin(ctx context.Context, tx *sql.Tx, userID int64, stamp LoginStamp) error {
	var previous any
	if !stamp.Previous.IsZero() {
		previous = formatTime(stamp.Previous)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ? AND last_login IS ?`,
		formatTime(stamp.At), userID, previous)
	if err != nil {
		return fmt.Errorf("user %d last login: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrStaleLogin)
	}
	return nil
}

// Notifications

func insertNotification(ctx context.Context, tx *sql.Tx, n core.Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (recipient_id, title, message, seen, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.RecipientID, n.Title, n.Message, n.Seen, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, unseenOnly bool) ([]core.Notification, error) {
	query := `
		SELECT id, recipient_id, title, message, seen, created_at
		FROM notifications WHERE recipient_id = ?`
	if unseenOnly {
		query += ` AND seen = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Seen, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("notification %d: %w", n.ID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationsSeen marks every unseen notification of the user as seen
// and returns how many changed.
func (r *SQLiteRepository) MarkNotificationsSeen(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET seen = 1 WHERE recipient_id = ? AND seen = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications seen: %w", err)
	}
	return n, nil
}

// helpers

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mapConstraint turns SQLite constraint failures into storage errors.
// Foreign key failures mean the referenced row is missing.
func mapConstraint(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}
