/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Persists employee profiles, leave categories and leave requests, and
  answers the engine's SumHours aggregate in SQL.

KEY TABLES:
  employees:        profile records (hire_date nullable)
  leave_categories: categories with an optional hours cap (decimal as TEXT)
  leave_requests:   requests with integer status and caller-supplied hours

NO FOREIGN KEYS:
  A request may point at a deleted category. The engine treats that as
  "no entitlement", so the schema must not reject or cascade it.

TIMESTAMPS:
  Stored as RFC3339 text in UTC so that string comparison orders instants.
  Window bounds are converted to UTC before comparison.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection, since each new connection would open an empty database.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - leave/ports.go: interface definitions
  - store/postgres/postgres.go: the same contract over pgx
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ leave.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		hire_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		total_hours_cap TEXT,
		created_at TEXT NOT NULL
	);

	-- Names pick the accrual rule, so they must be unique after normalizing
	CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_categories_name
		ON leave_categories(LOWER(TRIM(name)));

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		requested_hours INTEGER NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		decided_by TEXT NOT NULL DEFAULT '',
		decision_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: SumHours by employee + category + status + window
	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_category_start
		ON leave_requests(employee_id, category_id, start_time);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROFILES
// =============================================================================

// SaveProfile inserts or updates an employee profile.
func (s *Store) SaveProfile(ctx context.Context, p leave.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date
	`

	_, err := s.db.ExecContext(ctx, query,
		p.EmployeeID, p.Name, p.Email, nullTime(p.HireDate), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by employee ID. Returns nil, nil if absent.
func (s *Store) GetProfile(ctx context.Context, id leave.EmployeeID) (*leave.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p        leave.Profile
		hireDate sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, hire_date FROM employees WHERE id = ?", id,
	).Scan(&p.EmployeeID, &p.Name, &p.Email, &hireDate)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	p.HireDate = parseNullTime(hireDate)
	return &p, nil
}

// ListProfiles returns all profiles ordered by ID.
func (s *Store) ListProfiles(ctx context.Context) ([]leave.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, hire_date FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var profiles []leave.Profile
	for rows.Next() {
		var (
			p        leave.Profile
			hireDate sql.NullString
		)
		if err := rows.Scan(&p.EmployeeID, &p.Name, &p.Email, &hireDate); err != nil {
			return nil, err
		}
		p.HireDate = parseNullTime(hireDate)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// =============================================================================
// CATEGORIES
// =============================================================================

// SaveCategory inserts or updates a category. A name that collides with
// another category's (trimmed, case-insensitive) returns leave.ErrDuplicateName.
func (s *Store) SaveCategory(ctx context.Context, c leave.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_categories (id, name, total_hours_cap, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_hours_cap = excluded.total_hours_cap
	`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, nullDecimal(c.TotalHoursCap), formatTime(time.Now()))
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, leave.ErrDuplicateName)
	}
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID. Returns nil, nil if absent.
func (s *Store) GetCategory(ctx context.Context, id leave.CategoryID) (*leave.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		c        leave.Category
		hoursCap sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, total_hours_cap FROM leave_categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &hoursCap)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	c.TotalHoursCap, err = parseNullDecimal(hoursCap)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]leave.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, total_hours_cap FROM leave_categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []leave.Category
	for rows.Next() {
		var (
			c        leave.Category
			hoursCap sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &hoursCap); err != nil {
			return nil, err
		}
		if c.TotalHoursCap, err = parseNullDecimal(hoursCap); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, category_id, start_time, end_time, requested_hours,
	status, reason, decided_by, decision_reason, created_at, updated_at`

// SaveRequest inserts or replaces a request.
func (s *Store) SaveRequest(ctx context.Context, r leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			category_id = excluded.category_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			requested_hours = excluded.requested_hours,
			status = excluded.status,
			reason = excluded.reason,
			decided_by = excluded.decided_by,
			decision_reason = excluded.decision_reason,
			updated_at = excluded.updated_at
	`

	createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.EmployeeID, r.CategoryID,
		formatTime(r.StartTime), formatTime(r.EndTime),
		r.RequestedHours, int(r.Status), r.Reason, r.DecidedBy, r.DecisionReason,
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by ID. Returns nil, nil if absent.
func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests, err := s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// ListRequests returns an employee's requests ordered by start time.
func (s *Store) ListRequests(ctx context.Context, employeeID leave.EmployeeID) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRequests(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE employee_id = ? ORDER BY start_time, id", employeeID)
}

// UpdateRequestStatus moves a request from one status to another atomically.
func (s *Store) UpdateRequestStatus(ctx context.Context, id leave.RequestID, from, to leave.Status, decidedBy, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, decided_by = ?, decision_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, int(to), decidedBy, reason, formatTime(time.Now()), id, int(from))
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var current int
	err = s.db.QueryRowContext(ctx, "SELECT status FROM leave_requests WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return leave.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &leave.TransitionError{RequestID: id, From: leave.Status(current), To: to}
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		var (
			r      leave.Request
			status int
			start  string
			end    string
			crt    string
			upd    string
		)
		if err := rows.Scan(
			&r.ID, &r.EmployeeID, &r.CategoryID, &start, &end, &r.RequestedHours,
			&status, &r.Reason, &r.DecidedBy, &r.DecisionReason, &crt, &upd,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		r.Status = leave.Status(status)
		r.StartTime = parseTime(start)
		r.EndTime = parseTime(end)
		r.CreatedAt = parseTime(crt)
		r.UpdatedAt = parseTime(upd)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// SumHours aggregates requested hours for the engine.
func (s *Store) SumHours(ctx context.Context, q leave.HoursQuery) (decimal.Decimal, error) {
	if len(q.Statuses) == 0 {
		return decimal.Zero, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := buildSumQuery(q)

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum hours: %w", err)
	}
	return decimal.NewFromInt(total), nil
}

func buildSumQuery(q leave.HoursQuery) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT COALESCE(SUM(r.requested_hours), 0) FROM leave_requests r`)
	if q.CategoryName != "" {
		sb.WriteString(` JOIN leave_categories c ON c.id = r.category_id`)
	}

	placeholders := make([]string, len(q.Statuses))
	for i, st := range q.Statuses {
		placeholders[i] = "?"
		args = append(args, int(st))
	}
	sb.WriteString(` WHERE r.status IN (` + strings.Join(placeholders, ", ") + `)`)

	if q.EmployeeID != "" {
		sb.WriteString(` AND r.employee_id = ?`)
		args = append(args, q.EmployeeID)
	}
	if q.CategoryID != "" {
		sb.WriteString(` AND r.category_id = ?`)
		args = append(args, q.CategoryID)
	}
	if q.CategoryName != "" {
		sb.WriteString(` AND LOWER(TRIM(c.name)) = ?`)
		args = append(args, leave.NormalizeName(q.CategoryName))
	}
	if q.Window != nil {
		sb.WriteString(` AND r.start_time >= ? AND r.start_time < ?`)
		args = append(args, formatTime(q.Window.Start), formatTime(q.Window.End))
	}
	if q.ExcludeID != "" {
		sb.WriteString(` AND r.id <> ?`)
		args = append(args, q.ExcludeID)
	}
	return sb.String(), args
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"leave_requests", "leave_categories", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid total_hours_cap %q: %w", s.String, err)
	}
	return &d, nil
}
