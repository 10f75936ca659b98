/*
Package postgres provides a PostgreSQL-backed implementation of leave.Store.

PURPOSE:
  Production persistence over a pgx connection pool. Same contract as the
  SQLite store: (nil, nil) for missing records, SumHours answered in SQL.

SCHEMA:
  Created on New with CREATE TABLE IF NOT EXISTS. Timestamps are TIMESTAMPTZ,
  so window bounds compare as instants regardless of the caller's location.
  total_hours_cap is NUMERIC and crosses the wire as text to keep decimal
  precision.

USAGE:
  store, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlite/sqlite.go: the embedded equivalent
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ leave.Store = (*Store)(nil)

// New connects to databaseURL, verifies the connection and ensures the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		hire_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS leave_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		total_hours_cap NUMERIC,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_categories_name
		ON leave_categories (LOWER(BTRIM(name)));

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		requested_hours INTEGER NOT NULL,
		status SMALLINT NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		decided_by TEXT NOT NULL DEFAULT '',
		decision_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_category_start
		ON leave_requests(employee_id, category_id, start_time);
	`)
	return err
}

// =============================================================================
// PROFILES
// =============================================================================

func (s *Store) SaveProfile(ctx context.Context, p leave.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, email, hire_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			hire_date = EXCLUDED.hire_date
	`, string(p.EmployeeID), p.Name, p.Email, p.HireDate)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id leave.EmployeeID) (*leave.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		"SELECT id, name, email, hire_date FROM employees WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]leave.Profile, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, email, hire_date FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var profiles []leave.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (leave.Profile, error) {
	var (
		p  leave.Profile
		id string
	)
	err := row.Scan(&id, &p.Name, &p.Email, &p.HireDate)
	p.EmployeeID = leave.EmployeeID(id)
	return p, err
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) SaveCategory(ctx context.Context, c leave.Category) error {
	var hoursCap *string
	if c.TotalHoursCap != nil {
		v := c.TotalHoursCap.String()
		hoursCap = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leave_categories (id, name, total_hours_cap)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			total_hours_cap = EXCLUDED.total_hours_cap
	`, string(c.ID), c.Name, hoursCap)
	if isUniqueViolation(err, "idx_leave_categories_name") {
		return fmt.Errorf("category %q: %w", c.Name, leave.ErrDuplicateName)
	}
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id leave.CategoryID) (*leave.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		"SELECT id, name, total_hours_cap::text FROM leave_categories WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]leave.Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, total_hours_cap::text FROM leave_categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []leave.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func scanCategory(row pgx.Row) (leave.Category, error) {
	var (
		c        leave.Category
		id       string
		hoursCap *string
	)
	if err := row.Scan(&id, &c.Name, &hoursCap); err != nil {
		return c, err
	}
	c.ID = leave.CategoryID(id)
	if hoursCap != nil {
		d, err := decimal.NewFromString(*hoursCap)
		if err != nil {
			return c, fmt.Errorf("invalid total_hours_cap %q: %w", *hoursCap, err)
		}
		c.TotalHoursCap = &d
	}
	return c, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, category_id, start_time, end_time, requested_hours,
	status, reason, decided_by, decision_reason, created_at, updated_at`

func (s *Store) SaveRequest(ctx context.Context, r leave.Request) error {
	createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			category_id = EXCLUDED.category_id,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			requested_hours = EXCLUDED.requested_hours,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			decided_by = EXCLUDED.decided_by,
			decision_reason = EXCLUDED.decision_reason,
			updated_at = EXCLUDED.updated_at
	`,
		string(r.ID), string(r.EmployeeID), string(r.CategoryID),
		r.StartTime, r.EndTime, r.RequestedHours, int16(r.Status),
		r.Reason, r.DecidedBy, r.DecisionReason, createdAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.Request, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &r, nil
}

func (s *Store) ListRequests(ctx context.Context, employeeID leave.EmployeeID) ([]leave.Request, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE employee_id = $1 ORDER BY start_time, id",
		string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (leave.Request, error) {
	var (
		r        leave.Request
		id       string
		employee string
		category string
		status   int16
	)
	err := row.Scan(&id, &employee, &category, &r.StartTime, &r.EndTime, &r.RequestedHours,
		&status, &r.Reason, &r.DecidedBy, &r.DecisionReason, &r.CreatedAt, &r.UpdatedAt)
	r.ID = leave.RequestID(id)
	r.EmployeeID = leave.EmployeeID(employee)
	r.CategoryID = leave.CategoryID(category)
	r.Status = leave.Status(status)
	return r, err
}

// UpdateRequestStatus is a compare-and-set on the status column.
func (s *Store) UpdateRequestStatus(ctx context.Context, id leave.RequestID, from, to leave.Status, decidedBy, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE leave_requests
		SET status = $1, decided_by = $2, decision_reason = $3, updated_at = now()
		WHERE id = $4 AND status = $5
	`, int16(to), decidedBy, reason, string(id), int16(from))
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current int16
	err = s.pool.QueryRow(ctx, "SELECT status FROM leave_requests WHERE id = $1", string(id)).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return leave.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &leave.TransitionError{RequestID: id, From: leave.Status(current), To: to}
}

func (s *Store) SumHours(ctx context.Context, q leave.HoursQuery) (decimal.Decimal, error) {
	if len(q.Statuses) == 0 {
		return decimal.Zero, nil
	}

	query, args := buildSumQuery(q)

	var total int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum hours: %w", err)
	}
	return decimal.NewFromInt(total), nil
}

func buildSumQuery(q leave.HoursQuery) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	statuses := make([]int16, len(q.Statuses))
	for i, st := range q.Statuses {
		statuses[i] = int16(st)
	}

	sb.WriteString(`SELECT COALESCE(SUM(r.requested_hours), 0)::bigint FROM leave_requests r`)
	if q.CategoryName != "" {
		sb.WriteString(` JOIN leave_categories c ON c.id = r.category_id`)
	}
	sb.WriteString(` WHERE r.status = ANY(` + arg(statuses) + `)`)

	if q.EmployeeID != "" {
		sb.WriteString(` AND r.employee_id = ` + arg(string(q.EmployeeID)))
	}
	if q.CategoryID != "" {
		sb.WriteString(` AND r.category_id = ` + arg(string(q.CategoryID)))
	}
	if q.CategoryName != "" {
		sb.WriteString(` AND LOWER(BTRIM(c.name)) = ` + arg(leave.NormalizeName(q.CategoryName)))
	}
	if q.Window != nil {
		sb.WriteString(` AND r.start_time >= ` + arg(q.Window.Start))
		sb.WriteString(` AND r.start_time < ` + arg(q.Window.End))
	}
	if q.ExcludeID != "" {
		sb.WriteString(` AND r.id <> ` + arg(string(q.ExcludeID)))
	}
	return sb.String(), args
}

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE leave_requests, leave_categories, employees")
	if err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	return nil
}
