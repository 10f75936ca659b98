/*
ports.go - Read and write ports between the engine and storage

PURPOSE:
  The engine never reaches into a database directly. It consumes three read
  ports, and the workflow additionally uses the write side. Any storage can
  serve them: the in-memory store for tests, SQLite for local runs, Postgres
  in production.

NOT-FOUND CONTRACT:
  GetProfile / GetCategory / GetRequest return (nil, nil) when the record does
  not exist. A non-nil error always means the store itself failed.

IMPLEMENTATIONS:
  - leave/store/memory.go
  - store/sqlite/sqlite.go
  - store/postgres/postgres.go
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// READ PORTS (consumed by Engine)
// =============================================================================

type ProfileReader interface {
	GetProfile(ctx context.Context, id EmployeeID) (*Profile, error)
}

type CategoryReader interface {
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)
}

type RequestReader interface {
	// SumHours returns the total RequestedHours of matching requests, or zero
	// when nothing matches.
	SumHours(ctx context.Context, q HoursQuery) (decimal.Decimal, error)
}

// HoursQuery filters requests for SumHours. Zero-valued fields do not filter,
// except Statuses: an empty Statuses slice matches nothing.
type HoursQuery struct {
	EmployeeID EmployeeID

	// CategoryID and CategoryName may be combined; CategoryName is compared
	// with NormalizeName.
	CategoryID   CategoryID
	CategoryName string

	Statuses []Status

	// Window filters on StartTime, half-open.
	Window *Window

	// ExcludeID drops exactly one request from the sum.
	ExcludeID RequestID
}

// Matches applies the query to a request whose category name is known. Store
// implementations that filter in memory use this so every adapter agrees.
func (q HoursQuery) Matches(r Request, categoryName string) bool {
	if q.EmployeeID != "" && r.EmployeeID != q.EmployeeID {
		return false
	}
	if q.CategoryID != "" && r.CategoryID != q.CategoryID {
		return false
	}
	if q.CategoryName != "" && NormalizeName(categoryName) != NormalizeName(q.CategoryName) {
		return false
	}
	if q.ExcludeID != "" && r.ID == q.ExcludeID {
		return false
	}
	if q.Window != nil && !q.Window.Contains(r.StartTime) {
		return false
	}
	return containsStatus(q.Statuses, r.Status)
}

func containsStatus(statuses []Status, s Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Reader is everything the engine reads.
type Reader interface {
	ProfileReader
	CategoryReader
	RequestReader
}

// CategoryLister lists every category, for whole-profile balance views.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]Category, error)
}

// =============================================================================
// WRITE PORTS (used by Workflow and the API)
// =============================================================================

type RequestStore interface {
	RequestReader
	SaveRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id RequestID) (*Request, error)
	ListRequests(ctx context.Context, employeeID EmployeeID) ([]Request, error)

	// UpdateRequestStatus moves a request from one status to another. It
	// returns ErrInvalidTransition if the stored status is no longer from.
	UpdateRequestStatus(ctx context.Context, id RequestID, from, to Status, decidedBy, reason string) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	Reader
	CategoryLister
	RequestStore
	SaveProfile(ctx context.Context, p Profile) error
	ListProfiles(ctx context.Context) ([]Profile, error)
	SaveCategory(ctx context.Context, c Category) error
	Reset(ctx context.Context) error
}
