// Package store provides an in-memory leave.Store for tests and local runs.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	profiles   map[leave.EmployeeID]leave.Profile
	categories map[leave.CategoryID]leave.Category
	requests   map[leave.RequestID]leave.Request
}

var _ leave.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		profiles:   make(map[leave.EmployeeID]leave.Profile),
		categories: make(map[leave.CategoryID]leave.Category),
		requests:   make(map[leave.RequestID]leave.Request),
	}
}

// =============================================================================
// PROFILES
// =============================================================================

func (m *Memory) SaveProfile(_ context.Context, p leave.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.EmployeeID] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, id leave.EmployeeID) (*leave.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListProfiles(_ context.Context) ([]leave.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]leave.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

// SaveCategory rejects a name that normalizes to another category's name.
func (m *Memory) SaveCategory(_ context.Context, c leave.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := leave.NormalizeName(c.Name)
	for id, existing := range m.categories {
		if id != c.ID && leave.NormalizeName(existing.Name) == name {
			return fmt.Errorf("category %q: %w", c.Name, leave.ErrDuplicateName)
		}
	}
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) GetCategory(_ context.Context, id leave.CategoryID) (*leave.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCategories(_ context.Context) ([]leave.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]leave.Category, 0, len(m.categories))
	for _, c := range m.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) SaveRequest(_ context.Context, r leave.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id leave.RequestID) (*leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// ListRequests returns an employee's requests ordered by StartTime.
func (m *Memory) ListRequests(_ context.Context, employeeID leave.EmployeeID) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []leave.Request
	for _, r := range m.requests {
		if r.EmployeeID == employeeID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (m *Memory) UpdateRequestStatus(_ context.Context, id leave.RequestID, from, to leave.Status, decidedBy, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return leave.ErrNotFound
	}
	if r.Status != from {
		return &leave.TransitionError{RequestID: id, From: r.Status, To: to}
	}
	r.Status = to
	r.DecidedBy = decidedBy
	r.DecisionReason = reason
	m.requests[id] = r
	return nil
}

// SumHours aggregates matching requests. A request whose category no longer
// exists matches only queries that do not filter by category name.
func (m *Memory) SumHours(_ context.Context, q leave.HoursQuery) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, r := range m.requests {
		name := ""
		if c, ok := m.categories[r.CategoryID]; ok {
			name = c.Name
		}
		if q.CategoryName != "" && name == "" {
			continue
		}
		if q.Matches(r, name) {
			total = total.Add(r.Hours())
		}
	}
	return total, nil
}

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = make(map[leave.EmployeeID]leave.Profile)
	m.categories = make(map[leave.CategoryID]leave.Category)
	m.requests = make(map[leave.RequestID]leave.Request)
	return nil
}
