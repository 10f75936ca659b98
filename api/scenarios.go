/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario seeds the default categories, one or more
	employees, and requests in various statuses that exercise a specific
	balance rule.

AVAILABLE SCENARIOS:

	new-hire:           Five months in, no annual leave yet
	veteran:            Twelve years of service, part of annual leave used
	menstrual-carry:    Last month's usage carried into this month
	sick-exhausted:     Capped sick leave fully consumed
	approval-pipeline:  Requests sitting at every workflow status

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed default categories
 3. Create employees with hire dates relative to now
 4. Save requests directly with their final status

Dates are anchored to the engine clock so balances look the same whenever
the scenario is loaded.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "menstrual-carry"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: shared helpers
  - leave/category.go: DefaultCategories
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-hire",
		Name:        "New Hire",
		Description: "Hired five months ago: no annual leave until six months of service",
	},
	{
		ID:          "veteran",
		Name:        "Veteran",
		Description: "Twelve years of service (17 days of annual leave), three days booked",
	},
	{
		ID:          "menstrual-carry",
		Name:        "Menstrual Carry-Forward",
		Description: "Leave taken last month carries into this month's pool",
	},
	{
		ID:          "sick-exhausted",
		Name:        "Sick Leave Exhausted",
		Description: "40-hour sick leave cap fully consumed by approved and pending requests",
	},
	{
		ID:          "approval-pipeline",
		Name:        "Approval Pipeline",
		Description: "Requests at every status, showing which ones count against the balance",
	},
}

type scenarioLoader func(ctx context.Context, now time.Time) error

func (h *Handler) scenarioLoaders() map[string]scenarioLoader {
	return map[string]scenarioLoader{
		"new-hire":          h.loadNewHireScenario,
		"veteran":           h.loadVeteranScenario,
		"menstrual-carry":   h.loadMenstrualCarryScenario,
		"sick-exhausted":    h.loadSickExhaustedScenario,
		"approval-pipeline": h.loadApprovalPipelineScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := h.scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if _, err := leave.SeedDefaultCategories(ctx, h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed categories", err)
		return
	}

	if err := load(ctx, h.Engine.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

const (
	annualLeave    = leave.CategoryID("annual-leave")
	menstrualLeave = leave.CategoryID("menstrual-leave")
	sickLeave      = leave.CategoryID("sick-leave")
)

func (h *Handler) loadNewHireScenario(ctx context.Context, now time.Time) error {
	return h.saveEmployee(ctx, "emp-001", "Alice Johnson", now.AddDate(0, -5, 0))
}

func (h *Handler) loadVeteranScenario(ctx context.Context, now time.Time) error {
	if err := h.saveEmployee(ctx, "emp-002", "Bob Martinez", now.AddDate(-12, 0, 0)); err != nil {
		return err
	}

	// 12 years -> 17 days (136h). 24h booked this year; last year's request
	// falls outside the window.
	return h.saveRequests(ctx,
		leave.Request{ID: "req-vet-1", EmployeeID: "emp-002", CategoryID: annualLeave,
			StartTime: startOfYear(now), RequestedHours: 16, Status: leave.StatusHrApproved, Reason: "New year trip"},
		leave.Request{ID: "req-vet-2", EmployeeID: "emp-002", CategoryID: annualLeave,
			StartTime: startOfYear(now).AddDate(0, 0, 14), RequestedHours: 8, Status: leave.StatusPending},
		leave.Request{ID: "req-vet-old", EmployeeID: "emp-002", CategoryID: annualLeave,
			StartTime: startOfYear(now).AddDate(0, -1, 0), RequestedHours: 40, Status: leave.StatusHrApproved},
	)
}

func (h *Handler) loadMenstrualCarryScenario(ctx context.Context, now time.Time) error {
	if err := h.saveEmployee(ctx, "emp-003", "Chen Wei", now.AddDate(-2, 0, 0)); err != nil {
		return err
	}

	thisMonth := startOfMonth(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	// carry = min(8, 4) = 4, total = min(8, 12) = 8, approved 2, pending 1
	// -> 5 hours remaining this month.
	return h.saveRequests(ctx,
		leave.Request{ID: "req-men-1", EmployeeID: "emp-003", CategoryID: menstrualLeave,
			StartTime: lastMonth.AddDate(0, 0, 3), RequestedHours: 4, Status: leave.StatusHrApproved},
		leave.Request{ID: "req-men-2", EmployeeID: "emp-003", CategoryID: menstrualLeave,
			StartTime: thisMonth, RequestedHours: 2, Status: leave.StatusManagerApproved},
		leave.Request{ID: "req-men-3", EmployeeID: "emp-003", CategoryID: menstrualLeave,
			StartTime: thisMonth.AddDate(0, 0, 1), RequestedHours: 1, Status: leave.StatusPending},
	)
}

func (h *Handler) loadSickExhaustedScenario(ctx context.Context, now time.Time) error {
	if err := h.saveEmployee(ctx, "emp-004", "Dana Okafor", now.AddDate(-3, -2, 0)); err != nil {
		return err
	}

	return h.saveRequests(ctx,
		leave.Request{ID: "req-sick-1", EmployeeID: "emp-004", CategoryID: sickLeave,
			StartTime: now.AddDate(0, -4, 0), RequestedHours: 24, Status: leave.StatusHrApproved, Reason: "Flu"},
		leave.Request{ID: "req-sick-2", EmployeeID: "emp-004", CategoryID: sickLeave,
			StartTime: now.AddDate(0, -1, 0), RequestedHours: 16, Status: leave.StatusPending, Reason: "Surgery"},
		leave.Request{ID: "req-sick-3", EmployeeID: "emp-004", CategoryID: sickLeave,
			StartTime: now.AddDate(0, -2, 0), RequestedHours: 8, Status: leave.StatusManagerRejected},
	)
}

func (h *Handler) loadApprovalPipelineScenario(ctx context.Context, now time.Time) error {
	if err := h.saveEmployee(ctx, "emp-005", "Eve Lindqvist", now.AddDate(-1, -6, 0)); err != nil {
		return err
	}

	day := startOfMonth(now)
	statuses := []leave.Status{
		leave.StatusPending,
		leave.StatusManagerApproved,
		leave.StatusManagerRejected,
		leave.StatusHrApproved,
		leave.StatusHrRejected,
	}
	requests := make([]leave.Request, len(statuses))
	for i, st := range statuses {
		requests[i] = leave.Request{
			ID:             leave.RequestID(fmt.Sprintf("req-pipe-%d", i+1)),
			EmployeeID:     "emp-005",
			CategoryID:     sickLeave,
			StartTime:      day.AddDate(0, 0, i),
			RequestedHours: 4,
			Status:         st,
			Reason:         st.String(),
		}
	}
	return h.saveRequests(ctx, requests...)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) saveEmployee(ctx context.Context, id, name string, hireDate time.Time) error {
	return h.Store.SaveProfile(ctx, leave.Profile{
		EmployeeID: leave.EmployeeID(id),
		Name:       name,
		Email:      fmt.Sprintf("%s@example.com", id),
		HireDate:   &hireDate,
	})
}

// saveRequests stores requests as-is. One-day requests get EndTime filled in.
func (h *Handler) saveRequests(ctx context.Context, requests ...leave.Request) error {
	for _, r := range requests {
		if r.EndTime.IsZero() {
			r.EndTime = r.StartTime.Add(time.Duration(r.RequestedHours) * time.Hour)
		}
		if err := h.Store.SaveRequest(ctx, r); err != nil {
			return fmt.Errorf("save request %s: %w", r.ID, err)
		}
	}
	return nil
}

func startOfMonth(t time.Time) time.Time {
	return leave.MonthWindow(t).Start
}

func startOfYear(t time.Time) time.Time {
	return leave.YearWindow(t).Start
}
