/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes balances, categories, employees and the request workflow via REST.
  Handles HTTP request/response and JSON serialization, and delegates to
  leave.Engine and leave.Workflow.

ENDPOINTS:
  Health:
    GET    /api/health

  Categories:
    GET    /api/categories                               List categories
    POST   /api/categories                               Create category

  Employees:
    POST   /api/employees                                Create employee
    GET    /api/employees/{id}                           Get employee
    GET    /api/employees/{id}/balances?as_of=           All balances
    GET    /api/employees/{id}/balances/{categoryID}     One balance
                                                         (?as_of=&exclude=)

  Requests:
    GET    /api/employees/{id}/requests                  List requests
    POST   /api/employees/{id}/requests                  Submit request
    POST   /api/requests/{id}/manager-approve
    POST   /api/requests/{id}/manager-reject
    POST   /api/requests/{id}/hr-approve
    POST   /api/requests/{id}/hr-reject

  Scenarios:
    GET    /api/scenarios                                List demo scenarios
    GET    /api/scenarios/current                        Loaded scenario
    POST   /api/scenarios/load                           Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Invalid status transition, duplicate category name
  - 422: Insufficient balance
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/leave-engine/leave"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    leave.Store
	Engine   *leave.Engine
	Workflow *leave.Workflow
	Logger   *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler with an engine and workflow over store.
func NewHandler(store leave.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	engine := leave.NewEngine(store, logger)
	return &Handler{
		Store:    store,
		Engine:   engine,
		Workflow: leave.NewWorkflow(engine, store, logger),
		Logger:   logger,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all leave categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates or replaces a leave category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.TotalHoursCap != nil && req.TotalHoursCap.IsNegative() {
		writeError(w, http.StatusBadRequest, "total_hours_cap must not be negative", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	category := leave.Category{
		ID:            leave.CategoryID(req.ID),
		Name:          req.Name,
		TotalHoursCap: req.TotalHoursCap,
	}
	if err := h.Store.SaveCategory(r.Context(), category); err != nil {
		writeDomainError(w, "Failed to save category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryDTO(category))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// CreateEmployee creates or replaces an employee profile.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	profile := leave.Profile{
		EmployeeID: leave.EmployeeID(req.ID),
		Name:       req.Name,
		Email:      req.Email,
	}
	if req.HireDate != "" {
		hireDate, err := parseDate(req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date", err)
			return
		}
		profile.HireDate = &hireDate
	}

	if err := h.Store.SaveProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(profile))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*profile))
}

// loadProfile fetches the {id} employee, writing the error response itself.
func (h *Handler) loadProfile(w http.ResponseWriter, r *http.Request) (*leave.Profile, bool) {
	id := chi.URLParam(r, "id")
	profile, err := h.Store.GetProfile(r.Context(), leave.EmployeeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return nil, false
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return nil, false
	}
	return profile, true
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns the balance of every category for an employee.
// GET /api/employees/{id}/balances?as_of=2025-06-15
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	breakdowns, err := h.Engine.Balances(r.Context(), h.Store, profile.EmployeeID, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balances", err)
		return
	}

	resp := BalanceSummaryDTO{
		EmployeeID: string(profile.EmployeeID),
		Balances:   make([]BalanceDTO, len(breakdowns)),
	}
	for i, b := range breakdowns {
		resp.Balances[i] = toBalanceDTO(b)
		resp.AsOf = b.AsOf.Format(time.RFC3339)
	}
	if resp.AsOf == "" {
		resp.AsOf = h.Engine.Now().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCategoryBalance returns one category's remaining hours.
// GET /api/employees/{id}/balances/{categoryID}?as_of=&exclude=
func (h *Handler) GetCategoryBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	categoryID := leave.CategoryID(chi.URLParam(r, "categoryID"))
	exclude := leave.RequestID(r.URL.Query().Get("exclude"))

	b, err := h.Engine.Breakdown(r.Context(), categoryID, profile.EmployeeID, asOf, exclude)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns an employee's leave requests.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	requests, err := h.Store.ListRequests(r.Context(), leave.EmployeeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitRequest records a pending leave request after a balance check.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_time", err)
		return
	}

	created, err := h.Workflow.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:     leave.EmployeeID(chi.URLParam(r, "id")),
		CategoryID:     leave.CategoryID(req.CategoryID),
		StartTime:      start,
		EndTime:        end,
		RequestedHours: req.RequestedHours,
		Reason:         req.Reason,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

type decisionFunc func(ctx context.Context, id leave.RequestID, actor, reason string) (*leave.Request, error)

// ManagerApprove moves a pending request to manager-approved.
func (h *Handler) ManagerApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Workflow.ManagerApprove)
}

// ManagerReject moves a pending request to manager-rejected.
func (h *Handler) ManagerReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Workflow.ManagerReject)
}

// HrApprove moves a manager-approved request to HR-approved.
func (h *Handler) HrApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Workflow.HrApprove)
}

// HrReject moves a manager-approved request to HR-rejected.
func (h *Handler) HrReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Workflow.HrReject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decisionFunc) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	// Body is optional
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ActorID == "" {
		req.ActorID = "admin"
	}

	updated, err := fn(r.Context(), id, req.ActorID, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to update request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the leave error kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, leave.ErrInvalidTransition), errors.Is(err, leave.ErrDuplicateName):
		writeError(w, http.StatusConflict, message, err)
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// parseDate accepts a plain date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t, nil
}

// parseAsOf reads ?as_of=. Absent means the zero time, which the engine
// treats as now.
func parseAsOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}
