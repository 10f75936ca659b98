/*
handlers_test.go - HTTP tests for the leave API

Drives the chi router with httptest against an in-memory SQLite store:
- Employee and category endpoints
- Balance endpoints (as_of, exclude)
- Submission and the approval workflow, including error status mapping
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Engine.Now = func() time.Time { return testNow }
	h.Workflow.Now = func() time.Time { return testNow }

	_, err = leave.SeedDefaultCategories(context.Background(), store)
	require.NoError(t, err)
	return h
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	router := NewRouter(setupTestHandler(t), RouterOptions{})

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCategories_ListAndCreate(t *testing.T) {
	router := NewRouter(setupTestHandler(t), RouterOptions{})

	rec := doJSON(t, router, http.MethodPost, "/api/categories", map[string]any{
		"id": "bereavement", "name": "Bereavement Leave", "total_hours_cap": "24",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decode[[]CategoryDTO](t, rec)
	assert.Len(t, categories, len(leave.DefaultCategories())+1)

	kinds := map[string]string{}
	for _, c := range categories {
		kinds[c.ID] = c.Kind
	}
	assert.Equal(t, "annual", kinds["annual-leave"])
	assert.Equal(t, "menstrual", kinds["menstrual-leave"])
	assert.Equal(t, "generic", kinds["bereavement"])

	rec = doJSON(t, router, http.MethodPost, "/api/categories", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployee_CreateAndGet(t *testing.T) {
	router := NewRouter(setupTestHandler(t), RouterOptions{})

	rec := doJSON(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID: "emp-1", Name: "Mei", Email: "mei@example.com", HireDate: "2023-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "2023-03-01", emp.HireDate)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{ID: "emp-2", HireDate: "March 1st"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalances_AllCategories(t *testing.T) {
	// GIVEN: An employee with 2 years 3 months of service on 2025-06-15
	router := NewRouter(setupTestHandler(t), RouterOptions{})
	rec := doJSON(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{ID: "emp-1", HireDate: "2023-03-01"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: Fetching all balances
	rec = doJSON(t, router, http.MethodGet, "/api/employees/emp-1/balances?as_of=2025-06-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[BalanceSummaryDTO](t, rec)

	// THEN: Each category follows its rule
	byID := map[string]BalanceDTO{}
	for _, b := range summary.Balances {
		byID[b.CategoryID] = b
	}
	assert.Equal(t, "80", byID["annual-leave"].Remaining.String())
	assert.NotEmpty(t, byID["annual-leave"].WindowStart)
	assert.Equal(t, "8", byID["menstrual-leave"].Remaining.String())
	assert.Equal(t, "40", byID["sick-leave"].Remaining.String())
	assert.Equal(t, "5000", byID["personal-leave"].Remaining.String())
	assert.True(t, byID["personal-leave"].Uncapped)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/emp-1/balances?as_of=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalances_UnknownCategoryIsZero(t *testing.T) {
	router := NewRouter(setupTestHandler(t), RouterOptions{})
	doJSON(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{ID: "emp-1", HireDate: "2020-01-01"})

	rec := doJSON(t, router, http.MethodGet, "/api/employees/emp-1/balances/does-not-exist", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[BalanceDTO](t, rec).Remaining.IsZero())
}

func TestRequestWorkflow_EndToEnd(t *testing.T) {
	router := NewRouter(setupTestHandler(t), RouterOptions{})
	doJSON(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{ID: "emp-1", HireDate: "2023-03-01"})

	// GIVEN: A 16h sick leave request
	rec := doJSON(t, router, http.MethodPost, "/api/employees/emp-1/requests", SubmitRequestDTO{
		CategoryID:     "sick-leave",
		StartTime:      "2025-07-01T09:00:00Z",
		EndTime:        "2025-07-02T17:00:00Z",
		RequestedHours: 16,
		Reason:         "Dentist",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RequestDTO](t, rec)
	assert.Equal(t, "pending", created.Status)

	// THEN: Pending hours count against the balance unless excluded
	rec = doJSON(t, router, http.MethodGet, "/api/employees/emp-1/balances/sick-leave", nil)
	assert.Equal(t, "24", decode[BalanceDTO](t, rec).Remaining.String())
	rec = doJSON(t, router, http.MethodGet, "/api/employees/emp-1/balances/sick-leave?exclude="+created.ID, nil)
	assert.Equal(t, "40", decode[BalanceDTO](t, rec).Remaining.String())

	// WHEN: Manager then HR approve
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/manager-approve", DecisionRequest{ActorID: "mgr-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "manager_approved", decode[RequestDTO](t, rec).Status)

	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/hr-approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[RequestDTO](t, rec)
	assert.Equal(t, "hr_approved", approved.Status)
	assert.Equal(t, "admin", approved.DecidedBy)

	// THEN: A second HR decision conflicts
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+created.ID+"/hr-reject", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/emp-1/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RequestDTO](t, rec), 1)
}

func TestSubmitRequest_ErrorMapping(t *testing.T) {
	router := NewRouter(setupTestHandler(t), RouterOptions{})
	doJSON(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{ID: "emp-1", HireDate: "2023-03-01"})

	submit := func(body SubmitRequestDTO) int {
		return doJSON(t, router, http.MethodPost, "/api/employees/emp-1/requests", body).Code
	}

	tests := []struct {
		name string
		body SubmitRequestDTO
		want int
	}{
		{"over balance", SubmitRequestDTO{CategoryID: "sick-leave", StartTime: "2025-07-01T09:00:00Z", EndTime: "2025-07-08T09:00:00Z", RequestedHours: 48}, http.StatusUnprocessableEntity},
		{"zero hours", SubmitRequestDTO{CategoryID: "sick-leave", StartTime: "2025-07-01T09:00:00Z", EndTime: "2025-07-01T10:00:00Z"}, http.StatusBadRequest},
		{"bad start", SubmitRequestDTO{CategoryID: "sick-leave", StartTime: "tomorrow", EndTime: "2025-07-01T10:00:00Z", RequestedHours: 1}, http.StatusBadRequest},
		{"unknown category", SubmitRequestDTO{CategoryID: "nope", StartTime: "2025-07-01T09:00:00Z", EndTime: "2025-07-01T10:00:00Z", RequestedHours: 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, submit(tt.body))
		})
	}

	rec := doJSON(t, router, http.MethodPost, "/api/requests/missing/manager-approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCategory_DuplicateNameConflicts(t *testing.T) {
	// GIVEN: The seeded "Annual Leave" category
	router := NewRouter(setupTestHandler(t), RouterOptions{})

	// WHEN: Creating another category whose name differs only by case and padding
	rec := doJSON(t, router, http.MethodPost, "/api/categories", map[string]any{
		"id": "annual-2", "name": "  annual LEAVE ",
	})

	// THEN: 409 and the category list is unchanged
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/categories", nil)
	assert.Len(t, decode[[]CategoryDTO](t, rec), len(leave.DefaultCategories()))
}

func TestWriteDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("request r-1: %w", leave.ErrNotFound), http.StatusNotFound},
		{"insufficient balance", &leave.InsufficientBalanceError{}, http.StatusUnprocessableEntity},
		{"transition", &leave.TransitionError{}, http.StatusConflict},
		{"duplicate name", fmt.Errorf("category: %w", leave.ErrDuplicateName), http.StatusConflict},
		{"invalid request", fmt.Errorf("%w: hours must be positive", leave.ErrInvalidRequest), http.StatusBadRequest},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, "failed", tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
