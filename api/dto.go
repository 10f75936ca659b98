/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the leave domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

HOURS:
  Hour amounts are decimal.Decimal and serialize as JSON strings ("40",
  "12.5"). Requested hours on a leave request are whole integers.

DATES:
  hire_date and as_of accept "2006-01-02" or RFC3339. start_time and
  end_time are RFC3339.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee. ID is generated
// when empty.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date"`
}

func toEmployeeDTO(p leave.Profile) EmployeeDTO {
	dto := EmployeeDTO{ID: string(p.EmployeeID), Name: p.Name, Email: p.Email}
	if p.HireDate != nil {
		dto.HireDate = p.HireDate.Format(dateLayout)
	}
	return dto
}

// =============================================================================
// CATEGORIES
// =============================================================================

// CategoryDTO represents a leave category. A null total_hours_cap is uncapped.
type CategoryDTO struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Kind          string           `json:"kind"`
	TotalHoursCap *decimal.Decimal `json:"total_hours_cap"`
}

// CreateCategoryRequest is the request to create a category.
type CreateCategoryRequest struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	TotalHoursCap *decimal.Decimal `json:"total_hours_cap"`
}

func toCategoryDTO(c leave.Category) CategoryDTO {
	return CategoryDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Kind:          string(c.Kind()),
		TotalHoursCap: c.TotalHoursCap,
	}
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO is one category's remaining hours with its breakdown.
type BalanceDTO struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Kind         string          `json:"kind"`
	WindowStart  string          `json:"window_start,omitempty"`
	WindowEnd    string          `json:"window_end,omitempty"`
	Entitlement  decimal.Decimal `json:"entitlement"`
	CarryForward decimal.Decimal `json:"carry_forward"`
	Used         decimal.Decimal `json:"used"`
	Pending      decimal.Decimal `json:"pending"`
	Remaining    decimal.Decimal `json:"remaining"`
	Uncapped     bool            `json:"uncapped"`
}

// BalanceSummaryDTO lists every category's balance for an employee.
type BalanceSummaryDTO struct {
	EmployeeID string       `json:"employee_id"`
	AsOf       string       `json:"as_of"`
	Balances   []BalanceDTO `json:"balances"`
}

func toBalanceDTO(b leave.Breakdown) BalanceDTO {
	dto := BalanceDTO{
		CategoryID:   string(b.CategoryID),
		CategoryName: b.CategoryName,
		Kind:         string(b.Kind),
		Entitlement:  b.Entitlement,
		CarryForward: b.CarryForward,
		Used:         b.Used,
		Pending:      b.Pending,
		Remaining:    b.Remaining,
		Uncapped:     b.Uncapped,
	}
	if b.Window != nil {
		dto.WindowStart = b.Window.Start.Format(time.RFC3339)
		dto.WindowEnd = b.Window.End.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitRequestDTO is the body of POST /api/employees/{id}/requests.
type SubmitRequestDTO struct {
	CategoryID     string `json:"category_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	RequestedHours int    `json:"requested_hours"`
	Reason         string `json:"reason"`
}

// DecisionRequest is the body of the approve/reject endpoints. Both fields are
// optional.
type DecisionRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID             string `json:"id"`
	EmployeeID     string `json:"employee_id"`
	CategoryID     string `json:"category_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	RequestedHours int    `json:"requested_hours"`
	Status         string `json:"status"`
	StatusCode     int    `json:"status_code"`
	Reason         string `json:"reason,omitempty"`
	DecidedBy      string `json:"decided_by,omitempty"`
	DecisionReason string `json:"decision_reason,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

func toRequestDTO(r leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:             string(r.ID),
		EmployeeID:     string(r.EmployeeID),
		CategoryID:     string(r.CategoryID),
		StartTime:      r.StartTime.Format(time.RFC3339),
		EndTime:        r.EndTime.Format(time.RFC3339),
		RequestedHours: r.RequestedHours,
		Status:         r.Status.String(),
		StatusCode:     int(r.Status),
		Reason:         r.Reason,
		DecidedBy:      r.DecidedBy,
		DecisionReason: r.DecisionReason,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
