/*
workflow.go - Leave request submission and approval

PURPOSE:
  The callers of the engine: request submission validates hours against the
  remaining balance, and the two-step approval flow (manager, then HR) moves
  requests through their statuses.

REQUEST FLOW:
  Submit ──▶ Pending ──▶ ManagerApproved ──▶ HrApproved
                │               │
                ▼               ▼
         ManagerRejected    HrRejected

BALANCE CHECKS:
  - Submit checks the requested hours against RemainingHours at StartTime.
  - Manager approval re-checks with the request itself excluded, so hours
    booked by other requests since submission are taken into account.
  - HR approval does not re-check: the hours were already validated while the
    request was pending, and the menstrual rule does not exclude approved
    requests from its approved bucket.
*/
package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Workflow orchestrates request submission and decisions.
type Workflow struct {
	Engine     *Engine
	Requests   RequestStore
	Profiles   ProfileReader
	Categories CategoryReader
	Logger     *slog.Logger

	Now   func() time.Time
	NewID func() RequestID
}

// NewWorkflow wires a workflow over a full store.
func NewWorkflow(engine *Engine, store Store, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		Engine:     engine,
		Requests:   store,
		Profiles:   store,
		Categories: store,
		Logger:     logger,
		Now:        time.Now,
		NewID:      func() RequestID { return RequestID(uuid.NewString()) },
	}
}

// SubmitInput is a new leave request as supplied by the caller.
type SubmitInput struct {
	EmployeeID     EmployeeID
	CategoryID     CategoryID
	StartTime      time.Time
	EndTime        time.Time
	RequestedHours int
	Reason         string
}

// Submit validates the input and records a pending request.
func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if in.RequestedHours <= 0 {
		return nil, fmt.Errorf("%w: requested hours must be positive", ErrInvalidRequest)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return nil, fmt.Errorf("%w: start and end time are required", ErrInvalidRequest)
	}
	if in.EndTime.Before(in.StartTime) {
		return nil, fmt.Errorf("%w: end time before start time", ErrInvalidRequest)
	}

	profile, err := w.Profiles.GetProfile(ctx, in.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", in.EmployeeID, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("employee %s: %w", in.EmployeeID, ErrNotFound)
	}
	category, err := w.Categories.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", in.CategoryID, err)
	}
	if category == nil {
		return nil, fmt.Errorf("category %s: %w", in.CategoryID, ErrNotFound)
	}

	if err := w.checkBalance(ctx, in.CategoryID, in.EmployeeID, in.StartTime, "", in.RequestedHours); err != nil {
		return nil, err
	}

	now := w.Now()
	req := Request{
		ID:             w.NewID(),
		EmployeeID:     in.EmployeeID,
		CategoryID:     in.CategoryID,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		RequestedHours: in.RequestedHours,
		Status:         StatusPending,
		Reason:         in.Reason,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	w.Logger.InfoContext(ctx, "leave request submitted",
		slog.String("request_id", string(req.ID)),
		slog.String("employee_id", string(req.EmployeeID)),
		slog.String("category_id", string(req.CategoryID)),
		slog.Int("hours", req.RequestedHours))
	return &req, nil
}

func (w *Workflow) ManagerApprove(ctx context.Context, id RequestID, actor, reason string) (*Request, error) {
	return w.decide(ctx, id, StatusManagerApproved, actor, reason)
}

func (w *Workflow) ManagerReject(ctx context.Context, id RequestID, actor, reason string) (*Request, error) {
	return w.decide(ctx, id, StatusManagerRejected, actor, reason)
}

func (w *Workflow) HrApprove(ctx context.Context, id RequestID, actor, reason string) (*Request, error) {
	return w.decide(ctx, id, StatusHrApproved, actor, reason)
}

func (w *Workflow) HrReject(ctx context.Context, id RequestID, actor, reason string) (*Request, error) {
	return w.decide(ctx, id, StatusHrRejected, actor, reason)
}

func (w *Workflow) decide(ctx context.Context, id RequestID, to Status, actor, reason string) (*Request, error) {
	req, err := w.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", id, err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	from := req.Status
	if !from.CanTransition(to) {
		return nil, &TransitionError{RequestID: id, From: from, To: to}
	}

	if from == StatusPending && to == StatusManagerApproved {
		if err := w.checkBalance(ctx, req.CategoryID, req.EmployeeID, req.StartTime, req.ID, req.RequestedHours); err != nil {
			return nil, err
		}
	}

	if err := w.Requests.UpdateRequestStatus(ctx, id, from, to, actor, reason); err != nil {
		return nil, fmt.Errorf("update request %s: %w", id, err)
	}

	req.Status = to
	req.DecidedBy = actor
	req.DecisionReason = reason
	req.UpdatedAt = w.Now()

	w.Logger.InfoContext(ctx, "leave request decided",
		slog.String("request_id", string(id)),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("actor", actor))
	return req, nil
}

func (w *Workflow) checkBalance(ctx context.Context, categoryID CategoryID, employeeID EmployeeID, asOf time.Time, exclude RequestID, hours int) error {
	remaining, err := w.Engine.RemainingHours(ctx, categoryID, employeeID, asOf, exclude)
	if err != nil {
		return err
	}
	requested := decimal.NewFromInt(int64(hours))
	if requested.GreaterThan(remaining) {
		return &InsufficientBalanceError{
			EmployeeID: employeeID,
			CategoryID: categoryID,
			Remaining:  remaining,
			Requested:  requested,
		}
	}
	return nil
}
