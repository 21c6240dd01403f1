package request

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// defaultEscalationAfter is how long a request may sit without a manager
// decision before the skip-level manager is notified.
const defaultEscalationAfter = 48 * time.Hour

// CheckAutoEscalation notifies skip-level managers about stale pending
// requests. Escalation is notification-only; request state is untouched.
// Returns the number of requests escalated.
func (s *Service) CheckAutoEscalation(ctx context.Context, escalateAfter time.Duration) (int, error) {
	if escalateAfter <= 0 {
		escalateAfter = defaultEscalationAfter
	}
	cutoff := s.Now().Add(-escalateAfter)

	stale, err := s.Store.PendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, req := range stale {
		if hasManagerDecision(req.ApprovalFlow) {
			continue
		}

		skipLevel, err := s.skipLevelManager(ctx, req.EmployeeID)
		if err != nil {
			slog.Warn("auto escalation skip-level lookup failed", "requestId", req.ID, "err", err)
			continue
		}
		msg := fmt.Sprintf("Leave request %s has been pending for over %s without a manager decision.", req.ID, escalateAfter)
		s.notifyBestEffort(ctx, skipLevel, "leave_escalated", msg)
		escalated++
	}
	return escalated, nil
}

// skipLevelManager finds the holder of the position one level above the
// employee's direct supervisor.
func (s *Service) skipLevelManager(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.Directory.EmployeeByID(ctx, employeeID)
	if err != nil {
		return "", err
	}
	if emp.SupervisorPositionID == "" {
		return "", fmt.Errorf("employee %s has no supervisor position", employeeID)
	}
	pos, err := s.Directory.PositionByID(ctx, emp.SupervisorPositionID)
	if err != nil {
		return "", err
	}
	if pos.ReportsToPositionID == "" {
		return "", fmt.Errorf("supervisor position %s has no parent", pos.ID)
	}
	holders, err := s.Directory.EmployeesByPosition(ctx, pos.ReportsToPositionID)
	if err != nil {
		return "", err
	}
	if len(holders) == 0 {
		return "", fmt.Errorf("no holder for skip-level position %s", pos.ReportsToPositionID)
	}
	return holders[0].ID, nil
}

func hasManagerDecision(flow []ApprovalEntry) bool {
	for _, entry := range flow {
		if entry.Role == RoleManager && entry.Status != DecisionPending {
			return true
		}
	}
	return false
}

// ApplyRetroactiveDeduction persists and immediately finalizes an approved
// request with a synthetic HR_SYSTEM approval entry, bypassing the normal
// submission pipeline. Used for backdated administrative leave entry.
func (s *Service) ApplyRetroactiveDeduction(ctx context.Context, employeeID, leaveTypeRef string, start, end time.Time, reason string) (*LeaveRequest, *FinalizeOutcome, error) {
	if end.Before(start) {
		return nil, nil, fmt.Errorf("retroactive deduction failed: %w", ErrInvalidDateRange)
	}

	lt, err := s.Policies.TypeByIDOrCode(ctx, leaveTypeRef)
	if err != nil {
		return nil, nil, fmt.Errorf("retroactive deduction failed: %w", err)
	}

	duration, err := s.Calendar.NetLeaveDuration(ctx, start, end, start.Year())
	if err != nil {
		return nil, nil, fmt.Errorf("retroactive deduction failed: %w", err)
	}

	now := s.Now()
	req := &LeaveRequest{
		EmployeeID:    employeeID,
		LeaveTypeID:   lt.ID,
		StartDate:     start,
		EndDate:       end,
		DurationDays:  float64(duration),
		Justification: reason,
		Status:        StatusApproved,
		ApprovalFlow: []ApprovalEntry{{
			Role:      RoleHRSystem,
			Status:    DecisionApproved,
			DecidedBy: "system",
			DecidedAt: &now,
			Comment:   reason,
		}},
	}
	if err := s.Store.Create(ctx, req); err != nil {
		return nil, nil, fmt.Errorf("retroactive deduction failed: %w", err)
	}

	outcome := s.finalize(ctx, req)
	return req, &outcome, nil
}
