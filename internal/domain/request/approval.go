package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"leavehub/internal/domain/policy"
)

// Approve records a manager decision. Rejection is terminal; approval keeps
// the request pending for HR review.
func (s *Service) Approve(ctx context.Context, requestID, managerID, decision, comment string) (*LeaveRequest, error) {
	decision = strings.ToUpper(strings.TrimSpace(decision))
	if decision != DecisionApproved && decision != DecisionRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	req, err := s.Store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status)
	}

	emp, err := s.Directory.EmployeeByID(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !s.Approvers.VerifyManagerAuthorization(ctx, emp, managerID, s.Now()) {
		return nil, ErrForbidden
	}

	now := s.Now()
	req.ApprovalFlow = append(req.ApprovalFlow, ApprovalEntry{
		Role:      RoleManager,
		Status:    decision,
		DecidedBy: managerID,
		DecidedAt: &now,
		Comment:   comment,
	})
	if decision == DecisionRejected {
		req.Status = StatusRejected
	}

	if err := s.Store.Update(ctx, req); err != nil {
		return nil, err
	}

	if decision == DecisionRejected {
		s.notifyBestEffort(ctx, req.EmployeeID, "leave_rejected", "Your leave request was rejected by your manager.")
	} else {
		s.notifyBestEffort(ctx, req.EmployeeID, "leave_manager_approved", "Your leave request was approved by your manager and is awaiting HR review.")
	}
	return req, nil
}

// Review records the HR decision. HR may override a prior manager rejection
// in either direction. Approval re-validates the attachment, the cumulative
// yearly limit, and the balance; an insufficient balance only passes with an
// explicit override reason. Full approval triggers finalization.
func (s *Service) Review(ctx context.Context, requestID, hrID, decision, overrideReason string) (*LeaveRequest, *FinalizeOutcome, error) {
	decision = strings.ToUpper(strings.TrimSpace(decision))
	if decision != DecisionApproved && decision != DecisionRejected {
		return nil, nil, fmt.Errorf("invalid decision %q", decision)
	}

	req, err := s.Store.Get(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.Status == StatusApproved {
		return nil, nil, fmt.Errorf("%w: already approved", ErrInvalidState)
	}

	now := s.Now()

	if decision == DecisionApproved {
		lt, err := s.Policies.TypeByID(ctx, req.LeaveTypeID)
		if err != nil {
			return nil, nil, err
		}
		if req.AttachmentID != "" {
			if err := s.checkAttachment(ctx, lt, req.AttachmentID); err != nil {
				return nil, nil, err
			}
		}
		pol, err := s.Policies.PolicyByLeaveType(ctx, lt.ID)
		if err != nil && !errors.Is(err, policy.ErrNotFound) {
			return nil, nil, err
		}
		if pol != nil && pol.YearlyRate > 0 {
			taken, err := s.Store.SumApprovedDaysInYear(ctx, req.EmployeeID, lt.ID, req.StartDate.Year())
			if err != nil {
				return nil, nil, err
			}
			if taken+req.DurationDays > pol.YearlyRate {
				return nil, nil, fmt.Errorf("%w: %.1f days taken this year, requested %.1f, yearly limit %.1f", ErrYearlyLimit, taken, req.DurationDays, pol.YearlyRate)
			}
		}

		balance, err := s.Ledger.Balance(ctx, req.EmployeeID, req.LeaveTypeID)
		if err != nil {
			return nil, nil, err
		}
		if balance < req.DurationDays {
			if overrideReason == "" {
				return nil, nil, fmt.Errorf("%w: balance %.1f, requested %.1f", ErrInsufficientBalance, balance, req.DurationDays)
			}
			slog.Warn("hr override on insufficient balance",
				"requestId", req.ID,
				"balance", balance,
				"requested", req.DurationDays,
				"overrideReason", overrideReason)
		}
	}

	req.ApprovalFlow = append(req.ApprovalFlow, ApprovalEntry{
		Role:      RoleHR,
		Status:    decision,
		DecidedBy: hrID,
		DecidedAt: &now,
		Comment:   overrideReason,
	})

	var outcome *FinalizeOutcome
	if decision == DecisionApproved {
		req.Status = StatusApproved
	} else {
		req.Status = StatusRejected
	}
	if err := s.Store.Update(ctx, req); err != nil {
		return nil, nil, err
	}

	if decision == DecisionApproved {
		result := s.finalize(ctx, req)
		outcome = &result
	} else {
		s.notifyBestEffort(ctx, req.EmployeeID, "leave_rejected", "Your leave request was rejected by HR.")
	}
	return req, outcome, nil
}

// finalize runs the post-approval side effects. The entitlement mutation must
// succeed; every other effect degrades to a warning and is reported in the
// outcome rather than rolled back.
func (s *Service) finalize(ctx context.Context, req *LeaveRequest) FinalizeOutcome {
	outcome := FinalizeOutcome{}

	if err := s.Ledger.ApplyUsage(ctx, req.EmployeeID, req.LeaveTypeID, req.DurationDays); err != nil {
		slog.Error("entitlement update failed during finalization", "requestId", req.ID, "err", err)
		outcome.Degraded = append(outcome.Degraded, "balance")
	} else {
		outcome.BalanceUpdated = true
	}

	if s.Notify != nil {
		if err := s.Notify.Notify(ctx, req.EmployeeID, "leave_approved", "Your leave request has been approved."); err != nil {
			slog.Warn("approval notification failed", "requestId", req.ID, "err", err)
			outcome.Degraded = append(outcome.Degraded, "notification")
		} else {
			outcome.EmployeeNotified = true
		}
	}

	if s.Attendance != nil {
		if err := s.Attendance.BlockLeave(ctx, req.EmployeeID, req.StartDate, req.EndDate, "approved leave"); err != nil {
			slog.Warn("attendance block failed", "requestId", req.ID, "err", err)
			outcome.Degraded = append(outcome.Degraded, "attendance")
		} else {
			outcome.AttendanceBlocked = true
		}
	}

	s.recordUnpaidDeduction(ctx, req, &outcome)
	return outcome
}

// recordUnpaidDeduction records a payroll penalty for UNPAID leave:
// durationDays times the employee's daily rate (base salary / 22).
func (s *Service) recordUnpaidDeduction(ctx context.Context, req *LeaveRequest, outcome *FinalizeOutcome) {
	lt, err := s.Policies.TypeByID(ctx, req.LeaveTypeID)
	if err != nil || lt.Code != policy.UnpaidTypeCode {
		return
	}

	emp, err := s.Directory.EmployeeByID(ctx, req.EmployeeID)
	if err != nil {
		slog.Warn("unpaid deduction employee lookup failed", "requestId", req.ID, "err", err)
		outcome.Degraded = append(outcome.Degraded, "payroll")
		return
	}
	if emp.PayGradeID == "" {
		slog.Warn("unpaid deduction skipped, employee has no pay grade", "requestId", req.ID, "employeeId", emp.ID)
		outcome.Degraded = append(outcome.Degraded, "payroll")
		return
	}
	grade, err := s.Directory.PayGradeByID(ctx, emp.PayGradeID)
	if err != nil {
		slog.Warn("unpaid deduction pay grade lookup failed", "requestId", req.ID, "err", err)
		outcome.Degraded = append(outcome.Degraded, "payroll")
		return
	}

	deduction := req.DurationDays * (grade.BaseSalary / workingDaysPerMonth)
	outcome.PayrollDeduction = deduction

	if s.Penalties == nil {
		return
	}
	reason := fmt.Sprintf("unpaid leave %s to %s", req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	if err := s.Penalties.Record(ctx, req.EmployeeID, deduction, reason, s.Now(), "unpaid_leave"); err != nil {
		slog.Warn("unpaid deduction recording failed", "requestId", req.ID, "err", err)
		outcome.Degraded = append(outcome.Degraded, "payroll")
		return
	}
	outcome.DeductionRecorded = true
}
