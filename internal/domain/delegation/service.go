package delegation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leavehub/internal/domain/directory"
)

// maxHierarchyDepth bounds the reports-to traversal; it guards against cyclic
// or unterminated position chains.
const maxHierarchyDepth = 5

var (
	ErrNotFound         = errors.New("delegation not found")
	ErrDelegateMismatch = errors.New("delegate does not match delegation")
	ErrAlreadyRejected  = errors.New("delegation was already rejected")
	ErrNoManagerFound   = errors.New("no manager found in hierarchy")
	ErrSelfDelegation   = errors.New("cannot delegate to yourself")
)

type DelegationStore interface {
	Upsert(ctx context.Context, d Delegation) error
	ByManager(ctx context.Context, managerID string) (*Delegation, error)
	SetStatus(ctx context.Context, managerID, status string, isActive bool) error
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}

type Service struct {
	Store     DelegationStore
	Directory directory.Reader
}

func NewService(store DelegationStore, dir directory.Reader) *Service {
	return &Service{Store: store, Directory: dir}
}

// Set creates or replaces the manager's delegation, pending until the
// delegate accepts.
func (s *Service) Set(ctx context.Context, managerID, delegateID string, start time.Time, end *time.Time) error {
	if managerID == delegateID {
		return ErrSelfDelegation
	}
	if _, err := s.Directory.EmployeeByID(ctx, delegateID); err != nil {
		return fmt.Errorf("delegate lookup: %w", err)
	}
	if end != nil && end.Before(start) {
		return fmt.Errorf("delegation end date before start date")
	}
	return s.Store.Upsert(ctx, Delegation{
		ManagerID:  managerID,
		DelegateID: delegateID,
		StartDate:  start,
		EndDate:    end,
		IsActive:   true,
		Status:     StatusPending,
	})
}

func (s *Service) Revoke(ctx context.Context, managerID string) error {
	if _, err := s.Store.ByManager(ctx, managerID); err != nil {
		return err
	}
	return s.Store.SetStatus(ctx, managerID, "", false)
}

// Accept transitions a pending delegation to accepted. Only the named
// delegate may accept, and a rejected delegation stays rejected.
func (s *Service) Accept(ctx context.Context, managerID, delegateID string) error {
	d, err := s.Store.ByManager(ctx, managerID)
	if err != nil {
		return err
	}
	if d.DelegateID != delegateID {
		return ErrDelegateMismatch
	}
	if d.Status == StatusRejected {
		return ErrAlreadyRejected
	}
	return s.Store.SetStatus(ctx, managerID, StatusAccepted, true)
}

func (s *Service) Reject(ctx context.Context, managerID, delegateID string) error {
	d, err := s.Store.ByManager(ctx, managerID)
	if err != nil {
		return err
	}
	if d.DelegateID != delegateID {
		return ErrDelegateMismatch
	}
	return s.Store.SetStatus(ctx, managerID, StatusRejected, false)
}

func (s *Service) Status(ctx context.Context, managerID string, at time.Time) (*StatusResult, error) {
	d, err := s.Store.ByManager(ctx, managerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &StatusResult{}, nil
		}
		return nil, err
	}
	return &StatusResult{
		Exists:     true,
		Active:     d.IsActive && d.Status == StatusAccepted && d.covers(at),
		Status:     d.Status,
		DelegateID: d.DelegateID,
		StartDate:  &d.StartDate,
		EndDate:    d.EndDate,
	}, nil
}

// ActiveDelegate returns the delegate iff an accepted, active delegation
// covers the date; otherwise the manager id is returned unchanged.
func (s *Service) ActiveDelegate(ctx context.Context, managerID string, at time.Time) string {
	d, err := s.Store.ByManager(ctx, managerID)
	if err != nil {
		return managerID
	}
	if !d.IsActive || d.Status != StatusAccepted || !d.covers(at) {
		return managerID
	}
	return d.DelegateID
}

// ApproverForEmployee resolves the effective approver for an employee's
// request: the first holder of the supervisor position (array order wins),
// with any active delegation applied; escalates through the hierarchy when no
// holder exists.
func (s *Service) ApproverForEmployee(ctx context.Context, employeeID string, at time.Time) (string, error) {
	emp, err := s.Directory.EmployeeByID(ctx, employeeID)
	if err != nil {
		return "", err
	}

	if emp.SupervisorPositionID != "" {
		holders, err := s.Directory.EmployeesByPosition(ctx, emp.SupervisorPositionID)
		if err != nil {
			return "", err
		}
		for _, holder := range holders {
			if holder.ID == employeeID {
				continue
			}
			return s.ActiveDelegate(ctx, holder.ID, at), nil
		}
	}

	startPosition := emp.SupervisorPositionID
	if startPosition == "" {
		startPosition = emp.PrimaryPositionID
	}
	return s.UpperManagerInHierarchy(ctx, startPosition, at, "")
}

// UpperManagerInHierarchy walks the reports-to chain looking for a position
// holder, at most maxHierarchyDepth hops. The fallback manager id, when
// given, is returned instead of failing once the chain is exhausted.
func (s *Service) UpperManagerInHierarchy(ctx context.Context, positionID string, at time.Time, fallbackManagerID string) (string, error) {
	current := positionID
	for depth := 0; depth < maxHierarchyDepth && current != ""; depth++ {
		pos, err := s.Directory.PositionByID(ctx, current)
		if err != nil {
			break
		}
		next := pos.ReportsToPositionID
		if next == "" {
			break
		}
		holders, err := s.Directory.EmployeesByPosition(ctx, next)
		if err != nil {
			return "", err
		}
		if len(holders) > 0 {
			return s.ActiveDelegate(ctx, holders[0].ID, at), nil
		}
		current = next
	}
	if fallbackManagerID != "" {
		return fallbackManagerID, nil
	}
	return "", ErrNoManagerFound
}

// VerifyManagerAuthorization reports whether managerID may decide on the
// employee's requests. Lookup failures deny rather than propagate.
func (s *Service) VerifyManagerAuthorization(ctx context.Context, employee *directory.Employee, managerID string, at time.Time) bool {
	if employee == nil || managerID == "" {
		return false
	}

	manager, err := s.Directory.EmployeeByID(ctx, managerID)
	if err != nil {
		return false
	}

	// Direct supervisor.
	if employee.SupervisorPositionID != "" && manager.PrimaryPositionID == employee.SupervisorPositionID {
		return true
	}

	// Department head.
	if employee.PrimaryDepartmentID != "" {
		if dept, err := s.Directory.DepartmentByID(ctx, employee.PrimaryDepartmentID); err == nil {
			if dept.HeadPositionID != "" && dept.HeadPositionID == manager.PrimaryPositionID {
				return true
			}
		}
	}

	// Anywhere on the employee's position-ancestor chain.
	current := employee.SupervisorPositionID
	for depth := 0; depth < maxHierarchyDepth && current != ""; depth++ {
		if current == manager.PrimaryPositionID {
			return true
		}
		pos, err := s.Directory.PositionByID(ctx, current)
		if err != nil {
			break
		}
		current = pos.ReportsToPositionID
	}

	// Accepted, date-valid delegate of the direct manager.
	if employee.SupervisorPositionID != "" {
		holders, err := s.Directory.EmployeesByPosition(ctx, employee.SupervisorPositionID)
		if err == nil {
			for _, holder := range holders {
				if delegate := s.ActiveDelegate(ctx, holder.ID, at); delegate == managerID && delegate != holder.ID {
					return true
				}
			}
		}
	}

	return false
}

// SweepExpired deactivates delegations whose end date has passed.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	return s.Store.DeactivateExpired(ctx, now)
}
