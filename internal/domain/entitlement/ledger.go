package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leavehub/internal/domain/accrual"
	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/policy"
)

var (
	ErrNoEmployeesMatched = errors.New("no employees matched the assignment criteria")
	ErrEmployeeRequired   = errors.New("employee id required")
)

type LedgerStore interface {
	Get(ctx context.Context, employeeID, leaveTypeID string) (*Entitlement, error)
	UpsertYearly(ctx context.Context, employeeID, leaveTypeID string, yearly float64, reason string) error
	ApplyUsage(ctx context.Context, employeeID, leaveTypeID string, days float64) error
	ListForEmployee(ctx context.Context, employeeID string) ([]Entitlement, error)
	RecordAdjustment(ctx context.Context, adj Adjustment) error
	AdjustBalance(ctx context.Context, employeeID, leaveTypeID string, amount float64) error
}

type TypeResolver interface {
	TypeByIDOrCode(ctx context.Context, ref string) (*policy.LeaveType, error)
}

// ApprovedUsage reports total approved leave days per employee and type.
type ApprovedUsage interface {
	SumApprovedDays(ctx context.Context, employeeID, leaveTypeID string) (float64, error)
}

type AccrualCalculator interface {
	AccruedLeave(ctx context.Context, employeeID, leaveTypeID string, monthsWorked int, pauseDuringUnpaid bool) (float64, error)
}

type Ledger struct {
	Store     LedgerStore
	Types     TypeResolver
	Directory directory.Reader
	Accrual   AccrualCalculator
	Usage     ApprovedUsage
	Now       func() time.Time
}

func NewLedger(store LedgerStore, types TypeResolver, dir directory.Reader, calc AccrualCalculator, usage ApprovedUsage) *Ledger {
	return &Ledger{Store: store, Types: types, Directory: dir, Accrual: calc, Usage: usage, Now: time.Now}
}

// SetPersonalized overrides the yearly entitlement for one employee. Taken
// and remaining are left untouched.
func (l *Ledger) SetPersonalized(ctx context.Context, employeeID, leaveTypeRef string, yearly float64, reason string) error {
	if employeeID == "" {
		return ErrEmployeeRequired
	}
	lt, err := l.Types.TypeByIDOrCode(ctx, leaveTypeRef)
	if err != nil {
		return err
	}
	return l.Store.UpsertYearly(ctx, employeeID, lt.ID, yearly, reason)
}

// SetPersonalizedForGroup applies the single-employee override to an explicit
// id list or to the active employees matching criteria.
func (l *Ledger) SetPersonalizedForGroup(ctx context.Context, input GroupAssignment) (*GroupResult, error) {
	lt, err := l.Types.TypeByIDOrCode(ctx, input.LeaveTypeRef)
	if err != nil {
		return nil, err
	}

	ids := input.EmployeeIDs
	if len(ids) == 0 {
		if input.Criteria == nil || (directory.Criteria{
			DepartmentID: input.Criteria.DepartmentID,
			PositionID:   input.Criteria.PositionID,
			LocationID:   input.Criteria.LocationID,
			ContractType: input.Criteria.ContractType,
		}).Empty() {
			return nil, fmt.Errorf("%w: provide employee ids or criteria", ErrNoEmployeesMatched)
		}
		employees, err := l.Directory.EmployeesByCriteria(ctx, directory.Criteria{
			DepartmentID: input.Criteria.DepartmentID,
			PositionID:   input.Criteria.PositionID,
			LocationID:   input.Criteria.LocationID,
			ContractType: input.Criteria.ContractType,
		})
		if err != nil {
			return nil, err
		}
		for _, emp := range employees {
			ids = append(ids, emp.ID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoEmployeesMatched
	}

	for _, id := range ids {
		if err := l.Store.UpsertYearly(ctx, id, lt.ID, input.YearlyEntitlement, input.Reason); err != nil {
			return nil, err
		}
	}
	return &GroupResult{Assigned: len(ids), EmployeeIDs: ids}, nil
}

// Balance computes the current available days: accrual since hire (unpaid
// months always pause accrual here, independent of the stored policy flag)
// minus all approved usage.
func (l *Ledger) Balance(ctx context.Context, employeeID, leaveTypeID string) (float64, error) {
	emp, err := l.Directory.EmployeeByID(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	monthsWorked := 0
	if emp.DateOfHire != nil {
		monthsWorked = accrual.MonthsWorked(*emp.DateOfHire, l.Now())
	}

	accrued, err := l.Accrual.AccruedLeave(ctx, employeeID, leaveTypeID, monthsWorked, true)
	if err != nil {
		return 0, err
	}

	used, err := l.Usage.SumApprovedDays(ctx, employeeID, leaveTypeID)
	if err != nil {
		return 0, err
	}
	return accrued - used, nil
}

// ApplyUsage applies finalized leave: taken increases by days and remaining
// is recomputed as yearlyEntitlement - taken. The row is created lazily, so a
// first-ever finalization can leave remaining negative.
func (l *Ledger) ApplyUsage(ctx context.Context, employeeID, leaveTypeID string, days float64) error {
	return l.Store.ApplyUsage(ctx, employeeID, leaveTypeID, days)
}

func (l *Ledger) ListForEmployee(ctx context.Context, employeeID string) ([]Entitlement, error) {
	return l.Store.ListForEmployee(ctx, employeeID)
}

func (l *Ledger) Get(ctx context.Context, employeeID, leaveTypeID string) (*Entitlement, error) {
	return l.Store.Get(ctx, employeeID, leaveTypeID)
}

// Adjust records a manual balance change plus its audit row.
func (l *Ledger) Adjust(ctx context.Context, employeeID, leaveTypeRef string, amount float64, reason, actorID string) error {
	lt, err := l.Types.TypeByIDOrCode(ctx, leaveTypeRef)
	if err != nil {
		return err
	}
	if err := l.Store.AdjustBalance(ctx, employeeID, lt.ID, amount); err != nil {
		return err
	}
	return l.Store.RecordAdjustment(ctx, Adjustment{
		EmployeeID:  employeeID,
		LeaveTypeID: lt.ID,
		Amount:      amount,
		Reason:      reason,
		CreatedBy:   actorID,
	})
}
