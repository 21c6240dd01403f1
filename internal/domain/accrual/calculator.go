package accrual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/policy"
)

var (
	ErrPolicyNotFound      = errors.New("no accrual policy configured for leave type")
	ErrUnknownContractType = errors.New("unknown contract type")
	ErrUnknownResetDate    = errors.New("unknown reset date type")
	ErrUnknownMethod       = errors.New("unknown accrual method")
)

// contractRateFactor discounts accrual for contract staff.
var contractRateFactor = decimal.NewFromFloat(0.8)

type PolicyStore interface {
	PolicyByLeaveType(ctx context.Context, leaveTypeID string) (*policy.LeavePolicy, error)
	UpsertPolicy(ctx context.Context, p policy.LeavePolicy) (string, error)
}

// UnpaidHistory reports how many calendar months of approved UNPAID leave an
// employee has taken.
type UnpaidHistory interface {
	UnpaidLeaveMonths(ctx context.Context, employeeID string) (int, error)
}

type Calculator struct {
	Policies  PolicyStore
	Directory directory.Reader
	Unpaid    UnpaidHistory
}

func NewCalculator(policies PolicyStore, dir directory.Reader, unpaid UnpaidHistory) *Calculator {
	return &Calculator{Policies: policies, Directory: dir, Unpaid: unpaid}
}

// AccruedLeave computes accrued days for an employee. Only MONTHLY policies
// accrue (one day per month worked); YEARLY and PER_TERM currently accrue
// nothing. When pauseDuringUnpaid is set, months covered by approved UNPAID
// leave are subtracted. The result is never persisted; accrual is always
// recomputed from months worked.
func (c *Calculator) AccruedLeave(ctx context.Context, employeeID, leaveTypeID string, monthsWorked int, pauseDuringUnpaid bool) (float64, error) {
	pol, err := c.Policies.PolicyByLeaveType(ctx, leaveTypeID)
	if err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrPolicyNotFound, leaveTypeID)
		}
		return 0, err
	}

	accrued := 0
	if pol.AccrualMethod == policy.AccrualMonthly {
		accrued = monthsWorked
	}

	if pauseDuringUnpaid && accrued > 0 {
		unpaidMonths, err := c.Unpaid.UnpaidLeaveMonths(ctx, employeeID)
		if err != nil {
			return 0, err
		}
		accrued -= unpaidMonths
		if accrued < 0 {
			accrued = 0
		}
	}
	return float64(accrued), nil
}

type ConfigureInput struct {
	AccrualRate       float64 `json:"accrualRate"`
	AccrualMethod     string  `json:"accrualMethod"`
	CarryOverCap      float64 `json:"carryOverCap"`
	ResetDateType     string  `json:"resetDateType"`
	RoundingRule      string  `json:"roundingRule"`
	PauseDuringUnpaid bool    `json:"pauseDuringUnpaid"`
	YearlyRate        float64 `json:"yearlyRate"`
	MinNoticeDays     int     `json:"minNoticeDays"`
	MaxConsecutive    int     `json:"maxConsecutiveDays"`
}

type ConfigureResult struct {
	PolicyID     string  `json:"policyId"`
	EmployeeType string  `json:"employeeType"`
	RawAccrued   float64 `json:"rawAccrued"`
	Rounded      float64 `json:"roundedAccrued"`
}

var accrualMethodTable = map[string]string{
	"monthly":  policy.AccrualMonthly,
	"yearly":   policy.AccrualYearly,
	"per_term": policy.AccrualPerTerm,
}

var resetExpiryMonths = map[string]int{
	"annual":    12,
	"quarterly": 3,
	"monthly":   1,
}

// ConfigureAccrualPolicy persists policy configuration and returns the
// accrual the configuration would yield for the given employee. The computed
// numbers themselves are ephemeral; only the policy row is durable.
func (c *Calculator) ConfigureAccrualPolicy(ctx context.Context, employeeRef, leaveTypeID string, monthsWorked int, input ConfigureInput) (*ConfigureResult, error) {
	emp, err := c.Directory.EmployeeByID(ctx, employeeRef)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			return nil, err
		}
		emp, err = c.Directory.EmployeeByNumber(ctx, employeeRef)
		if err != nil {
			return nil, err
		}
	}

	class, err := directory.EmploymentClass(emp.ContractType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContractType, emp.ContractType)
	}

	rate := decimal.NewFromFloat(input.AccrualRate)
	if class == directory.ClassContract {
		rate = rate.Mul(contractRateFactor)
	}

	preRounded := rate.Mul(decimal.NewFromInt(int64(monthsWorked)))
	if input.PauseDuringUnpaid {
		unpaidMonths, err := c.Unpaid.UnpaidLeaveMonths(ctx, emp.ID)
		if err != nil {
			return nil, err
		}
		preRounded = preRounded.Sub(rate.Mul(decimal.NewFromInt(int64(unpaidMonths))))
	}
	if preRounded.IsNegative() {
		preRounded = decimal.Zero
	}

	rounded, err := ApplyRounding(preRounded, input.RoundingRule)
	if err != nil {
		return nil, err
	}

	method, ok := accrualMethodTable[input.AccrualMethod]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, input.AccrualMethod)
	}
	expiry, ok := resetExpiryMonths[input.ResetDateType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResetDate, input.ResetDateType)
	}

	rateValue, _ := rate.Float64()
	policyID, err := c.Policies.UpsertPolicy(ctx, policy.LeavePolicy{
		LeaveTypeID:         leaveTypeID,
		YearlyRate:          input.YearlyRate,
		AccrualMethod:       method,
		AccrualRate:         rateValue,
		CarryForwardAllowed: input.CarryOverCap > 0,
		MaxCarryForward:     input.CarryOverCap,
		ExpiryAfterMonths:   expiry,
		RoundingRule:        normalizeRounding(input.RoundingRule),
		MinNoticeDays:       input.MinNoticeDays,
		MaxConsecutiveDays:  input.MaxConsecutive,
		PauseDuringUnpaid:   input.PauseDuringUnpaid,
	})
	if err != nil {
		return nil, err
	}

	raw, _ := preRounded.Float64()
	roundedValue, _ := rounded.Float64()
	return &ConfigureResult{
		PolicyID:     policyID,
		EmployeeType: class,
		RawAccrued:   raw,
		Rounded:      roundedValue,
	}, nil
}

// MonthsWorked counts whole calendar months between hire date and now.
func MonthsWorked(hireDate, now time.Time) int {
	if hireDate.IsZero() || hireDate.After(now) {
		return 0
	}
	months := (now.Year()-hireDate.Year())*12 + int(now.Month()) - int(hireDate.Month())
	if now.Day() < hireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
