package accrual

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/policy"
)

type fakePolicies struct {
	policies map[string]*policy.LeavePolicy
	upserted *policy.LeavePolicy
}

func (f *fakePolicies) PolicyByLeaveType(_ context.Context, leaveTypeID string) (*policy.LeavePolicy, error) {
	p, ok := f.policies[leaveTypeID]
	if !ok {
		return nil, policy.ErrNotFound
	}
	return p, nil
}

func (f *fakePolicies) UpsertPolicy(_ context.Context, p policy.LeavePolicy) (string, error) {
	f.upserted = &p
	return "pol-1", nil
}

type fakeDirectory struct {
	employees map[string]*directory.Employee
}

func (f *fakeDirectory) EmployeeByID(_ context.Context, id string) (*directory.Employee, error) {
	if emp, ok := f.employees[id]; ok {
		return emp, nil
	}
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) EmployeeByNumber(_ context.Context, number string) (*directory.Employee, error) {
	for _, emp := range f.employees {
		if emp.EmployeeNumber == number {
			return emp, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) EmployeesByPosition(context.Context, string) ([]directory.Employee, error) {
	return nil, nil
}

func (f *fakeDirectory) EmployeesByCriteria(context.Context, directory.Criteria) ([]directory.Employee, error) {
	return nil, nil
}

func (f *fakeDirectory) PositionByID(context.Context, string) (*directory.Position, error) {
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) DepartmentByID(context.Context, string) (*directory.Department, error) {
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) PayGradeByID(context.Context, string) (*directory.PayGrade, error) {
	return nil, directory.ErrNotFound
}

type fakeUnpaid struct {
	months int
}

func (f *fakeUnpaid) UnpaidLeaveMonths(context.Context, string) (int, error) {
	return f.months, nil
}

func newTestCalculator(contractType string, unpaidMonths int) (*Calculator, *fakePolicies) {
	policies := &fakePolicies{policies: map[string]*policy.LeavePolicy{}}
	dir := &fakeDirectory{employees: map[string]*directory.Employee{
		"emp-1": {ID: "emp-1", EmployeeNumber: "E001", ContractType: contractType},
	}}
	return NewCalculator(policies, dir, &fakeUnpaid{months: unpaidMonths}), policies
}

func TestConfigureAccrualPolicyRounding(t *testing.T) {
	// 2.3/month over 3 months = 6.9 raw.
	cases := []struct {
		rule string
		want float64
	}{
		{"none", 6.9},
		{"round", 7},
		{"round_down", 6},
		{"round_up", 7},
	}
	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			calc, _ := newTestCalculator("permanent", 0)
			result, err := calc.ConfigureAccrualPolicy(context.Background(), "emp-1", "type-1", 3, ConfigureInput{
				AccrualRate:   2.3,
				AccrualMethod: "monthly",
				ResetDateType: "annual",
				RoundingRule:  tc.rule,
			})
			require.NoError(t, err)
			assert.Equal(t, directory.ClassPermanent, result.EmployeeType)
			assert.InDelta(t, 6.9, result.RawAccrued, 0.0001)
			assert.InDelta(t, tc.want, result.Rounded, 0.0001)
		})
	}
}

func TestConfigureAccrualPolicyContractDiscount(t *testing.T) {
	calc, policies := newTestCalculator("contract", 0)

	result, err := calc.ConfigureAccrualPolicy(context.Background(), "emp-1", "type-1", 10, ConfigureInput{
		AccrualRate:   2,
		AccrualMethod: "monthly",
		ResetDateType: "annual",
		RoundingRule:  "none",
	})
	require.NoError(t, err)

	assert.Equal(t, directory.ClassContract, result.EmployeeType)
	assert.InDelta(t, 16, result.RawAccrued, 0.0001) // 2 * 0.8 * 10
	require.NotNil(t, policies.upserted)
	assert.InDelta(t, 1.6, policies.upserted.AccrualRate, 0.0001)
}

func TestConfigureAccrualPolicyUnknownContract(t *testing.T) {
	calc, _ := newTestCalculator("freelance", 0)

	_, err := calc.ConfigureAccrualPolicy(context.Background(), "emp-1", "type-1", 3, ConfigureInput{
		AccrualRate:   1,
		AccrualMethod: "monthly",
		ResetDateType: "annual",
	})
	require.ErrorIs(t, err, ErrUnknownContractType)
}

func TestConfigureAccrualPolicyUnknownMethodAndReset(t *testing.T) {
	calc, _ := newTestCalculator("permanent", 0)

	_, err := calc.ConfigureAccrualPolicy(context.Background(), "emp-1", "type-1", 3, ConfigureInput{
		AccrualRate:   1,
		AccrualMethod: "weekly",
		ResetDateType: "annual",
	})
	require.ErrorIs(t, err, ErrUnknownMethod)

	_, err = calc.ConfigureAccrualPolicy(context.Background(), "emp-1", "type-1", 3, ConfigureInput{
		AccrualRate:   1,
		AccrualMethod: "monthly",
		ResetDateType: "biweekly",
	})
	require.ErrorIs(t, err, ErrUnknownResetDate)
}

func TestConfigureAccrualPolicyPausesDuringUnpaid(t *testing.T) {
	calc, _ := newTestCalculator("permanent", 2)

	result, err := calc.ConfigureAccrualPolicy(context.Background(), "emp-1", "type-1", 6, ConfigureInput{
		AccrualRate:       1.5,
		AccrualMethod:     "monthly",
		ResetDateType:     "annual",
		PauseDuringUnpaid: true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 6, result.RawAccrued, 0.0001) // (6-2) * 1.5
}

func TestConfigureAccrualPolicyResolvesByNumber(t *testing.T) {
	calc, _ := newTestCalculator("permanent", 0)

	result, err := calc.ConfigureAccrualPolicy(context.Background(), "E001", "type-1", 1, ConfigureInput{
		AccrualRate:   1,
		AccrualMethod: "monthly",
		ResetDateType: "annual",
	})
	require.NoError(t, err)
	assert.InDelta(t, 1, result.RawAccrued, 0.0001)
}

func TestAccruedLeave(t *testing.T) {
	policies := &fakePolicies{policies: map[string]*policy.LeavePolicy{
		"monthly-type": {LeaveTypeID: "monthly-type", AccrualMethod: policy.AccrualMonthly},
		"yearly-type":  {LeaveTypeID: "yearly-type", AccrualMethod: policy.AccrualYearly},
	}}
	calc := NewCalculator(policies, &fakeDirectory{}, &fakeUnpaid{months: 2})

	got, err := calc.AccruedLeave(context.Background(), "emp-1", "monthly-type", 7, false)
	require.NoError(t, err)
	assert.InDelta(t, 7, got, 0.0001)

	got, err = calc.AccruedLeave(context.Background(), "emp-1", "monthly-type", 7, true)
	require.NoError(t, err)
	assert.InDelta(t, 5, got, 0.0001)

	// Pausing can never drive accrual negative.
	got, err = calc.AccruedLeave(context.Background(), "emp-1", "monthly-type", 1, true)
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = calc.AccruedLeave(context.Background(), "emp-1", "yearly-type", 7, false)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = calc.AccruedLeave(context.Background(), "emp-1", "missing", 7, false)
	require.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestApplyRoundingUnknownRule(t *testing.T) {
	_, err := ApplyRounding(decimal.NewFromFloat(1.2), "banker")
	require.Error(t, err)
}

func TestMonthsWorked(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		hire time.Time
		want int
	}{
		{"same month", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 0},
		{"partial month not counted", time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC), 2},
		{"whole months", time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), 3},
		{"across years", time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), 24},
		{"future hire", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{"zero hire date", time.Time{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MonthsWorked(tc.hire, now))
		})
	}
}
