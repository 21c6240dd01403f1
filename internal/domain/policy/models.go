package policy

import "time"

// Accrual methods. Only MONTHLY currently adds days; YEARLY and PER_TERM are
// accepted configuration but accrue nothing (see accrual.Calculator).
const (
	AccrualMonthly = "MONTHLY"
	AccrualYearly  = "YEARLY"
	AccrualPerTerm = "PER_TERM"
)

const (
	RoundingNone = "NONE"
	RoundingHalf = "ROUND"
	RoundingUp   = "ROUND_UP"
	RoundingDown = "ROUND_DOWN"
)

// UnpaidTypeCode identifies the leave type used for excess-to-unpaid
// conversion and payroll deduction.
const UnpaidTypeCode = "UNPAID"

type LeaveCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type ApprovalStep struct {
	Role  string `json:"role"`
	Level int    `json:"level"`
}

type LeaveType struct {
	ID                 string         `json:"id"`
	Code               string         `json:"code"`
	Name               string         `json:"name"`
	CategoryID         string         `json:"categoryId"`
	IsPaid             bool           `json:"isPaid"`
	IsDeductible       bool           `json:"isDeductible"`
	RequiresAttachment bool           `json:"requiresAttachment"`
	AttachmentType     string         `json:"attachmentType,omitempty"`
	MinTenureMonths    int            `json:"minTenureMonths"`
	MaxDurationDays    int            `json:"maxDurationDays"`
	PayrollCode        string         `json:"payrollCode,omitempty"`
	ApprovalWorkflow   []ApprovalStep `json:"approvalWorkflow,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// EligibilityCriteria is a closed struct rather than an open map; absent
// fields impose no restriction.
type EligibilityCriteria struct {
	MinTenureMonths      *int     `json:"minTenureMonths,omitempty"`
	ContractTypesAllowed []string `json:"contractTypesAllowed,omitempty"`
	Grade                string   `json:"grade,omitempty"`
	PositionsAllowed     []string `json:"positionsAllowed,omitempty"`
	LocationsAllowed     []string `json:"locationsAllowed,omitempty"`
}

type LeavePolicy struct {
	ID                  string              `json:"id"`
	LeaveTypeID         string              `json:"leaveTypeId"`
	Eligibility         EligibilityCriteria `json:"eligibility"`
	YearlyRate          float64             `json:"yearlyRate"`
	AccrualMethod       string              `json:"accrualMethod"`
	AccrualRate         float64             `json:"accrualRate"`
	CarryForwardAllowed bool                `json:"carryForwardAllowed"`
	MaxCarryForward     float64             `json:"maxCarryForward"`
	ExpiryAfterMonths   int                 `json:"expiryAfterMonths"`
	RoundingRule        string              `json:"roundingRule"`
	MinNoticeDays       int                 `json:"minNoticeDays"`
	MaxConsecutiveDays  int                 `json:"maxConsecutiveDays"`
	PauseDuringUnpaid   bool                `json:"pauseDuringUnpaid"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// TypePatch carries the partially-updatable LeaveType fields. Code is
// immutable identity and deliberately absent.
type TypePatch struct {
	Name               *string `json:"name,omitempty"`
	CategoryID         *string `json:"categoryId,omitempty"`
	IsPaid             *bool   `json:"isPaid,omitempty"`
	IsDeductible       *bool   `json:"isDeductible,omitempty"`
	RequiresAttachment *bool   `json:"requiresAttachment,omitempty"`
	AttachmentType     *string `json:"attachmentType,omitempty"`
	MinTenureMonths    *int    `json:"minTenureMonths,omitempty"`
	MaxDurationDays    *int    `json:"maxDurationDays,omitempty"`
	PayrollCode        *string `json:"payrollCode,omitempty"`
}
