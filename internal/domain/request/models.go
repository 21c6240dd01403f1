package request

import "time"

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Approval flow roles. HRSystem marks synthetic entries created by the
// retroactive-deduction path.
const (
	RoleManager  = "MANAGER"
	RoleHR       = "HR"
	RoleHRSystem = "HR_SYSTEM"
)

const (
	DecisionPending  = "PENDING"
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// ApprovalEntry is one decision point in a request's approval flow. The flow
// records every decision independently of the request's top-level status.
type ApprovalEntry struct {
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	Approver  string     `json:"approver,omitempty"`
	DecidedBy string     `json:"decidedBy,omitempty"`
	DecidedAt *time.Time `json:"decidedAt,omitempty"`
	Comment   string     `json:"comment,omitempty"`
}

type LeaveRequest struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employeeId"`
	LeaveTypeID   string          `json:"leaveTypeId"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	DurationDays  float64         `json:"durationDays"`
	Justification string          `json:"justification"`
	AttachmentID  string          `json:"attachmentId,omitempty"`
	Status        string          `json:"status"`
	ApprovalFlow  []ApprovalEntry `json:"approvalFlow"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type SubmitInput struct {
	EmployeeID    string    `json:"employeeId"`
	LeaveTypeID   string    `json:"leaveTypeId"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	Justification string    `json:"justification"`
	AttachmentID  string    `json:"attachmentId,omitempty"`
}

// SubmitResult is the tagged outcome of a submission. A request fully covered
// by balance sets Paid only; an excess-to-unpaid conversion sets both (Paid is
// nil when the balance was zero or negative).
type SubmitResult struct {
	Paid   *LeaveRequest `json:"paidRequest,omitempty"`
	Unpaid *LeaveRequest `json:"unpaidRequest,omitempty"`
	Split  bool          `json:"split"`
}

// FinalizeOutcome enumerates which finalization side effects succeeded. The
// entitlement update is the only mandatory one; the rest degrade to warnings.
type FinalizeOutcome struct {
	BalanceUpdated    bool     `json:"balanceUpdated"`
	EmployeeNotified  bool     `json:"employeeNotified"`
	AttendanceBlocked bool     `json:"attendanceBlocked"`
	PayrollDeduction  float64  `json:"payrollDeduction,omitempty"`
	DeductionRecorded bool     `json:"deductionRecorded"`
	Degraded          []string `json:"degraded,omitempty"`
}

type AttachmentMeta struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}
