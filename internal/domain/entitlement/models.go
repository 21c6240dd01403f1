package entitlement

import "time"

// Entitlement is the per (employee, leave type) ledger row. Remaining may go
// negative when usage is finalized against an employee with no prior record.
type Entitlement struct {
	ID                string    `json:"id"`
	EmployeeID        string    `json:"employeeId"`
	LeaveTypeID       string    `json:"leaveTypeId"`
	YearlyEntitlement float64   `json:"yearlyEntitlement"`
	Taken             float64   `json:"taken"`
	Remaining         float64   `json:"remaining"`
	Pending           float64   `json:"pending"`
	Reason            string    `json:"reason,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Adjustment struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	LeaveTypeID string    `json:"leaveTypeId"`
	Amount      float64   `json:"amount"`
	Reason      string    `json:"reason"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type GroupAssignment struct {
	LeaveTypeRef      string    `json:"leaveTypeId"`
	YearlyEntitlement float64   `json:"yearlyEntitlement"`
	Reason            string    `json:"reason,omitempty"`
	EmployeeIDs       []string  `json:"employeeIds,omitempty"`
	Criteria          *Criteria `json:"criteria,omitempty"`
}

// Criteria mirrors directory.Criteria for transport decoding.
type Criteria struct {
	DepartmentID string `json:"departmentId,omitempty"`
	PositionID   string `json:"positionId,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	ContractType string `json:"contractType,omitempty"`
}

type GroupResult struct {
	Assigned    int      `json:"assigned"`
	EmployeeIDs []string `json:"employeeIds"`
}
