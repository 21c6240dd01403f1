package directory

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Employment classes used by leave accrual; mapped from raw contract types.
const (
	ClassPermanent = "PERMANENT"
	ClassContract  = "CONTRACT"
)

type Employee struct {
	ID                   string     `json:"id"`
	EmployeeNumber       string     `json:"employeeNumber"`
	FirstName            string     `json:"firstName"`
	LastName             string     `json:"lastName"`
	Email                string     `json:"email"`
	DateOfHire           *time.Time `json:"dateOfHire,omitempty"`
	ContractType         string     `json:"contractType"`
	Grade                string     `json:"grade,omitempty"`
	PrimaryPositionID    string     `json:"primaryPositionId"`
	PrimaryDepartmentID  string     `json:"primaryDepartmentId"`
	SupervisorPositionID string     `json:"supervisorPositionId"`
	LocationID           string     `json:"locationId"`
	PayGradeID           string     `json:"payGradeId"`
	Status               string     `json:"status"`
}

type Position struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	ReportsToPositionID string `json:"reportsToPositionId"`
}

type Department struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	HeadPositionID string `json:"headPositionId"`
}

type PayGrade struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	BaseSalary float64 `json:"baseSalary"`
}

// Criteria filters active employees for group entitlement assignment.
type Criteria struct {
	DepartmentID string `json:"departmentId,omitempty"`
	PositionID   string `json:"positionId,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	ContractType string `json:"contractType,omitempty"`
}

func (c Criteria) Empty() bool {
	return c.DepartmentID == "" && c.PositionID == "" && c.LocationID == "" && c.ContractType == ""
}
