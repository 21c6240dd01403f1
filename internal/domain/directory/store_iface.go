package directory

import "context"

// Reader is the employee/position/department lookup surface the leave
// subsystem consumes. The durable implementation is Store; tests supply fakes.
type Reader interface {
	EmployeeByID(ctx context.Context, employeeID string) (*Employee, error)
	EmployeeByNumber(ctx context.Context, employeeNumber string) (*Employee, error)
	EmployeesByPosition(ctx context.Context, positionID string) ([]Employee, error)
	EmployeesByCriteria(ctx context.Context, criteria Criteria) ([]Employee, error)
	PositionByID(ctx context.Context, positionID string) (*Position, error)
	DepartmentByID(ctx context.Context, departmentID string) (*Department, error)
	PayGradeByID(ctx context.Context, payGradeID string) (*PayGrade, error)
}
