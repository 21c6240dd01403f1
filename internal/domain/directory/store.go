package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// EmploymentClass maps a raw contract type onto the accrual classes.
func EmploymentClass(contractType string) (string, error) {
	switch contractType {
	case "permanent", "probation":
		return ClassPermanent, nil
	case "contract", "temporary", "intern":
		return ClassContract, nil
	default:
		return "", fmt.Errorf("unknown contract type %q", contractType)
	}
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
  id, employee_number, first_name, last_name, email, date_of_hire, contract_type,
  COALESCE(grade, ''), COALESCE(primary_position_id::text, ''), COALESCE(primary_department_id::text, ''),
  COALESCE(supervisor_position_id::text, ''), COALESCE(location_id::text, ''), COALESCE(pay_grade_id::text, ''), status
`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.DateOfHire, &emp.ContractType, &emp.Grade, &emp.PrimaryPositionID,
		&emp.PrimaryDepartmentID, &emp.SupervisorPositionID, &emp.LocationID,
		&emp.PayGradeID, &emp.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) EmployeeByID(ctx context.Context, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", employeeID)
	return scanEmployee(row)
}

func (s *Store) EmployeeByNumber(ctx context.Context, employeeNumber string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE employee_number = $1", employeeNumber)
	return scanEmployee(row)
}

func (s *Store) EmployeesByPosition(ctx context.Context, positionID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+employeeColumns+` FROM employees WHERE primary_position_id = $1 AND status = $2 ORDER BY created_at`, positionID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmployees(rows)
}

func (s *Store) EmployeesByCriteria(ctx context.Context, criteria Criteria) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE status = $1"
	args := []any{StatusActive}
	if criteria.DepartmentID != "" {
		args = append(args, criteria.DepartmentID)
		query += fmt.Sprintf(" AND primary_department_id = $%d", len(args))
	}
	if criteria.PositionID != "" {
		args = append(args, criteria.PositionID)
		query += fmt.Sprintf(" AND primary_position_id = $%d", len(args))
	}
	if criteria.LocationID != "" {
		args = append(args, criteria.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	if criteria.ContractType != "" {
		args = append(args, criteria.ContractType)
		query += fmt.Sprintf(" AND contract_type = $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmployees(rows)
}

func collectEmployees(rows pgx.Rows) ([]Employee, error) {
	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) PositionByID(ctx context.Context, positionID string) (*Position, error) {
	var pos Position
	err := s.DB.QueryRow(ctx, `
    SELECT id, title, COALESCE(reports_to_position_id::text, '')
    FROM positions
    WHERE id = $1
  `, positionID).Scan(&pos.ID, &pos.Title, &pos.ReportsToPositionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

func (s *Store) DepartmentByID(ctx context.Context, departmentID string) (*Department, error) {
	var dept Department
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(head_position_id::text, '')
    FROM departments
    WHERE id = $1
  `, departmentID).Scan(&dept.ID, &dept.Name, &dept.HeadPositionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (s *Store) PayGradeByID(ctx context.Context, payGradeID string) (*PayGrade, error) {
	var grade PayGrade
	err := s.DB.QueryRow(ctx, "SELECT id, name, base_salary FROM pay_grades WHERE id = $1", payGradeID).Scan(&grade.ID, &grade.Name, &grade.BaseSalary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &grade, nil
}
