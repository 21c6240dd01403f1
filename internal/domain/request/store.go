package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/policy"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const requestColumns = `id, employee_id, leave_type_id, start_date, end_date, duration_days,
  COALESCE(justification, ''), COALESCE(attachment_id::text, ''), status, approval_flow, created_at, updated_at`

func (s *Store) Create(ctx context.Context, req *LeaveRequest) error {
	flow, err := json.Marshal(req.ApprovalFlow)
	if err != nil {
		return fmt.Errorf("marshal approval flow: %w", err)
	}
	return s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, duration_days, justification, attachment_id, status, approval_flow)
    VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,'')::uuid,$8,$9)
    RETURNING id, created_at, updated_at
  `, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.DurationDays,
		req.Justification, req.AttachmentID, req.Status, flow,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (s *Store) Get(ctx context.Context, requestID string) (*LeaveRequest, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = $1`, requestID)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (s *Store) Update(ctx context.Context, req *LeaveRequest) error {
	flow, err := json.Marshal(req.ApprovalFlow)
	if err != nil {
		return fmt.Errorf("marshal approval flow: %w", err)
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approval_flow = $3, updated_at = now()
    WHERE id = $1
  `, req.ID, req.Status, flow)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter ListFilter) ([]LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.EmployeeID != "" {
		query += fmt.Sprintf(" AND employee_id = $%d", idx)
		args = append(args, filter.EmployeeID)
		idx++
	}
	if filter.LeaveTypeID != "" {
		query += fmt.Sprintf(" AND leave_type_id = $%d", idx)
		args = append(args, filter.LeaveTypeID)
		idx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, filter.Offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *Store) HasOverlapping(ctx context.Context, employeeID string, from, to time.Time, statuses []string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE employee_id = $1
        AND status = ANY($2)
        AND start_date <= $4
        AND end_date >= $3
    )
  `, employeeID, statuses, from, to).Scan(&exists)
	return exists, err
}

func (s *Store) SumApprovedDaysInYear(ctx context.Context, employeeID, leaveTypeID string, year int) (float64, error) {
	var total float64
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(duration_days), 0)
    FROM leave_requests
    WHERE employee_id = $1 AND leave_type_id = $2 AND status = $3
      AND EXTRACT(YEAR FROM start_date) = $4
  `, employeeID, leaveTypeID, StatusApproved, year).Scan(&total)
	return total, err
}

func (s *Store) SumApprovedDays(ctx context.Context, employeeID, leaveTypeID string) (float64, error) {
	var total float64
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(duration_days), 0)
    FROM leave_requests
    WHERE employee_id = $1 AND leave_type_id = $2 AND status = $3
  `, employeeID, leaveTypeID, StatusApproved).Scan(&total)
	return total, err
}

func (s *Store) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE status = $1 AND created_at < $2
    ORDER BY created_at ASC
  `, StatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *Store) ApprovedOverlapCountInDepartment(ctx context.Context, departmentID string, from, to time.Time, excludeEmployeeID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*)
    FROM leave_requests lr
    JOIN employees e ON e.id = lr.employee_id
    WHERE e.primary_department_id = $1
      AND lr.employee_id <> $2
      AND lr.status = $3
      AND lr.start_date <= $5
      AND lr.end_date >= $4
  `, departmentID, excludeEmployeeID, StatusApproved, from, to).Scan(&count)
	return count, err
}

// UnpaidLeaveMonths counts distinct calendar months touched by approved
// unpaid-leave requests. Feeds the accrual pause.
func (s *Store) UnpaidLeaveMonths(ctx context.Context, employeeID string) (int, error) {
	var months int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(DISTINCT date_trunc('month', d))
    FROM leave_requests lr
    JOIN leave_types lt ON lt.id = lr.leave_type_id
    CROSS JOIN LATERAL generate_series(lr.start_date, lr.end_date, interval '1 day') AS d
    WHERE lr.employee_id = $1 AND lr.status = $2 AND lt.code = $3
  `, employeeID, StatusApproved, policy.UnpaidTypeCode).Scan(&months)
	return months, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*LeaveRequest, error) {
	var req LeaveRequest
	var flow []byte
	err := row.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.StartDate, &req.EndDate,
		&req.DurationDays, &req.Justification, &req.AttachmentID, &req.Status, &flow,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(flow) > 0 {
		if err := json.Unmarshal(flow, &req.ApprovalFlow); err != nil {
			return nil, fmt.Errorf("unmarshal approval flow: %w", err)
		}
	}
	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}
