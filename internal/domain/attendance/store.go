package attendance

import (
	"context"
	"time"
)

// BlockLeave marks the span as excused in the attendance calendar. Overlapping
// blocks are collapsed by the unique constraint; re-blocking the same span is
// a no-op.
func (s *Service) BlockLeave(ctx context.Context, employeeID string, from, to time.Time, reason string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO time_exceptions (employee_id, kind, start_date, end_date, reason)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (employee_id, kind, start_date, end_date) DO NOTHING
  `, employeeID, ExceptionLeave, from, to, reason)
	return err
}

func (s *Service) BlocksForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]LeaveBlock, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, kind, start_date, end_date, COALESCE(reason, ''), created_at
    FROM time_exceptions
    WHERE employee_id = $1 AND kind = $2 AND start_date <= $4 AND end_date >= $3
    ORDER BY start_date
  `, employeeID, ExceptionLeave, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveBlock
	for rows.Next() {
		var b LeaveBlock
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.Kind, &b.StartDate, &b.EndDate, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
