package entitlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("entitlement not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context, employeeID, leaveTypeID string) (*Entitlement, error) {
	var e Entitlement
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, leave_type_id, yearly_entitlement, taken, remaining, pending, COALESCE(reason, ''), updated_at
    FROM leave_entitlements
    WHERE employee_id = $1 AND leave_type_id = $2
  `, employeeID, leaveTypeID).Scan(
		&e.ID, &e.EmployeeID, &e.LeaveTypeID, &e.YearlyEntitlement, &e.Taken,
		&e.Remaining, &e.Pending, &e.Reason, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpsertYearly(ctx context.Context, employeeID, leaveTypeID string, yearly float64, reason string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_entitlements (employee_id, leave_type_id, yearly_entitlement, taken, remaining, pending, reason)
    VALUES ($1,$2,$3,0,$3,0,NULLIF($4, ''))
    ON CONFLICT (employee_id, leave_type_id) DO UPDATE SET
      yearly_entitlement = EXCLUDED.yearly_entitlement,
      remaining = EXCLUDED.yearly_entitlement - leave_entitlements.taken,
      reason = COALESCE(NULLIF($4, ''), leave_entitlements.reason),
      updated_at = now()
  `, employeeID, leaveTypeID, yearly, reason)
	return err
}

func (s *Store) ApplyUsage(ctx context.Context, employeeID, leaveTypeID string, days float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_entitlements (employee_id, leave_type_id, yearly_entitlement, taken, remaining, pending)
    VALUES ($1,$2,0,$3,-$3,0)
    ON CONFLICT (employee_id, leave_type_id) DO UPDATE SET
      taken = leave_entitlements.taken + EXCLUDED.taken,
      remaining = leave_entitlements.yearly_entitlement - (leave_entitlements.taken + EXCLUDED.taken),
      updated_at = now()
  `, employeeID, leaveTypeID, days)
	return err
}

func (s *Store) AdjustBalance(ctx context.Context, employeeID, leaveTypeID string, amount float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_entitlements (employee_id, leave_type_id, yearly_entitlement, taken, remaining, pending)
    VALUES ($1,$2,$3,0,$3,0)
    ON CONFLICT (employee_id, leave_type_id) DO UPDATE SET
      yearly_entitlement = leave_entitlements.yearly_entitlement + $3,
      remaining = leave_entitlements.yearly_entitlement + $3 - leave_entitlements.taken,
      updated_at = now()
  `, employeeID, leaveTypeID, amount)
	return err
}

func (s *Store) ListForEmployee(ctx context.Context, employeeID string) ([]Entitlement, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, leave_type_id, yearly_entitlement, taken, remaining, pending, COALESCE(reason, ''), updated_at
    FROM leave_entitlements
    WHERE employee_id = $1
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entitlement
	for rows.Next() {
		var e Entitlement
		if err := rows.Scan(
			&e.ID, &e.EmployeeID, &e.LeaveTypeID, &e.YearlyEntitlement, &e.Taken,
			&e.Remaining, &e.Pending, &e.Reason, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) RecordAdjustment(ctx context.Context, adj Adjustment) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_adjustments (employee_id, leave_type_id, amount, reason, created_by)
    VALUES ($1,$2,$3,$4,$5)
  `, adj.EmployeeID, adj.LeaveTypeID, adj.Amount, adj.Reason, adj.CreatedBy)
	return err
}
