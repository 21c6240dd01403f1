package payroll

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const KindUnpaidLeave = "unpaid_leave"

// Deduction is a payroll adjustment line picked up by the next pay run.
type Deduction struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Amount     float64   `json:"amount"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason"`
	EffectiveOn time.Time `json:"effectiveOn"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Deductions struct {
	DB *pgxpool.Pool
}

func NewDeductions(db *pgxpool.Pool) *Deductions {
	return &Deductions{DB: db}
}

// Record stores a deduction rounded to cents.
func (d *Deductions) Record(ctx context.Context, employeeID string, amount float64, reason string, date time.Time, kind string) error {
	rounded := decimal.NewFromFloat(amount).Round(2)
	_, err := d.DB.Exec(ctx, `
    INSERT INTO payroll_deductions (employee_id, amount, kind, reason, effective_on)
    VALUES ($1,$2,$3,$4,$5)
  `, employeeID, rounded, kind, reason, date)
	return err
}

func (d *Deductions) ListForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]Deduction, error) {
	rows, err := d.DB.Query(ctx, `
    SELECT id, employee_id, amount, kind, COALESCE(reason, ''), effective_on, created_at
    FROM payroll_deductions
    WHERE employee_id = $1 AND effective_on BETWEEN $2 AND $3
    ORDER BY effective_on
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deduction
	for rows.Next() {
		var ded Deduction
		if err := rows.Scan(&ded.ID, &ded.EmployeeID, &ded.Amount, &ded.Kind, &ded.Reason, &ded.EffectiveOn, &ded.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ded)
	}
	return out, rows.Err()
}
