package policy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateCategory(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_categories (name)
    VALUES ($1)
    RETURNING id
  `, name).Scan(&id)
	return id, err
}

func (s *Store) ListCategories(ctx context.Context) ([]LeaveCategory, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name, created_at FROM leave_categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveCategory
	for rows.Next() {
		var cat LeaveCategory
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

const typeColumns = `
  id, code, name, COALESCE(category_id::text, ''), is_paid, is_deductible,
  requires_attachment, COALESCE(attachment_type, ''), min_tenure_months,
  max_duration_days, COALESCE(payroll_code, ''), approval_workflow, created_at
`

func scanType(row pgx.Row) (*LeaveType, error) {
	var lt LeaveType
	var workflow []byte
	err := row.Scan(
		&lt.ID, &lt.Code, &lt.Name, &lt.CategoryID, &lt.IsPaid, &lt.IsDeductible,
		&lt.RequiresAttachment, &lt.AttachmentType, &lt.MinTenureMonths,
		&lt.MaxDurationDays, &lt.PayrollCode, &workflow, &lt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(workflow) > 0 {
		if err := json.Unmarshal(workflow, &lt.ApprovalWorkflow); err != nil {
			return nil, err
		}
	}
	return &lt, nil
}

func (s *Store) CreateType(ctx context.Context, lt LeaveType) (string, error) {
	workflow, err := json.Marshal(lt.ApprovalWorkflow)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (code, name, category_id, is_paid, is_deductible, requires_attachment, attachment_type, min_tenure_months, max_duration_days, payroll_code, approval_workflow)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `, lt.Code, lt.Name, nullIfEmpty(lt.CategoryID), lt.IsPaid, lt.IsDeductible,
		lt.RequiresAttachment, nullIfEmpty(lt.AttachmentType), lt.MinTenureMonths,
		lt.MaxDurationDays, nullIfEmpty(lt.PayrollCode), workflow).Scan(&id)
	return id, err
}

func (s *Store) TypeByID(ctx context.Context, typeID string) (*LeaveType, error) {
	return scanType(s.DB.QueryRow(ctx, "SELECT "+typeColumns+" FROM leave_types WHERE id = $1", typeID))
}

func (s *Store) TypeByCode(ctx context.Context, code string) (*LeaveType, error) {
	return scanType(s.DB.QueryRow(ctx, "SELECT "+typeColumns+" FROM leave_types WHERE code = $1", code))
}

// TypeByIDOrCode resolves a leave type reference that may be either form.
func (s *Store) TypeByIDOrCode(ctx context.Context, ref string) (*LeaveType, error) {
	lt, err := s.TypeByID(ctx, ref)
	if err == nil {
		return lt, nil
	}
	if !errors.Is(err, ErrNotFound) && !isInvalidUUID(err) {
		return nil, err
	}
	return s.TypeByCode(ctx, ref)
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+typeColumns+" FROM leave_types ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveType
	for rows.Next() {
		lt, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lt)
	}
	return out, rows.Err()
}

func (s *Store) PatchType(ctx context.Context, typeID string, patch TypePatch) error {
	lt, err := s.TypeByID(ctx, typeID)
	if err != nil {
		return err
	}
	if patch.Name != nil {
		lt.Name = *patch.Name
	}
	if patch.CategoryID != nil {
		lt.CategoryID = *patch.CategoryID
	}
	if patch.IsPaid != nil {
		lt.IsPaid = *patch.IsPaid
	}
	if patch.IsDeductible != nil {
		lt.IsDeductible = *patch.IsDeductible
	}
	if patch.RequiresAttachment != nil {
		lt.RequiresAttachment = *patch.RequiresAttachment
	}
	if patch.AttachmentType != nil {
		lt.AttachmentType = *patch.AttachmentType
	}
	if patch.MinTenureMonths != nil {
		lt.MinTenureMonths = *patch.MinTenureMonths
	}
	if patch.MaxDurationDays != nil {
		lt.MaxDurationDays = *patch.MaxDurationDays
	}
	if patch.PayrollCode != nil {
		lt.PayrollCode = *patch.PayrollCode
	}

	_, err = s.DB.Exec(ctx, `
    UPDATE leave_types
    SET name = $2, category_id = $3, is_paid = $4, is_deductible = $5,
        requires_attachment = $6, attachment_type = $7, min_tenure_months = $8,
        max_duration_days = $9, payroll_code = $10
    WHERE id = $1
  `, typeID, lt.Name, nullIfEmpty(lt.CategoryID), lt.IsPaid, lt.IsDeductible,
		lt.RequiresAttachment, nullIfEmpty(lt.AttachmentType), lt.MinTenureMonths,
		lt.MaxDurationDays, nullIfEmpty(lt.PayrollCode))
	return err
}

// SetApprovalWorkflow replaces the ordered workflow template for a leave type.
func (s *Store) SetApprovalWorkflow(ctx context.Context, typeID string, steps []ApprovalStep) error {
	workflow, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, "UPDATE leave_types SET approval_workflow = $2 WHERE id = $1", typeID, workflow)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetPayrollCode(ctx context.Context, typeID, payrollCode string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE leave_types SET payroll_code = $2 WHERE id = $1", typeID, nullIfEmpty(payrollCode))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertPolicy keeps at most one policy per leave type.
func (s *Store) UpsertPolicy(ctx context.Context, p LeavePolicy) (string, error) {
	eligibility, err := json.Marshal(p.Eligibility)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies (leave_type_id, eligibility, yearly_rate, accrual_method, accrual_rate, carry_forward_allowed, max_carry_forward, expiry_after_months, rounding_rule, min_notice_days, max_consecutive_days, pause_during_unpaid)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    ON CONFLICT (leave_type_id) DO UPDATE SET
      eligibility = EXCLUDED.eligibility,
      yearly_rate = EXCLUDED.yearly_rate,
      accrual_method = EXCLUDED.accrual_method,
      accrual_rate = EXCLUDED.accrual_rate,
      carry_forward_allowed = EXCLUDED.carry_forward_allowed,
      max_carry_forward = EXCLUDED.max_carry_forward,
      expiry_after_months = EXCLUDED.expiry_after_months,
      rounding_rule = EXCLUDED.rounding_rule,
      min_notice_days = EXCLUDED.min_notice_days,
      max_consecutive_days = EXCLUDED.max_consecutive_days,
      pause_during_unpaid = EXCLUDED.pause_during_unpaid,
      updated_at = now()
    RETURNING id
  `, p.LeaveTypeID, eligibility, p.YearlyRate, p.AccrualMethod, p.AccrualRate,
		p.CarryForwardAllowed, p.MaxCarryForward, p.ExpiryAfterMonths, p.RoundingRule,
		p.MinNoticeDays, p.MaxConsecutiveDays, p.PauseDuringUnpaid).Scan(&id)
	return id, err
}

func (s *Store) PolicyByLeaveType(ctx context.Context, typeID string) (*LeavePolicy, error) {
	var p LeavePolicy
	var eligibility []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, leave_type_id, eligibility, yearly_rate, accrual_method, accrual_rate,
           carry_forward_allowed, max_carry_forward, expiry_after_months, rounding_rule,
           min_notice_days, max_consecutive_days, pause_during_unpaid, updated_at
    FROM leave_policies
    WHERE leave_type_id = $1
  `, typeID).Scan(
		&p.ID, &p.LeaveTypeID, &eligibility, &p.YearlyRate, &p.AccrualMethod, &p.AccrualRate,
		&p.CarryForwardAllowed, &p.MaxCarryForward, &p.ExpiryAfterMonths, &p.RoundingRule,
		&p.MinNoticeDays, &p.MaxConsecutiveDays, &p.PauseDuringUnpaid, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(eligibility) > 0 {
		if err := json.Unmarshal(eligibility, &p.Eligibility); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]LeavePolicy, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, leave_type_id, eligibility, yearly_rate, accrual_method, accrual_rate,
           carry_forward_allowed, max_carry_forward, expiry_after_months, rounding_rule,
           min_notice_days, max_consecutive_days, pause_during_unpaid, updated_at
    FROM leave_policies
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeavePolicy
	for rows.Next() {
		var p LeavePolicy
		var eligibility []byte
		if err := rows.Scan(
			&p.ID, &p.LeaveTypeID, &eligibility, &p.YearlyRate, &p.AccrualMethod, &p.AccrualRate,
			&p.CarryForwardAllowed, &p.MaxCarryForward, &p.ExpiryAfterMonths, &p.RoundingRule,
			&p.MinNoticeDays, &p.MaxConsecutiveDays, &p.PauseDuringUnpaid, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(eligibility) > 0 {
			if err := json.Unmarshal(eligibility, &p.Eligibility); err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// isInvalidUUID reports whether the lookup failed only because the reference
// is not a UUID, so a code lookup should be attempted instead.
func isInvalidUUID(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid input syntax for type uuid") ||
		strings.Contains(msg, "cannot parse uuid")
}
