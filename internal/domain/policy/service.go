package policy

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) CreateCategory(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: category name required", ErrMissingCategory)
	}
	return s.Store.CreateCategory(ctx, name)
}

func (s *Service) ListCategories(ctx context.Context) ([]LeaveCategory, error) {
	return s.Store.ListCategories(ctx)
}

func (s *Service) CreateType(ctx context.Context, lt LeaveType) (string, error) {
	lt.Code = strings.ToUpper(strings.TrimSpace(lt.Code))
	if lt.Code == "" {
		return "", fmt.Errorf("leave type code required")
	}
	if strings.TrimSpace(lt.Name) == "" {
		return "", fmt.Errorf("leave type name required")
	}
	if existing, err := s.Store.TypeByCode(ctx, lt.Code); err == nil && existing != nil {
		return "", fmt.Errorf("%w: %s", ErrDuplicateCode, lt.Code)
	}
	return s.Store.CreateType(ctx, lt)
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return s.Store.ListTypes(ctx)
}

func (s *Service) TypeByID(ctx context.Context, typeID string) (*LeaveType, error) {
	return s.Store.TypeByID(ctx, typeID)
}

func (s *Service) PatchType(ctx context.Context, typeID string, patch TypePatch) error {
	return s.Store.PatchType(ctx, typeID, patch)
}

func (s *Service) SetApprovalWorkflow(ctx context.Context, typeID string, steps []ApprovalStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("approval workflow requires at least one step")
	}
	for i, step := range steps {
		if strings.TrimSpace(step.Role) == "" {
			return fmt.Errorf("approval workflow step %d missing role", i+1)
		}
	}
	return s.Store.SetApprovalWorkflow(ctx, typeID, steps)
}

func (s *Service) SetPayrollCode(ctx context.Context, typeID, payrollCode string) error {
	return s.Store.SetPayrollCode(ctx, typeID, payrollCode)
}

func (s *Service) UpsertPolicy(ctx context.Context, p LeavePolicy) (string, error) {
	if p.LeaveTypeID == "" {
		return "", fmt.Errorf("leave type id required")
	}
	if _, err := s.Store.TypeByID(ctx, p.LeaveTypeID); err != nil {
		return "", err
	}
	switch p.AccrualMethod {
	case "", AccrualMonthly, AccrualYearly, AccrualPerTerm:
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidAccrual, p.AccrualMethod)
	}
	switch p.RoundingRule {
	case "", RoundingNone, RoundingHalf, RoundingUp, RoundingDown:
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidRounding, p.RoundingRule)
	}
	if p.AccrualMethod == "" {
		p.AccrualMethod = AccrualMonthly
	}
	if p.RoundingRule == "" {
		p.RoundingRule = RoundingNone
	}
	return s.Store.UpsertPolicy(ctx, p)
}

func (s *Service) ListPolicies(ctx context.Context) ([]LeavePolicy, error) {
	return s.Store.ListPolicies(ctx)
}

func (s *Service) PolicyByLeaveType(ctx context.Context, typeID string) (*LeavePolicy, error) {
	return s.Store.PolicyByLeaveType(ctx, typeID)
}
