package policy

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateCode   = errors.New("leave type code already exists")
	ErrMissingCategory = errors.New("leave category required")
	ErrInvalidRounding = errors.New("invalid rounding rule")
	ErrInvalidAccrual  = errors.New("invalid accrual method")
)
