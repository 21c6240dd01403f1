package request

import "errors"

var (
	ErrNotFound            = errors.New("leave request not found")
	ErrInvalidDateRange    = errors.New("end date before start date")
	ErrInvalidState        = errors.New("request is not pending")
	ErrForbidden           = errors.New("manager not authorized for this employee")
	ErrIneligible          = errors.New("employee not eligible for this leave type")
	ErrAttachmentRequired  = errors.New("supporting attachment required")
	ErrAttachmentInvalid   = errors.New("attachment rejected")
	ErrInsufficientNotice  = errors.New("notice period not met")
	ErrMaxDuration         = errors.New("maximum consecutive days exceeded")
	ErrYearlyLimit         = errors.New("yearly leave limit exceeded")
	ErrOverlap             = errors.New("overlapping leave request exists")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrUnpaidTypeMissing   = errors.New("no UNPAID leave type configured")
)
