package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"leavehub/internal/domain/accrual"
	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/policy"
)

const (
	// retroactiveGraceDays allows backdated submissions this far in the past
	// when a notice period would otherwise apply.
	defaultRetroactiveGraceDays = 30

	maxAttachmentBytes = 5 * 1024 * 1024

	// workingDaysPerMonth converts a monthly base salary into a daily rate for
	// unpaid-leave payroll deduction.
	workingDaysPerMonth = 22
)

type PolicyStore interface {
	TypeByID(ctx context.Context, typeID string) (*policy.LeaveType, error)
	TypeByCode(ctx context.Context, code string) (*policy.LeaveType, error)
	TypeByIDOrCode(ctx context.Context, ref string) (*policy.LeaveType, error)
	PolicyByLeaveType(ctx context.Context, typeID string) (*policy.LeavePolicy, error)
}

type DurationCalculator interface {
	NetLeaveDuration(ctx context.Context, start, end time.Time, year int) (int, error)
}

type ApproverResolver interface {
	ApproverForEmployee(ctx context.Context, employeeID string, at time.Time) (string, error)
	VerifyManagerAuthorization(ctx context.Context, employee *directory.Employee, managerID string, at time.Time) bool
}

type BalanceLedger interface {
	Balance(ctx context.Context, employeeID, leaveTypeID string) (float64, error)
	ApplyUsage(ctx context.Context, employeeID, leaveTypeID string, days float64) error
}

type AttachmentReader interface {
	Meta(ctx context.Context, attachmentID string) (*AttachmentMeta, error)
}

type Notifier interface {
	Notify(ctx context.Context, employeeID, kind, message string) error
}

type AttendanceBlocker interface {
	BlockLeave(ctx context.Context, employeeID string, from, to time.Time, reason string) error
}

type PenaltyRecorder interface {
	Record(ctx context.Context, employeeID string, amount float64, reason string, date time.Time, kind string) error
}

type RequestStore interface {
	Create(ctx context.Context, req *LeaveRequest) error
	Get(ctx context.Context, requestID string) (*LeaveRequest, error)
	Update(ctx context.Context, req *LeaveRequest) error
	List(ctx context.Context, filter ListFilter) ([]LeaveRequest, error)
	HasOverlapping(ctx context.Context, employeeID string, from, to time.Time, statuses []string) (bool, error)
	SumApprovedDaysInYear(ctx context.Context, employeeID, leaveTypeID string, year int) (float64, error)
	SumApprovedDays(ctx context.Context, employeeID, leaveTypeID string) (float64, error)
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]LeaveRequest, error)
	ApprovedOverlapCountInDepartment(ctx context.Context, departmentID string, from, to time.Time, excludeEmployeeID string) (int, error)
	UnpaidLeaveMonths(ctx context.Context, employeeID string) (int, error)
}

type ListFilter struct {
	EmployeeID  string
	LeaveTypeID string
	Status      string
	Limit       int
	Offset      int
}

type Service struct {
	Store       RequestStore
	Policies    PolicyStore
	Calendar    DurationCalculator
	Directory   directory.Reader
	Approvers   ApproverResolver
	Ledger      BalanceLedger
	Attachments AttachmentReader
	Notify      Notifier
	Attendance  AttendanceBlocker
	Penalties   PenaltyRecorder

	GraceDays int
	Now       func() time.Time
}

func NewService(store RequestStore, policies PolicyStore, cal DurationCalculator, dir directory.Reader, approvers ApproverResolver, ledger BalanceLedger, attachments AttachmentReader, notify Notifier, attendance AttendanceBlocker, penalties PenaltyRecorder) *Service {
	return &Service{
		Store:       store,
		Policies:    policies,
		Calendar:    cal,
		Directory:   dir,
		Approvers:   approvers,
		Ledger:      ledger,
		Attachments: attachments,
		Notify:      notify,
		Attendance:  attendance,
		Penalties:   penalties,
		GraceDays:   defaultRetroactiveGraceDays,
		Now:         time.Now,
	}
}

// attachmentMimeAllowList keys MIME allow-lists by the leave type's
// attachment type.
var attachmentMimeAllowList = map[string][]string{
	"medical":  {"application/pdf", "image/jpeg", "image/png"},
	"travel":   {"application/pdf", "image/jpeg", "image/png"},
	"document": {"application/pdf"},
}

var defaultAttachmentMimes = []string{"application/pdf", "image/jpeg", "image/png"}

// Submit validates and persists a leave request. When the balance does not
// cover the requested duration the request is split into a paid portion (up
// to the balance) and an unpaid portion against the UNPAID type; both are
// persisted and both are returned.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	now := s.Now()

	if input.EndDate.Before(input.StartDate) {
		return nil, ErrInvalidDateRange
	}

	lt, err := s.Policies.TypeByID(ctx, input.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	pol, err := s.Policies.PolicyByLeaveType(ctx, lt.ID)
	if err != nil && !errors.Is(err, policy.ErrNotFound) {
		return nil, err
	}

	emp, err := s.Directory.EmployeeByID(ctx, input.EmployeeID)
	if err != nil {
		return nil, err
	}

	if err := s.checkEligibility(emp, lt, pol, now); err != nil {
		return nil, err
	}
	if err := s.checkAttachment(ctx, lt, input.AttachmentID); err != nil {
		return nil, err
	}
	if err := s.checkNotice(pol, input.StartDate, now); err != nil {
		return nil, err
	}

	// Net duration; this call rejects outright on blocked-period overlap.
	duration, err := s.Calendar.NetLeaveDuration(ctx, input.StartDate, input.EndDate, input.StartDate.Year())
	if err != nil {
		return nil, err
	}

	approver, err := s.Approvers.ApproverForEmployee(ctx, input.EmployeeID, now)
	if err != nil {
		return nil, err
	}
	seed := []ApprovalEntry{{Role: RoleManager, Status: DecisionPending, Approver: approver}}

	if pol != nil && pol.MaxConsecutiveDays > 0 && duration > pol.MaxConsecutiveDays {
		return nil, fmt.Errorf("%w: requested %d days, policy allows %d consecutive", ErrMaxDuration, duration, pol.MaxConsecutiveDays)
	}
	if lt.MaxDurationDays > 0 && duration > lt.MaxDurationDays {
		return nil, fmt.Errorf("%w: requested %d days, leave type allows %d", ErrMaxDuration, duration, lt.MaxDurationDays)
	}

	if pol != nil && pol.YearlyRate > 0 {
		taken, err := s.Store.SumApprovedDaysInYear(ctx, input.EmployeeID, lt.ID, input.StartDate.Year())
		if err != nil {
			return nil, err
		}
		if taken+float64(duration) > pol.YearlyRate {
			return nil, fmt.Errorf("%w: %.1f days taken this year, requested %d, yearly limit %.1f", ErrYearlyLimit, taken, duration, pol.YearlyRate)
		}
	}

	overlapping, err := s.Store.HasOverlapping(ctx, input.EmployeeID, input.StartDate, input.EndDate, []string{StatusPending, StatusApproved})
	if err != nil {
		return nil, err
	}
	if overlapping {
		return nil, fmt.Errorf("%w: %s to %s", ErrOverlap, input.StartDate.Format("2006-01-02"), input.EndDate.Format("2006-01-02"))
	}

	balance, err := s.Ledger.Balance(ctx, input.EmployeeID, lt.ID)
	if err != nil {
		return nil, err
	}

	if balance < float64(duration) {
		return s.splitExcessToUnpaid(ctx, input, lt, seed, float64(duration), balance)
	}

	s.warnTeamConflict(ctx, emp, input.StartDate, input.EndDate)

	req := &LeaveRequest{
		EmployeeID:    input.EmployeeID,
		LeaveTypeID:   lt.ID,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		DurationDays:  float64(duration),
		Justification: input.Justification,
		AttachmentID:  input.AttachmentID,
		Status:        StatusPending,
		ApprovalFlow:  seed,
	}
	if err := s.Store.Create(ctx, req); err != nil {
		return nil, err
	}
	s.notifyBestEffort(ctx, approver, "leave_submitted", "A leave request is awaiting your approval.")
	return &SubmitResult{Paid: req}, nil
}

// splitExcessToUnpaid persists the paid portion (when the balance allows any)
// and the unpaid remainder as two separate requests sharing the approval seed.
func (s *Service) splitExcessToUnpaid(ctx context.Context, input SubmitInput, lt *policy.LeaveType, seed []ApprovalEntry, duration, balance float64) (*SubmitResult, error) {
	unpaidType, err := s.Policies.TypeByCode(ctx, policy.UnpaidTypeCode)
	if err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			return nil, ErrUnpaidTypeMissing
		}
		return nil, err
	}

	result := &SubmitResult{Split: true}

	if balance > 0 {
		paid := &LeaveRequest{
			EmployeeID:    input.EmployeeID,
			LeaveTypeID:   lt.ID,
			StartDate:     input.StartDate,
			EndDate:       input.EndDate,
			DurationDays:  balance,
			Justification: input.Justification,
			AttachmentID:  input.AttachmentID,
			Status:        StatusPending,
			ApprovalFlow:  cloneFlow(seed),
		}
		if err := s.Store.Create(ctx, paid); err != nil {
			return nil, err
		}
		result.Paid = paid
	}

	unpaidDays := duration
	if balance > 0 {
		unpaidDays = duration - balance
	}
	unpaid := &LeaveRequest{
		EmployeeID:    input.EmployeeID,
		LeaveTypeID:   unpaidType.ID,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		DurationDays:  unpaidDays,
		Justification: input.Justification,
		AttachmentID:  input.AttachmentID,
		Status:        StatusPending,
		ApprovalFlow:  cloneFlow(seed),
	}
	if err := s.Store.Create(ctx, unpaid); err != nil {
		return nil, err
	}
	result.Unpaid = unpaid

	if len(seed) > 0 {
		s.notifyBestEffort(ctx, seed[0].Approver, "leave_submitted", "A leave request (split paid/unpaid) is awaiting your approval.")
	}
	return result, nil
}

func (s *Service) checkEligibility(emp *directory.Employee, lt *policy.LeaveType, pol *policy.LeavePolicy, now time.Time) error {
	tenure := 0
	if emp.DateOfHire != nil {
		tenure = accrual.MonthsWorked(*emp.DateOfHire, now)
	}

	minTenure := lt.MinTenureMonths
	if pol != nil && pol.Eligibility.MinTenureMonths != nil && *pol.Eligibility.MinTenureMonths > minTenure {
		minTenure = *pol.Eligibility.MinTenureMonths
	}
	if minTenure > 0 && tenure < minTenure {
		return fmt.Errorf("%w: minimum tenure of %d months required, current tenure: %d months", ErrIneligible, minTenure, tenure)
	}

	if pol == nil {
		return nil
	}
	if len(pol.Eligibility.ContractTypesAllowed) > 0 && !slices.Contains(pol.Eligibility.ContractTypesAllowed, emp.ContractType) {
		return fmt.Errorf("%w: contract type %s not covered by policy", ErrIneligible, emp.ContractType)
	}
	if len(pol.Eligibility.PositionsAllowed) > 0 && !slices.Contains(pol.Eligibility.PositionsAllowed, emp.PrimaryPositionID) {
		return fmt.Errorf("%w: position not covered by policy", ErrIneligible)
	}
	if len(pol.Eligibility.LocationsAllowed) > 0 && !slices.Contains(pol.Eligibility.LocationsAllowed, emp.LocationID) {
		return fmt.Errorf("%w: location not covered by policy", ErrIneligible)
	}
	if pol.Eligibility.Grade != "" && emp.Grade != pol.Eligibility.Grade {
		return fmt.Errorf("%w: grade %s required", ErrIneligible, pol.Eligibility.Grade)
	}
	return nil
}

func (s *Service) checkAttachment(ctx context.Context, lt *policy.LeaveType, attachmentID string) error {
	if lt.RequiresAttachment && attachmentID == "" {
		return fmt.Errorf("%w for leave type %s", ErrAttachmentRequired, lt.Code)
	}
	if attachmentID == "" {
		return nil
	}

	meta, err := s.Attachments.Meta(ctx, attachmentID)
	if err != nil {
		return err
	}
	allowed := defaultAttachmentMimes
	if list, ok := attachmentMimeAllowList[lt.AttachmentType]; ok {
		allowed = list
	}
	if !slices.Contains(allowed, meta.ContentType) {
		return fmt.Errorf("%w: content type %s not allowed for %s attachments", ErrAttachmentInvalid, meta.ContentType, lt.AttachmentType)
	}
	if meta.SizeBytes > maxAttachmentBytes {
		return fmt.Errorf("%w: %d bytes exceeds the 5MB limit", ErrAttachmentInvalid, meta.SizeBytes)
	}
	return nil
}

// checkNotice enforces the policy notice period. Backdated submissions are
// tolerated within the grace window.
func (s *Service) checkNotice(pol *policy.LeavePolicy, start, now time.Time) error {
	if pol == nil || pol.MinNoticeDays <= 0 {
		return nil
	}

	grace := s.GraceDays
	if grace <= 0 {
		grace = defaultRetroactiveGraceDays
	}

	diffDays := int(start.Sub(now).Hours() / 24)
	if start.Before(now) {
		if int(now.Sub(start).Hours()/24) > grace {
			return fmt.Errorf("%w: backdated more than %d days", ErrInsufficientNotice, grace)
		}
		return nil
	}
	if diffDays < pol.MinNoticeDays {
		return fmt.Errorf("%w: %d days notice required, %d given", ErrInsufficientNotice, pol.MinNoticeDays, diffDays)
	}
	return nil
}

// warnTeamConflict logs overlapping approved leave in the same department.
// Scheduling conflicts never block submission.
func (s *Service) warnTeamConflict(ctx context.Context, emp *directory.Employee, from, to time.Time) {
	if emp.PrimaryDepartmentID == "" {
		return
	}
	count, err := s.Store.ApprovedOverlapCountInDepartment(ctx, emp.PrimaryDepartmentID, from, to, emp.ID)
	if err != nil {
		slog.Warn("team conflict check failed", "employeeId", emp.ID, "err", err)
		return
	}
	if count > 0 {
		slog.Warn("team scheduling conflict",
			"employeeId", emp.ID,
			"departmentId", emp.PrimaryDepartmentID,
			"overlappingApproved", count,
			"from", from.Format("2006-01-02"),
			"to", to.Format("2006-01-02"))
	}
}

func (s *Service) notifyBestEffort(ctx context.Context, employeeID, kind, message string) {
	if s.Notify == nil || employeeID == "" {
		return
	}
	if err := s.Notify.Notify(ctx, employeeID, kind, message); err != nil {
		slog.Warn("notification dispatch failed", "employeeId", employeeID, "kind", kind, "err", err)
	}
}

func (s *Service) Get(ctx context.Context, requestID string) (*LeaveRequest, error) {
	return s.Store.Get(ctx, requestID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]LeaveRequest, error) {
	return s.Store.List(ctx, filter)
}

func cloneFlow(flow []ApprovalEntry) []ApprovalEntry {
	out := make([]ApprovalEntry, len(flow))
	copy(out, flow)
	return out
}
