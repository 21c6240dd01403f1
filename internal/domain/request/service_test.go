package request

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/policy"
)

// --- fakes -----------------------------------------------------------------

type memRequestStore struct {
	nextID   int
	requests map[string]*LeaveRequest
}

func newMemRequestStore() *memRequestStore {
	return &memRequestStore{requests: map[string]*LeaveRequest{}}
}

func (m *memRequestStore) Create(_ context.Context, req *LeaveRequest) error {
	m.nextID++
	req.ID = fmt.Sprintf("req-%d", m.nextID)
	req.CreatedAt = time.Now()
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *memRequestStore) Get(_ context.Context, requestID string) (*LeaveRequest, error) {
	req, ok := m.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *req
	copied.ApprovalFlow = append([]ApprovalEntry(nil), req.ApprovalFlow...)
	return &copied, nil
}

func (m *memRequestStore) Update(_ context.Context, req *LeaveRequest) error {
	if _, ok := m.requests[req.ID]; !ok {
		return ErrNotFound
	}
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *memRequestStore) List(_ context.Context, filter ListFilter) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, req := range m.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (m *memRequestStore) HasOverlapping(_ context.Context, employeeID string, from, to time.Time, statuses []string) (bool, error) {
	for _, req := range m.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		matched := false
		for _, status := range statuses {
			if req.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if !req.StartDate.After(to) && !req.EndDate.Before(from) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRequestStore) SumApprovedDaysInYear(_ context.Context, employeeID, leaveTypeID string, year int) (float64, error) {
	total := 0.0
	for _, req := range m.requests {
		if req.EmployeeID == employeeID && req.LeaveTypeID == leaveTypeID &&
			req.Status == StatusApproved && req.StartDate.Year() == year {
			total += req.DurationDays
		}
	}
	return total, nil
}

func (m *memRequestStore) SumApprovedDays(_ context.Context, employeeID, leaveTypeID string) (float64, error) {
	total := 0.0
	for _, req := range m.requests {
		if req.EmployeeID == employeeID && req.LeaveTypeID == leaveTypeID && req.Status == StatusApproved {
			total += req.DurationDays
		}
	}
	return total, nil
}

func (m *memRequestStore) PendingOlderThan(_ context.Context, cutoff time.Time) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, req := range m.requests {
		if req.Status == StatusPending && req.CreatedAt.Before(cutoff) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *memRequestStore) ApprovedOverlapCountInDepartment(context.Context, string, time.Time, time.Time, string) (int, error) {
	return 0, nil
}

func (m *memRequestStore) UnpaidLeaveMonths(context.Context, string) (int, error) {
	return 0, nil
}

type stubPolicies struct {
	types    map[string]*policy.LeaveType
	policies map[string]*policy.LeavePolicy
}

func (s *stubPolicies) TypeByID(_ context.Context, typeID string) (*policy.LeaveType, error) {
	for _, lt := range s.types {
		if lt.ID == typeID {
			return lt, nil
		}
	}
	return nil, policy.ErrNotFound
}

func (s *stubPolicies) TypeByCode(_ context.Context, code string) (*policy.LeaveType, error) {
	for _, lt := range s.types {
		if lt.Code == code {
			return lt, nil
		}
	}
	return nil, policy.ErrNotFound
}

func (s *stubPolicies) TypeByIDOrCode(ctx context.Context, ref string) (*policy.LeaveType, error) {
	if lt, err := s.TypeByID(ctx, ref); err == nil {
		return lt, nil
	}
	return s.TypeByCode(ctx, ref)
}

func (s *stubPolicies) PolicyByLeaveType(_ context.Context, typeID string) (*policy.LeavePolicy, error) {
	pol, ok := s.policies[typeID]
	if !ok {
		return nil, policy.ErrNotFound
	}
	return pol, nil
}

// weekdayCalendar counts Monday-Friday days; no holidays, no blocks.
type weekdayCalendar struct {
	blocked bool
}

func (c *weekdayCalendar) NetLeaveDuration(_ context.Context, start, end time.Time, _ int) (int, error) {
	if c.blocked {
		return 0, fmt.Errorf("range blocked: %w", errors.New("maintenance window"))
	}
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		count++
	}
	return count, nil
}

type stubApprovers struct {
	approver   string
	authorized map[string]bool
}

func (s *stubApprovers) ApproverForEmployee(context.Context, string, time.Time) (string, error) {
	return s.approver, nil
}

func (s *stubApprovers) VerifyManagerAuthorization(_ context.Context, _ *directory.Employee, managerID string, _ time.Time) bool {
	return s.authorized[managerID]
}

type stubLedger struct {
	balance     float64
	applyErr    error
	usageCalls  int
	lastApplied float64
}

func (s *stubLedger) Balance(context.Context, string, string) (float64, error) {
	return s.balance, nil
}

func (s *stubLedger) ApplyUsage(_ context.Context, _, _ string, days float64) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.usageCalls++
	s.lastApplied = days
	return nil
}

type stubAttachments struct {
	metas map[string]*AttachmentMeta
}

func (s *stubAttachments) Meta(_ context.Context, attachmentID string) (*AttachmentMeta, error) {
	meta, ok := s.metas[attachmentID]
	if !ok {
		return nil, ErrAttachmentNotFound
	}
	return meta, nil
}

type recordedNotification struct {
	EmployeeID string
	Kind       string
}

type stubNotifier struct {
	err  error
	sent []recordedNotification
}

func (s *stubNotifier) Notify(_ context.Context, employeeID, kind, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, recordedNotification{EmployeeID: employeeID, Kind: kind})
	return nil
}

type stubAttendance struct {
	err    error
	blocks int
}

func (s *stubAttendance) BlockLeave(context.Context, string, time.Time, time.Time, string) error {
	if s.err != nil {
		return s.err
	}
	s.blocks++
	return nil
}

type recordedPenalty struct {
	EmployeeID string
	Amount     float64
	Kind       string
}

type stubPenalties struct {
	recorded []recordedPenalty
}

func (s *stubPenalties) Record(_ context.Context, employeeID string, amount float64, _ string, _ time.Time, kind string) error {
	s.recorded = append(s.recorded, recordedPenalty{EmployeeID: employeeID, Amount: amount, Kind: kind})
	return nil
}

type testDirectory struct {
	employees map[string]*directory.Employee
	positions map[string]*directory.Position
	grades    map[string]*directory.PayGrade
}

func (d *testDirectory) EmployeeByID(_ context.Context, id string) (*directory.Employee, error) {
	if emp, ok := d.employees[id]; ok {
		return emp, nil
	}
	return nil, directory.ErrNotFound
}

func (d *testDirectory) EmployeeByNumber(context.Context, string) (*directory.Employee, error) {
	return nil, directory.ErrNotFound
}

func (d *testDirectory) EmployeesByPosition(_ context.Context, positionID string) ([]directory.Employee, error) {
	var out []directory.Employee
	for _, emp := range d.employees {
		if emp.PrimaryPositionID == positionID {
			out = append(out, *emp)
		}
	}
	return out, nil
}

func (d *testDirectory) EmployeesByCriteria(context.Context, directory.Criteria) ([]directory.Employee, error) {
	return nil, nil
}

func (d *testDirectory) PositionByID(_ context.Context, positionID string) (*directory.Position, error) {
	if pos, ok := d.positions[positionID]; ok {
		return pos, nil
	}
	return nil, directory.ErrNotFound
}

func (d *testDirectory) DepartmentByID(context.Context, string) (*directory.Department, error) {
	return nil, directory.ErrNotFound
}

func (d *testDirectory) PayGradeByID(_ context.Context, payGradeID string) (*directory.PayGrade, error) {
	if grade, ok := d.grades[payGradeID]; ok {
		return grade, nil
	}
	return nil, directory.ErrNotFound
}

// --- harness ---------------------------------------------------------------

type harness struct {
	svc        *Service
	store      *memRequestStore
	ledger     *stubLedger
	notifier   *stubNotifier
	attendance *stubAttendance
	penalties  *stubPenalties
	approvers  *stubApprovers
	policies   *stubPolicies
	now        time.Time
}

func newHarness() *harness {
	hire := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	dir := &testDirectory{
		employees: map[string]*directory.Employee{
			"emp-1": {
				ID: "emp-1", EmployeeNumber: "E001", ContractType: "permanent",
				DateOfHire: &hire, PrimaryPositionID: "pos-worker",
				SupervisorPositionID: "pos-lead", PayGradeID: "grade-1",
			},
			"mgr-1":  {ID: "mgr-1", PrimaryPositionID: "pos-lead"},
			"head-1": {ID: "head-1", PrimaryPositionID: "pos-head"},
		},
		positions: map[string]*directory.Position{
			"pos-worker": {ID: "pos-worker", ReportsToPositionID: "pos-lead"},
			"pos-lead":   {ID: "pos-lead", ReportsToPositionID: "pos-head"},
			"pos-head":   {ID: "pos-head"},
		},
		grades: map[string]*directory.PayGrade{
			"grade-1": {ID: "grade-1", Name: "G1", BaseSalary: 2200},
		},
	}
	policies := &stubPolicies{
		types: map[string]*policy.LeaveType{
			"annual": {ID: "type-annual", Code: "ANNUAL", Name: "Annual Leave", IsPaid: true},
			"unpaid": {ID: "type-unpaid", Code: policy.UnpaidTypeCode, Name: "Unpaid Leave"},
		},
		policies: map[string]*policy.LeavePolicy{},
	}
	store := newMemRequestStore()
	ledger := &stubLedger{balance: 20}
	notifier := &stubNotifier{}
	attendance := &stubAttendance{}
	penalties := &stubPenalties{}
	approvers := &stubApprovers{approver: "mgr-1", authorized: map[string]bool{"mgr-1": true}}

	svc := NewService(store, policies, &weekdayCalendar{}, dir, approvers, ledger,
		&stubAttachments{metas: map[string]*AttachmentMeta{}}, notifier, attendance, penalties)
	now := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC) // a Monday
	svc.Now = func() time.Time { return now }

	return &harness{
		svc: svc, store: store, ledger: ledger, notifier: notifier,
		attendance: attendance, penalties: penalties, approvers: approvers,
		policies: policies, now: now,
	}
}

func dateAt(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- submit ----------------------------------------------------------------

func TestSubmitHappyPath(t *testing.T) {
	h := newHarness()

	result, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Split {
		t.Fatal("fully covered request must not split")
	}
	if result.Paid == nil || result.Unpaid != nil {
		t.Fatalf("expected paid-only result, got %+v", result)
	}
	if result.Paid.DurationDays != 5 {
		t.Fatalf("expected 5 net days, got %v", result.Paid.DurationDays)
	}
	if result.Paid.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", result.Paid.Status)
	}
	if len(result.Paid.ApprovalFlow) != 1 || result.Paid.ApprovalFlow[0].Approver != "mgr-1" {
		t.Fatalf("approval flow not seeded with manager: %+v", result.Paid.ApprovalFlow)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].EmployeeID != "mgr-1" {
		t.Fatalf("approver not notified: %+v", h.notifier.sent)
	}
}

func TestSubmitRejectsInvalidRange(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 14),
		EndDate:     dateAt(2026, 8, 10),
	})
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestSubmitEnforcesNotice(t *testing.T) {
	h := newHarness()
	h.policies.policies["type-annual"] = &policy.LeavePolicy{LeaveTypeID: "type-annual", MinNoticeDays: 14}

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 12),
	})
	if !errors.Is(err, ErrInsufficientNotice) {
		t.Fatalf("expected ErrInsufficientNotice, got %v", err)
	}

	// Backdated within the grace window passes the notice check.
	result, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 7, 20),
		EndDate:     dateAt(2026, 7, 22),
	})
	if err != nil {
		t.Fatalf("backdated submit within grace: %v", err)
	}
	if result.Paid == nil {
		t.Fatal("expected paid request")
	}

	// Backdated beyond the grace window is rejected.
	_, err = h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 5, 1),
		EndDate:     dateAt(2026, 5, 2),
	})
	if !errors.Is(err, ErrInsufficientNotice) {
		t.Fatalf("expected ErrInsufficientNotice for stale backdate, got %v", err)
	}
}

func TestSubmitEnforcesTenure(t *testing.T) {
	h := newHarness()
	h.policies.types["annual"].MinTenureMonths = 60

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 12),
	})
	if !errors.Is(err, ErrIneligible) {
		t.Fatalf("expected ErrIneligible, got %v", err)
	}
}

func TestSubmitEnforcesContractEligibility(t *testing.T) {
	h := newHarness()
	h.policies.policies["type-annual"] = &policy.LeavePolicy{
		LeaveTypeID: "type-annual",
		Eligibility: policy.EligibilityCriteria{ContractTypesAllowed: []string{"contract"}},
	}

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 12),
	})
	if !errors.Is(err, ErrIneligible) {
		t.Fatalf("expected ErrIneligible, got %v", err)
	}
}

func TestSubmitRequiresAttachment(t *testing.T) {
	h := newHarness()
	h.policies.types["annual"].RequiresAttachment = true
	h.policies.types["annual"].AttachmentType = "medical"

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 12),
	})
	if !errors.Is(err, ErrAttachmentRequired) {
		t.Fatalf("expected ErrAttachmentRequired, got %v", err)
	}
}

func TestSubmitValidatesAttachmentMime(t *testing.T) {
	h := newHarness()
	h.policies.types["annual"].RequiresAttachment = true
	h.policies.types["annual"].AttachmentType = "document"
	h.svc.Attachments = &stubAttachments{metas: map[string]*AttachmentMeta{
		"att-1": {ID: "att-1", ContentType: "image/jpeg", SizeBytes: 1024},
	}}

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:   "emp-1",
		LeaveTypeID:  "type-annual",
		StartDate:    dateAt(2026, 8, 10),
		EndDate:      dateAt(2026, 8, 12),
		AttachmentID: "att-1",
	})
	if !errors.Is(err, ErrAttachmentInvalid) {
		t.Fatalf("expected ErrAttachmentInvalid for jpeg document, got %v", err)
	}
}

func TestSubmitEnforcesMaxDuration(t *testing.T) {
	h := newHarness()
	h.policies.policies["type-annual"] = &policy.LeavePolicy{LeaveTypeID: "type-annual", MaxConsecutiveDays: 3}

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if !errors.Is(err, ErrMaxDuration) {
		t.Fatalf("expected ErrMaxDuration, got %v", err)
	}
}

func TestSubmitEnforcesYearlyLimit(t *testing.T) {
	h := newHarness()
	h.policies.policies["type-annual"] = &policy.LeavePolicy{LeaveTypeID: "type-annual", YearlyRate: 10}

	// Pre-existing approved request consuming 8 of the 10 days.
	if err := h.store.Create(context.Background(), &LeaveRequest{
		EmployeeID: "emp-1", LeaveTypeID: "type-annual",
		StartDate: dateAt(2026, 2, 2), EndDate: dateAt(2026, 2, 11),
		DurationDays: 8, Status: StatusApproved,
	}); err != nil {
		t.Fatalf("seed approved request: %v", err)
	}

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if !errors.Is(err, ErrYearlyLimit) {
		t.Fatalf("expected ErrYearlyLimit, got %v", err)
	}
}

func TestSubmitRejectsOverlap(t *testing.T) {
	h := newHarness()

	if _, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 13),
		EndDate:     dateAt(2026, 8, 18),
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestSubmitSplitsExcessToUnpaid(t *testing.T) {
	h := newHarness()
	h.ledger.balance = 3

	result, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Split {
		t.Fatal("expected split result")
	}
	if result.Paid == nil || result.Unpaid == nil {
		t.Fatalf("expected both portions, got %+v", result)
	}
	// Split invariant: paid + unpaid == net duration, paid <= balance.
	if result.Paid.DurationDays+result.Unpaid.DurationDays != 5 {
		t.Fatalf("portions must sum to net duration: %v + %v", result.Paid.DurationDays, result.Unpaid.DurationDays)
	}
	if result.Paid.DurationDays > 3 {
		t.Fatalf("paid portion exceeds balance: %v", result.Paid.DurationDays)
	}
	if result.Unpaid.LeaveTypeID != "type-unpaid" {
		t.Fatalf("unpaid portion must target the UNPAID type, got %s", result.Unpaid.LeaveTypeID)
	}
	if result.Paid.Status != StatusPending || result.Unpaid.Status != StatusPending {
		t.Fatal("both portions must start pending")
	}
}

func TestSubmitZeroBalanceSplitsUnpaidOnly(t *testing.T) {
	h := newHarness()
	h.ledger.balance = 0

	result, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Split || result.Paid != nil {
		t.Fatalf("zero balance must produce unpaid-only split, got %+v", result)
	}
	if result.Unpaid.DurationDays != 5 {
		t.Fatalf("entire duration should be unpaid, got %v", result.Unpaid.DurationDays)
	}
}

func TestSubmitSplitWithoutUnpaidType(t *testing.T) {
	h := newHarness()
	h.ledger.balance = 1
	delete(h.policies.types, "unpaid")

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if !errors.Is(err, ErrUnpaidTypeMissing) {
		t.Fatalf("expected ErrUnpaidTypeMissing, got %v", err)
	}
}

// --- approve / review ------------------------------------------------------

func submitPending(t *testing.T, h *harness) *LeaveRequest {
	t.Helper()
	result, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return result.Paid
}

func TestApproveRecordsManagerDecision(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)

	updated, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "approved", "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != StatusPending {
		t.Fatalf("manager approval must keep the request pending for HR, got %s", updated.Status)
	}
	last := updated.ApprovalFlow[len(updated.ApprovalFlow)-1]
	if last.Role != RoleManager || last.Status != DecisionApproved || last.DecidedBy != "mgr-1" {
		t.Fatalf("decision entry mismatch: %+v", last)
	}
}

func TestApproveRejectionIsTerminal(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)

	updated, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "rejected", "coverage")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != StatusRejected {
		t.Fatalf("expected REJECTED, got %s", updated.Status)
	}

	if _, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "approved", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("rejected request must not accept further manager decisions, got %v", err)
	}
}

func TestApproveDeniesUnauthorizedManager(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)

	if _, err := h.svc.Approve(context.Background(), req.ID, "head-1", "approved", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestReviewApprovalFinalizes(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)
	if _, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "approved", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	updated, outcome, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Fatalf("expected APPROVED, got %s", updated.Status)
	}
	if outcome == nil || !outcome.BalanceUpdated || !outcome.EmployeeNotified || !outcome.AttendanceBlocked {
		t.Fatalf("finalization outcome incomplete: %+v", outcome)
	}
	if len(outcome.Degraded) != 0 {
		t.Fatalf("no side effect should degrade: %+v", outcome.Degraded)
	}
	if h.ledger.lastApplied != 5 {
		t.Fatalf("usage not applied: %v", h.ledger.lastApplied)
	}
	if h.attendance.blocks != 1 {
		t.Fatal("attendance block missing")
	}
}

func TestReviewOverridesManagerRejection(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)
	if _, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "rejected", "no"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	updated, outcome, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", "")
	if err != nil {
		t.Fatalf("review override: %v", err)
	}
	if updated.Status != StatusApproved || outcome == nil {
		t.Fatalf("HR approval must override manager rejection, got %s", updated.Status)
	}
}

func TestReviewInsufficientBalanceNeedsOverride(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)
	if _, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "approved", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	h.ledger.balance = 2
	if _, _, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	updated, outcome, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", "exceptional circumstances")
	if err != nil {
		t.Fatalf("review with override: %v", err)
	}
	if updated.Status != StatusApproved || outcome == nil {
		t.Fatal("override reason should let the approval through")
	}
}

func TestReviewRejectsAlreadyApproved(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)
	if _, _, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", ""); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, _, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for double approval, got %v", err)
	}
}

func TestFinalizeDegradesOnSideEffectFailure(t *testing.T) {
	h := newHarness()
	h.notifier.err = errors.New("smtp down")
	h.attendance.err = errors.New("attendance offline")
	req := submitPending(t, h)

	updated, outcome, err := h.svc.Review(context.Background(), req.ID, "hr-1", "approved", "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Fatal("side effect failures must not fail the approval")
	}
	if !outcome.BalanceUpdated {
		t.Fatal("balance update should still succeed")
	}
	if outcome.EmployeeNotified || outcome.AttendanceBlocked {
		t.Fatalf("degraded effects reported as successful: %+v", outcome)
	}
	found := map[string]bool{}
	for _, d := range outcome.Degraded {
		found[d] = true
	}
	if !found["notification"] || !found["attendance"] {
		t.Fatalf("expected notification and attendance degradation, got %+v", outcome.Degraded)
	}
}

func TestFinalizeRecordsUnpaidDeduction(t *testing.T) {
	h := newHarness()
	h.ledger.balance = 0

	result, err := h.svc.Submit(context.Background(), SubmitInput{
		EmployeeID:  "emp-1",
		LeaveTypeID: "type-annual",
		StartDate:   dateAt(2026, 8, 10),
		EndDate:     dateAt(2026, 8, 14),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	h.ledger.balance = 100 // HR balance check passes
	_, outcome, err := h.svc.Review(context.Background(), result.Unpaid.ID, "hr-1", "approved", "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !outcome.DeductionRecorded {
		t.Fatalf("deduction not recorded: %+v", outcome)
	}
	// 5 days at 2200/22 = 100 per day.
	if outcome.PayrollDeduction != 500 {
		t.Fatalf("expected deduction 500, got %v", outcome.PayrollDeduction)
	}
	if len(h.penalties.recorded) != 1 || h.penalties.recorded[0].Kind != "unpaid_leave" {
		t.Fatalf("penalty record mismatch: %+v", h.penalties.recorded)
	}
}

// --- escalation ------------------------------------------------------------

func TestCheckAutoEscalation(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)
	h.store.requests[req.ID].CreatedAt = h.now

	// Fresh request: nothing to escalate.
	count, err := h.svc.CheckAutoEscalation(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("escalation: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 escalations, got %d", count)
	}

	// Age the request past the cutoff.
	h.store.requests[req.ID].CreatedAt = h.now.Add(-72 * time.Hour)
	h.notifier.sent = nil

	count, err = h.svc.CheckAutoEscalation(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("escalation: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 escalation, got %d", count)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].EmployeeID != "head-1" || h.notifier.sent[0].Kind != "leave_escalated" {
		t.Fatalf("skip-level manager not notified: %+v", h.notifier.sent)
	}
	// State stays untouched.
	stored, _ := h.store.Get(context.Background(), req.ID)
	if stored.Status != StatusPending {
		t.Fatalf("escalation must not change status, got %s", stored.Status)
	}
}

func TestCheckAutoEscalationSkipsDecidedRequests(t *testing.T) {
	h := newHarness()
	req := submitPending(t, h)
	if _, err := h.svc.Approve(context.Background(), req.ID, "mgr-1", "approved", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	h.store.requests[req.ID].CreatedAt = h.now.Add(-72 * time.Hour)

	count, err := h.svc.CheckAutoEscalation(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("escalation: %v", err)
	}
	if count != 0 {
		t.Fatalf("decided request must not escalate, got %d", count)
	}
}

// --- retroactive deduction -------------------------------------------------

func TestApplyRetroactiveDeduction(t *testing.T) {
	h := newHarness()

	req, outcome, err := h.svc.ApplyRetroactiveDeduction(context.Background(), "emp-1", "UNPAID",
		dateAt(2026, 7, 6), dateAt(2026, 7, 10), "missed punches")
	if err != nil {
		t.Fatalf("retroactive: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("retroactive request must be approved immediately, got %s", req.Status)
	}
	if len(req.ApprovalFlow) != 1 || req.ApprovalFlow[0].Role != RoleHRSystem {
		t.Fatalf("expected synthetic HR_SYSTEM entry: %+v", req.ApprovalFlow)
	}
	if !outcome.BalanceUpdated {
		t.Fatalf("finalization skipped: %+v", outcome)
	}
	if !outcome.DeductionRecorded || outcome.PayrollDeduction != 500 {
		t.Fatalf("unpaid deduction missing: %+v", outcome)
	}
}

func TestApplyRetroactiveDeductionInvalidRange(t *testing.T) {
	h := newHarness()
	_, _, err := h.svc.ApplyRetroactiveDeduction(context.Background(), "emp-1", "UNPAID",
		dateAt(2026, 7, 10), dateAt(2026, 7, 6), "bad range")
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}
