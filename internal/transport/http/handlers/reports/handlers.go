package reportshandler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/entitlement"
	"leavehub/internal/domain/policy"
	"leavehub/internal/domain/request"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Requests     *request.Service
	Entitlements *entitlement.Ledger
	Policies     *policy.Service
	Directory    directory.Reader
	Perms        middleware.PermissionStore
}

func NewHandler(requests *request.Service, entitlements *entitlement.Ledger, policies *policy.Service, dir directory.Reader, perms middleware.PermissionStore) *Handler {
	return &Handler{Requests: requests, Entitlements: entitlements, Policies: policies, Directory: dir, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/calendar", h.handleCalendarFeed)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/requests/export", h.handleRequestsCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/statement", h.handleStatementPDF)
	})
}

// handleCalendarFeed lists approved leave overlapping [from, to], one entry
// per request, for team calendar views.
func (h *Handler) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	from, err := shared.ParseDate(r.URL.Query().Get("from"))
	if err != nil || from.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_range", "from is required (YYYY-MM-DD)", middleware.GetRequestID(r.Context()))
		return
	}
	to, err := shared.ParseDate(r.URL.Query().Get("to"))
	if err != nil || to.IsZero() || to.Before(from) {
		api.Fail(w, http.StatusBadRequest, "invalid_range", "to is required and must not precede from", middleware.GetRequestID(r.Context()))
		return
	}

	requests, err := h.Requests.List(r.Context(), request.ListFilter{Status: request.StatusApproved, Limit: 10000})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to load requests", middleware.GetRequestID(r.Context()))
		return
	}

	type entry struct {
		RequestID   string  `json:"requestId"`
		EmployeeID  string  `json:"employeeId"`
		Employee    string  `json:"employee"`
		LeaveTypeID string  `json:"leaveTypeId"`
		StartDate   string  `json:"startDate"`
		EndDate     string  `json:"endDate"`
		Days        float64 `json:"days"`
	}
	entries := []entry{}
	for _, req := range requests {
		if req.EndDate.Before(from) || req.StartDate.After(to) {
			continue
		}
		name := req.EmployeeID
		if emp, err := h.Directory.EmployeeByID(r.Context(), req.EmployeeID); err == nil {
			name = emp.FirstName + " " + emp.LastName
		}
		entries = append(entries, entry{
			RequestID:   req.ID,
			EmployeeID:  req.EmployeeID,
			Employee:    name,
			LeaveTypeID: req.LeaveTypeID,
			StartDate:   req.StartDate.Format("2006-01-02"),
			EndDate:     req.EndDate.Format("2006-01-02"),
			Days:        req.DurationDays,
		})
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

// handleRequestsCSV streams approved and pending requests for a year, one
// row per request.
func (h *Handler) handleRequestsCSV(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	filter := request.ListFilter{Limit: 10000}
	switch user.RoleName {
	case auth.RoleHRAdmin, auth.RoleSystemAdmin, auth.RoleManager:
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	default:
		filter.EmployeeID = user.EmployeeID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = status
	}

	requests, err := h.Requests.List(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to load requests", middleware.GetRequestID(r.Context()))
		return
	}

	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, _ = strconv.Atoi(raw)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leave_requests.csv"`)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"id", "employee_id", "leave_type_id", "start_date", "end_date", "duration_days", "status"})
	for _, req := range requests {
		if year > 0 && req.StartDate.Year() != year {
			continue
		}
		_ = writer.Write([]string{
			req.ID,
			req.EmployeeID,
			req.LeaveTypeID,
			req.StartDate.Format("2006-01-02"),
			req.EndDate.Format("2006-01-02"),
			strconv.FormatFloat(req.DurationDays, 'f', 1, 64),
			req.Status,
		})
	}
	writer.Flush()
}

// handleStatementPDF renders a per-employee leave statement: entitlements
// with taken/remaining plus this year's requests.
func (h *Handler) handleStatementPDF(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	employeeID := user.EmployeeID
	if requested := r.URL.Query().Get("employeeId"); requested != "" && requested != user.EmployeeID {
		if user.RoleName != auth.RoleHRAdmin && user.RoleName != auth.RoleSystemAdmin && user.RoleName != auth.RoleManager {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot export another employee's statement", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = requested
	}

	emp, err := h.Directory.EmployeeByID(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	entitlements, err := h.Entitlements.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "statement_failed", "failed to load entitlements", middleware.GetRequestID(r.Context()))
		return
	}
	requests, err := h.Requests.List(r.Context(), request.ListFilter{EmployeeID: employeeID, Limit: 500})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "statement_failed", "failed to load requests", middleware.GetRequestID(r.Context()))
		return
	}

	typeNames := map[string]string{}
	if types, err := h.Policies.ListTypes(r.Context()); err == nil {
		for _, lt := range types {
			typeNames[lt.ID] = lt.Name
		}
	}

	year := time.Now().Year()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s (%s)", emp.FirstName, emp.LastName, emp.EmployeeNumber))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Year: %d", year))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Entitlements")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, ent := range entitlements {
		name := typeNames[ent.LeaveTypeID]
		if name == "" {
			name = ent.LeaveTypeID
		}
		pdf.Cell(0, 7, fmt.Sprintf("%s: %.1f yearly, %.1f taken, %.1f remaining", name, ent.YearlyEntitlement, ent.Taken, ent.Remaining))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Requests")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, req := range requests {
		if req.StartDate.Year() != year {
			continue
		}
		name := typeNames[req.LeaveTypeID]
		if name == "" {
			name = req.LeaveTypeID
		}
		pdf.Cell(0, 7, fmt.Sprintf("%s to %s  %s  %.1f days  %s",
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), name, req.DurationDays, req.Status))
		pdf.Ln(6)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="leave_statement.pdf"`)
	if err := pdf.Output(w); err != nil {
		api.Fail(w, http.StatusInternalServerError, "statement_failed", "failed to render statement", middleware.GetRequestID(r.Context()))
	}
}
