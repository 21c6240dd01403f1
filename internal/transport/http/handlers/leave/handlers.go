package leavehandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/calendar"
	"leavehub/internal/domain/policy"
	"leavehub/internal/domain/request"
	"leavehub/internal/platform/jobs"
	"leavehub/internal/platform/metrics"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

const maxUploadBytes = 5 * 1024 * 1024

type Handler struct {
	Service     *request.Service
	Attachments *request.AttachmentStore
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Jobs        *jobs.Service
	Metrics     *metrics.Collector
}

func NewHandler(service *request.Service, attachments *request.AttachmentStore, perms middleware.PermissionStore, auditSvc *audit.Service, jobsSvc *jobs.Service, collector *metrics.Collector) *Handler {
	return &Handler{
		Service:     service,
		Attachments: attachments,
		Perms:       perms,
		Audit:       auditSvc,
		Jobs:        jobsSvc,
		Metrics:     collector,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/requests", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveReview, h.Perms)).Post("/{requestID}/review", h.handleReview)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/attachments", h.handleUploadAttachment)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/attachments/{attachmentID}", h.handleDownloadAttachment)
		r.With(middleware.RequirePermission(auth.PermLeaveReview, h.Perms)).Post("/retroactive", h.handleRetroactive)
		r.With(middleware.RequirePermission(auth.PermLeaveReview, h.Perms)).Post("/escalation/run", h.handleRunEscalation)
	})
}

type submitPayload struct {
	EmployeeID    string `json:"employeeId,omitempty"`
	LeaveTypeID   string `json:"leaveTypeId"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Justification string `json:"justification"`
	AttachmentID  string `json:"attachmentId,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := user.EmployeeID
	if payload.EmployeeID != "" && payload.EmployeeID != user.EmployeeID {
		// Submission on behalf of someone else is an HR action.
		if user.RoleName != auth.RoleHRAdmin && user.RoleName != auth.RoleSystemAdmin {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot submit for another employee", middleware.GetRequestID(r.Context()))
			return
		}
		employeeID = payload.EmployeeID
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type is required")
	start, okStart := v.Date("startDate", payload.StartDate)
	end, okEnd := v.Date("endDate", payload.EndDate)
	if okStart && okEnd {
		v.DateOrder("startDate", start, "endDate", end)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.Submit(r.Context(), request.SubmitInput{
		EmployeeID:    employeeID,
		LeaveTypeID:   payload.LeaveTypeID,
		StartDate:     start,
		EndDate:       end,
		Justification: payload.Justification,
		AttachmentID:  payload.AttachmentID,
	})
	if err != nil {
		h.failSubmit(w, r, err)
		return
	}

	entityID := ""
	if result.Paid != nil {
		entityID = result.Paid.ID
	} else if result.Unpaid != nil {
		entityID = result.Unpaid.ID
	}
	h.record(r, user.UserID, "leave.request.submit", entityID, payload)
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failSubmit(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, request.ErrInvalidDateRange),
		errors.Is(err, request.ErrInsufficientNotice),
		errors.Is(err, request.ErrMaxDuration),
		errors.Is(err, request.ErrYearlyLimit),
		errors.Is(err, request.ErrAttachmentRequired),
		errors.Is(err, request.ErrAttachmentInvalid):
		api.Fail(w, http.StatusBadRequest, "submit_rejected", err.Error(), requestID)
	case errors.Is(err, request.ErrIneligible):
		api.Fail(w, http.StatusUnprocessableEntity, "ineligible", err.Error(), requestID)
	case errors.Is(err, request.ErrOverlap):
		api.Fail(w, http.StatusConflict, "overlap", err.Error(), requestID)
	case errors.Is(err, request.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, request.ErrUnpaidTypeMissing):
		api.Fail(w, http.StatusConflict, "unpaid_type_missing", err.Error(), requestID)
	case errors.Is(err, policy.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", requestID)
	case errors.Is(err, calendar.ErrBlockedPeriod):
		api.Fail(w, http.StatusConflict, "blocked_period", err.Error(), requestID)
	default:
		slog.Error("leave submission failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "submit_failed", "failed to submit leave request", requestID)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	filter := request.ListFilter{
		LeaveTypeID: r.URL.Query().Get("leaveTypeId"),
		Status:      strings.ToUpper(r.URL.Query().Get("status")),
	}
	page := shared.ParsePagination(r, 50, 200)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	// Employees see their own requests only; privileged roles may filter.
	switch user.RoleName {
	case auth.RoleHRAdmin, auth.RoleSystemAdmin, auth.RoleManager:
		filter.EmployeeID = r.URL.Query().Get("employeeId")
	default:
		filter.EmployeeID = user.EmployeeID
	}

	requests, err := h.Service.List(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Service.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "request_failed", "failed to load request", middleware.GetRequestID(r.Context()))
		return
	}
	if user.RoleName == auth.RoleEmployee && req.EmployeeID != user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another employee's request", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment,omitempty"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Approve(r.Context(), requestID, user.EmployeeID, payload.Decision, payload.Comment)
	if err != nil {
		h.failDecision(w, r, err)
		return
	}
	h.record(r, user.UserID, "leave.request.manager_decision", requestID, payload)
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type reviewPayload struct {
	Decision       string `json:"decision"`
	OverrideReason string `json:"overrideReason,omitempty"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	var payload reviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, outcome, err := h.Service.Review(r.Context(), requestID, user.EmployeeID, payload.Decision, payload.OverrideReason)
	if err != nil {
		h.failDecision(w, r, err)
		return
	}
	if outcome != nil && len(outcome.Degraded) > 0 && h.Metrics != nil {
		h.Metrics.RecordDegradedFinalization()
	}
	h.record(r, user.UserID, "leave.request.hr_decision", requestID, payload)
	api.Success(w, map[string]any{"request": req, "finalization": outcome}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failDecision(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, request.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
	case errors.Is(err, request.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, request.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not authorized to decide this request", requestID)
	case errors.Is(err, request.ErrYearlyLimit),
		errors.Is(err, request.ErrAttachmentInvalid),
		errors.Is(err, request.ErrAttachmentRequired):
		api.Fail(w, http.StatusUnprocessableEntity, "review_rejected", err.Error(), requestID)
	case errors.Is(err, request.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	default:
		slog.Error("leave decision failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "decision_failed", "failed to record decision", requestID)
	}
}

func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "invalid multipart payload", middleware.GetRequestID(r.Context()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file field is required", middleware.GetRequestID(r.Context()))
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "attachment exceeds the 5MB limit", middleware.GetRequestID(r.Context()))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "upload_failed", "failed to read attachment", middleware.GetRequestID(r.Context()))
		return
	}
	if len(content) > maxUploadBytes {
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "attachment exceeds the 5MB limit", middleware.GetRequestID(r.Context()))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	id, err := h.Attachments.Save(r.Context(), header.Filename, contentType, content)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "upload_failed", "failed to store attachment", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]any{"id": id, "fileName": header.Filename, "contentType": contentType, "sizeBytes": len(content)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID := chi.URLParam(r, "attachmentID")

	meta, content, err := h.Attachments.Content(r.Context(), attachmentID)
	if err != nil {
		if errors.Is(err, request.ErrAttachmentNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "attachment not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "download_failed", "failed to load attachment", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

type retroactivePayload struct {
	EmployeeID   string `json:"employeeId"`
	LeaveTypeRef string `json:"leaveTypeRef"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Reason       string `json:"reason"`
}

func (h *Handler) handleRetroactive(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload retroactivePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee is required")
	v.Required("leaveTypeRef", payload.LeaveTypeRef, "leave type is required")
	v.Required("reason", payload.Reason, "a reason is required")
	start, okStart := v.Date("startDate", payload.StartDate)
	end, okEnd := v.Date("endDate", payload.EndDate)
	if okStart && okEnd {
		v.DateOrder("startDate", start, "endDate", end)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	req, outcome, err := h.Service.ApplyRetroactiveDeduction(r.Context(), payload.EmployeeID, payload.LeaveTypeRef, start, end, payload.Reason)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrInvalidDateRange):
			api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, policy.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "retroactive_failed", "failed to apply retroactive deduction", middleware.GetRequestID(r.Context()))
		}
		return
	}
	if outcome != nil && len(outcome.Degraded) > 0 && h.Metrics != nil {
		h.Metrics.RecordDegradedFinalization()
	}
	h.record(r, user.UserID, "leave.request.retroactive", req.ID, payload)
	api.Created(w, map[string]any{"request": req, "finalization": outcome}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunEscalation(w http.ResponseWriter, r *http.Request) {
	details, err := h.Jobs.RunEscalationNow(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "escalation_failed", "failed to run escalation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, "leave_request", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
