package policyhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/accrual"
	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/policy"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Service   *policy.Service
	Accrual   *accrual.Calculator
	Directory directory.Reader
	Perms     middleware.PermissionStore
	Audit     *audit.Service
}

func NewHandler(service *policy.Service, calc *accrual.Calculator, dir directory.Reader, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Accrual: calc, Directory: dir, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/categories", h.handleListCategories)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Post("/categories", h.handleCreateCategory)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Post("/types", h.handleCreateType)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Patch("/types/{typeID}", h.handlePatchType)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Put("/types/{typeID}/workflow", h.handleSetWorkflow)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Put("/types/{typeID}/payroll-code", h.handleSetPayrollCode)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Put("/policies", h.handleUpsertPolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Post("/accrual/configure", h.handleConfigureAccrual)
	})
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "categories_failed", "failed to list categories", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, categories, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "category name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateCategory(r.Context(), payload.Name)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "category_create_failed", "failed to create category", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.ListTypes(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_types_failed", "failed to list leave types", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload policy.LeaveType
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("code", payload.Code, "leave type code is required")
	v.Required("name", payload.Name, "leave type name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateType(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrDuplicateCode):
			api.Fail(w, http.StatusConflict, "duplicate_code", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, policy.ErrMissingCategory):
			api.Fail(w, http.StatusBadRequest, "missing_category", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "leave_type_create_failed", "failed to create leave type", middleware.GetRequestID(r.Context()))
		}
		return
	}
	h.record(r, user.UserID, "leave.type.create", "leave_type", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePatchType(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	typeID := chi.URLParam(r, "typeID")

	var patch policy.TypePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.PatchType(r.Context(), typeID, patch); err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "leave_type_update_failed", "failed to update leave type", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, "leave.type.update", "leave_type", typeID, nil, patch)
	api.Success(w, map[string]string{"id": typeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetWorkflow(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	typeID := chi.URLParam(r, "typeID")

	var payload struct {
		Steps []policy.ApprovalStep `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.SetApprovalWorkflow(r.Context(), typeID, payload.Steps); err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_workflow", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, "leave.workflow.set", "leave_type", typeID, nil, payload.Steps)
	api.Success(w, map[string]string{"id": typeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetPayrollCode(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	typeID := chi.URLParam(r, "typeID")

	var payload struct {
		PayrollCode string `json:"payrollCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.SetPayrollCode(r.Context(), typeID, payload.PayrollCode); err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payroll_code_failed", "failed to set payroll code", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, "leave.payroll_code.set", "leave_type", typeID, nil, payload)
	api.Success(w, map[string]string{"id": typeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policies_failed", "failed to list policies", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertPolicy(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload policy.LeavePolicy
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.UpsertPolicy(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, policy.ErrInvalidRounding), errors.Is(err, policy.ErrInvalidAccrual):
			api.Fail(w, http.StatusBadRequest, "invalid_policy", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "policy_upsert_failed", "failed to save policy", middleware.GetRequestID(r.Context()))
		}
		return
	}
	h.record(r, user.UserID, "leave.policy.upsert", "leave_policy", id, nil, payload)
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

type configureAccrualPayload struct {
	EmployeeRef string                `json:"employeeRef"`
	LeaveTypeID string                `json:"leaveTypeId"`
	Input       accrual.ConfigureInput `json:"config"`
}

func (h *Handler) handleConfigureAccrual(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload configureAccrualPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeRef", payload.EmployeeRef, "employee reference is required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leave type is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	monthsWorked := 0
	if emp, err := h.Directory.EmployeeByID(r.Context(), payload.EmployeeRef); err == nil && emp.DateOfHire != nil {
		monthsWorked = accrual.MonthsWorked(*emp.DateOfHire, time.Now())
	}

	result, err := h.Accrual.ConfigureAccrualPolicy(r.Context(), payload.EmployeeRef, payload.LeaveTypeID, monthsWorked, payload.Input)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, accrual.ErrUnknownContractType),
			errors.Is(err, accrual.ErrUnknownResetDate),
			errors.Is(err, accrual.ErrUnknownMethod):
			api.Fail(w, http.StatusBadRequest, "invalid_config", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "accrual_configure_failed", "failed to configure accrual", middleware.GetRequestID(r.Context()))
		}
		return
	}
	h.record(r, user.UserID, "leave.accrual.configure", "leave_policy", result.PolicyID, nil, payload)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
