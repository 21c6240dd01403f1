package entitlementhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/entitlement"
	"leavehub/internal/domain/policy"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Ledger *entitlement.Ledger
	Perms  middleware.PermissionStore
	Audit  *audit.Service
}

func NewHandler(ledger *entitlement.Ledger, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Ledger: ledger, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/entitlements", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balance", h.handleBalance)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Put("/personalized", h.handleSetPersonalized)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Put("/group", h.handleSetGroup)
		r.With(middleware.RequirePermission(auth.PermLeaveConfigure, h.Perms)).Post("/adjust", h.handleAdjust)
	})
}

// employeeScope resolves which employee the caller may read. Non-privileged
// users only see themselves.
func employeeScope(r *http.Request) (string, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return "", false
	}
	requested := r.URL.Query().Get("employeeId")
	if requested == "" || requested == user.EmployeeID {
		return user.EmployeeID, true
	}
	if user.RoleName == auth.RoleHRAdmin || user.RoleName == auth.RoleSystemAdmin || user.RoleName == auth.RoleManager {
		return requested, true
	}
	return "", false
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeScope(r)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another employee's entitlements", middleware.GetRequestID(r.Context()))
		return
	}
	entitlements, err := h.Ledger.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "entitlements_failed", "failed to list entitlements", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, entitlements, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := employeeScope(r)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot read another employee's balance", middleware.GetRequestID(r.Context()))
		return
	}
	leaveTypeID := r.URL.Query().Get("leaveTypeId")
	v := shared.NewValidator()
	v.Required("leaveTypeId", leaveTypeID, "leave type is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	balance, err := h.Ledger.Balance(r.Context(), employeeID, leaveTypeID)
	if err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "balance_failed", "failed to compute balance", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"employeeId":  employeeID,
		"leaveTypeId": leaveTypeID,
		"balance":     balance,
	}, middleware.GetRequestID(r.Context()))
}

type personalizedPayload struct {
	EmployeeID   string  `json:"employeeId"`
	LeaveTypeRef string  `json:"leaveTypeRef"`
	Yearly       float64 `json:"yearlyEntitlement"`
	Reason       string  `json:"reason"`
}

func (h *Handler) handleSetPersonalized(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload personalizedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee is required")
	v.Required("leaveTypeRef", payload.LeaveTypeRef, "leave type is required")
	if payload.Yearly < 0 {
		v.Add("yearlyEntitlement", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Ledger.SetPersonalized(r.Context(), payload.EmployeeID, payload.LeaveTypeRef, payload.Yearly, payload.Reason); err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "entitlement_set_failed", "failed to set entitlement", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, "leave.entitlement.set", "leave_entitlement", payload.EmployeeID, payload)
	api.Success(w, map[string]string{"employeeId": payload.EmployeeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload entitlement.GroupAssignment
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("leaveTypeRef", payload.LeaveTypeRef, "leave type is required")
	if payload.YearlyEntitlement < 0 {
		v.Add("yearlyEntitlement", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Ledger.SetPersonalizedForGroup(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, entitlement.ErrNoEmployeesMatched):
			api.Fail(w, http.StatusBadRequest, "no_employees_matched", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, policy.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "group_entitlement_failed", "failed to assign group entitlement", middleware.GetRequestID(r.Context()))
		}
		return
	}
	h.record(r, user.UserID, "leave.entitlement.group", "leave_entitlement", "", payload)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

type adjustPayload struct {
	EmployeeID   string  `json:"employeeId"`
	LeaveTypeRef string  `json:"leaveTypeRef"`
	Amount       float64 `json:"amount"`
	Reason       string  `json:"reason"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload adjustPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee is required")
	v.Required("leaveTypeRef", payload.LeaveTypeRef, "leave type is required")
	v.Required("reason", payload.Reason, "an adjustment reason is required")
	if payload.Amount == 0 {
		v.Add("amount", "must be non-zero")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Ledger.Adjust(r.Context(), payload.EmployeeID, payload.LeaveTypeRef, payload.Amount, payload.Reason, user.UserID); err != nil {
		if errors.Is(err, policy.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "adjustment_failed", "failed to adjust balance", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, "leave.balance.adjust", "leave_entitlement", payload.EmployeeID, payload)
	api.Success(w, map[string]string{"employeeId": payload.EmployeeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
