package delegationhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/delegation"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Service *delegation.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *delegation.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/delegations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Put("/", h.handleSet)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Delete("/", h.handleRevoke)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/accept", h.handleAccept)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/status", h.handleStatus)
	})
}

type setPayload struct {
	DelegateID string `json:"delegateId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate,omitempty"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload setPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("delegateId", payload.DelegateID, "delegate is required")
	start, okStart := v.Date("startDate", payload.StartDate)
	var end *time.Time
	if payload.EndDate != "" {
		parsed, okEnd := v.Date("endDate", payload.EndDate)
		if okStart && okEnd {
			v.DateOrder("startDate", start, "endDate", parsed)
		}
		end = &parsed
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.Set(r.Context(), user.EmployeeID, payload.DelegateID, start, end); err != nil {
		if errors.Is(err, delegation.ErrSelfDelegation) {
			api.Fail(w, http.StatusBadRequest, "self_delegation", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "delegation_set_failed", "failed to set delegation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"managerId": user.EmployeeID, "delegateId": payload.DelegateID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.Service.Revoke(r.Context(), user.EmployeeID); err != nil {
		if errors.Is(err, delegation.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "no delegation configured", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "delegation_revoke_failed", "failed to revoke delegation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"managerId": user.EmployeeID}, middleware.GetRequestID(r.Context()))
}

type respondPayload struct {
	ManagerID string `json:"managerId"`
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload respondPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.Accept(r.Context(), payload.ManagerID, user.EmployeeID); err != nil {
		h.failRespond(w, r, err)
		return
	}
	api.Success(w, map[string]string{"managerId": payload.ManagerID, "status": delegation.StatusAccepted}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload respondPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.Reject(r.Context(), payload.ManagerID, user.EmployeeID); err != nil {
		h.failRespond(w, r, err)
		return
	}
	api.Success(w, map[string]string{"managerId": payload.ManagerID, "status": delegation.StatusRejected}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failRespond(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, delegation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "no delegation configured", middleware.GetRequestID(r.Context()))
	case errors.Is(err, delegation.ErrDelegateMismatch):
		api.Fail(w, http.StatusForbidden, "forbidden", "you are not the delegate of this delegation", middleware.GetRequestID(r.Context()))
	case errors.Is(err, delegation.ErrAlreadyRejected):
		api.Fail(w, http.StatusConflict, "already_rejected", err.Error(), middleware.GetRequestID(r.Context()))
	default:
		api.Fail(w, http.StatusInternalServerError, "delegation_respond_failed", "failed to update delegation", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	managerID := r.URL.Query().Get("managerId")
	if managerID == "" {
		managerID = user.EmployeeID
	}

	status, err := h.Service.Status(r.Context(), managerID, time.Now())
	if err != nil {
		if errors.Is(err, delegation.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "no delegation configured", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "delegation_status_failed", "failed to read delegation status", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, status, middleware.GetRequestID(r.Context()))
}
