package calendarhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/calendar"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
	"leavehub/internal/transport/http/shared"
)

type Handler struct {
	Engine *calendar.Engine
	Perms  middleware.PermissionStore
}

func NewHandler(engine *calendar.Engine, perms middleware.PermissionStore) *Handler {
	return &Handler{Engine: engine, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermCalendarWrite, h.Perms)).Post("/holidays", h.handleAddHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/blocked-periods", h.handleListBlockedPeriods)
		r.With(middleware.RequirePermission(auth.PermCalendarWrite, h.Perms)).Post("/blocked-periods", h.handleAddBlockedPeriod)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/net-duration", h.handleNetDuration)
	})
}

func yearParam(r *http.Request) int {
	if raw := r.URL.Query().Get("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil && year > 0 {
			return year
		}
	}
	return time.Now().Year()
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Engine.HolidaysForYear(r.Context(), yearParam(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holidays_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddHoliday(w http.ResponseWriter, r *http.Request) {
	var payload calendar.HolidayInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "holiday name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Engine.AddHoliday(r.Context(), yearParam(r), payload)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidRange) {
			api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "holiday_create_failed", "failed to add holiday", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBlockedPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Engine.BlockedPeriodsForYear(r.Context(), yearParam(r))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "blocked_periods_failed", "failed to list blocked periods", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddBlockedPeriod(w http.ResponseWriter, r *http.Request) {
	var payload calendar.BlockedPeriodInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "blocked period name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Engine.AddBlockedPeriod(r.Context(), yearParam(r), payload)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidRange) {
			api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "blocked_period_create_failed", "failed to add blocked period", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

// handleNetDuration computes the working-day span of a candidate leave window
// without creating a request.
func (h *Handler) handleNetDuration(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	start, okStart := v.Date("from", r.URL.Query().Get("from"))
	end, okEnd := v.Date("to", r.URL.Query().Get("to"))
	if okStart && okEnd {
		v.DateOrder("from", start, "to", end)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	days, err := h.Engine.NetLeaveDuration(r.Context(), start, end, start.Year())
	if err != nil {
		if errors.Is(err, calendar.ErrBlockedPeriod) {
			api.Fail(w, http.StatusConflict, "blocked_period", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "net_duration_failed", "failed to compute duration", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"netDurationDays": days}, middleware.GetRequestID(r.Context()))
}
