package appraisalhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/appraisal"
	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/reports"
	"appraise/internal/platform/jobs"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *appraisal.Service
	Reports *reports.Service
	Jobs    *jobs.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *appraisal.Service, reportsSvc *reports.Service, jobsSvc *jobs.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Reports: reportsSvc, Jobs: jobsSvc, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal-cycles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/", h.handleListCycles)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/", h.handleCreateCycle)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Put("/{cycleID}/status", h.handleUpdateCycleStatus)
	})
	r.Route("/frequency-calendars", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/", h.handleListCalendars)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/", h.handleCreateCalendar)
	})
	r.Route("/appraisal-groups", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/", h.handleListGroups)
		r.With(middleware.RequirePermission(auth.PermAppraisalsWrite, h.Perms)).Post("/", h.handleCreateGroup)
	})
	r.Route("/appraisals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/", h.handleListAppraisals)
		r.With(middleware.RequirePermission(auth.PermAppraisalsInitiate, h.Perms)).Post("/initiate", h.handleInitiate)
		r.With(middleware.RequirePermission(auth.PermAppraisalsRead, h.Perms)).Get("/scheduled-tasks", h.handleListTasks)
		r.With(middleware.RequirePermission(auth.PermAppraisalsInitiate, h.Perms)).Post("/scheduled-tasks/{taskID}/retry", h.handleRetryTask)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/scheduled-tasks/run", h.handleRunDue)
	})
}

func (h *Handler) handleListCycles(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycles, err := h.Service.ListCycles(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "cycle_list_failed", "failed to list cycles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cycles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, okStart := v.Date("startDate", payload.StartDate)
	end, okEnd := v.Date("endDate", payload.EndDate)
	if okStart && okEnd {
		v.DateOrder("startDate", start, "endDate", end)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateCycle(r.Context(), user.TenantID, appraisal.Cycle{
		Name: payload.Name, StartDate: start, EndDate: end, Status: payload.Status,
	})
	if err != nil {
		h.fail(w, r, err, "cycle_create_failed", "failed to create cycle")
		return
	}
	h.record(r, user, "appraisal.cycle.create", "appraisal_cycle", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateCycleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	cycleID := chi.URLParam(r, "cycleID")
	if err := h.Service.UpdateCycleStatus(r.Context(), user.TenantID, cycleID, payload.Status); err != nil {
		h.fail(w, r, err, "cycle_update_failed", "failed to update cycle")
		return
	}
	h.record(r, user, "appraisal.cycle.status", "appraisal_cycle", cycleID, payload)
	api.Success(w, map[string]string{"id": cycleID, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	calendars, err := h.Service.ListCalendars(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_list_failed", "failed to list calendars", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, calendars, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		Name    string `json:"name"`
		Details []struct {
			Name        string `json:"name"`
			PeriodStart string `json:"periodStart"`
			PeriodEnd   string `json:"periodEnd"`
			TriggerAt   string `json:"triggerAt"`
		} `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	cal := appraisal.Calendar{Name: payload.Name}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	for _, d := range payload.Details {
		start, okStart := v.Date("details.periodStart", d.PeriodStart)
		end, okEnd := v.Date("details.periodEnd", d.PeriodEnd)
		trigger, okTrigger := v.Date("details.triggerAt", d.TriggerAt)
		if !okStart || !okEnd || !okTrigger {
			continue
		}
		v.DateOrder("details.periodStart", start, "details.periodEnd", end)
		cal.Details = append(cal.Details, appraisal.CalendarDetail{
			Name: d.Name, PeriodStart: start, PeriodEnd: end, TriggerAt: trigger,
		})
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateCalendar(r.Context(), user.TenantID, cal)
	if err != nil {
		h.fail(w, r, err, "calendar_create_failed", "failed to create calendar")
		return
	}
	h.record(r, user, "appraisal.calendar.create", "frequency_calendar", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	groups, err := h.Service.ListGroups(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "group_list_failed", "failed to list groups", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, groups, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload appraisal.Group
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := h.Service.CreateGroup(r.Context(), user.TenantID, payload)
	if err != nil {
		h.fail(w, r, err, "group_create_failed", "failed to create group")
		return
	}
	h.record(r, user, "appraisal.group.create", "appraisal_group", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAppraisals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	appraisals, err := h.Service.ListInitiatedAppraisals(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "appraisal_list_failed", "failed to list appraisals", middleware.GetRequestID(r.Context()))
		return
	}

	progress, err := h.Reports.AppraisalProgress(r.Context(), user.TenantID)
	if err != nil {
		slog.Warn("appraisal progress aggregation failed", "err", err)
		progress = map[string]reports.Progress{}
	}

	type entry struct {
		appraisal.InitiatedAppraisal
		Progress reports.Progress `json:"progress"`
	}
	out := make([]entry, 0, len(appraisals))
	for _, a := range appraisals {
		out = append(out, entry{InitiatedAppraisal: a, Progress: progress[a.ID]})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload appraisal.InitiateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Service.Initiate(r.Context(), user.TenantID, payload)
	if err != nil {
		h.fail(w, r, err, "initiate_failed", "failed to initiate appraisal")
		return
	}
	h.record(r, user, audit.ActionAppraisalInitiated, "initiated_appraisal", result.InitiatedAppraisalID, result)
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	tasks, err := h.Service.ListTasks(r.Context(), user.TenantID, r.URL.Query().Get("status"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "task_list_failed", "failed to list scheduled tasks", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, tasks, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	taskID := chi.URLParam(r, "taskID")
	if err := h.Service.RetryTask(r.Context(), user.TenantID, taskID); err != nil {
		h.fail(w, r, err, "task_retry_failed", "failed to re-arm task")
		return
	}
	h.record(r, user, audit.ActionTaskRetried, "scheduled_appraisal_task", taskID, nil)
	api.Success(w, map[string]string{"id": taskID, "status": appraisal.TaskStatusPending}, middleware.GetRequestID(r.Context()))
}

// handleRunDue triggers a sweep on demand instead of waiting for the next
// tick. The conditional claim keeps a manual run safe next to the ticker.
func (h *Handler) handleRunDue(w http.ResponseWriter, r *http.Request) {
	promoted, err := h.Jobs.RunDue(r.Context(), time.Now().UTC())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "sweep_failed", "scheduled task sweep failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"promoted": promoted}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	var verr *appraisal.ValidationError
	switch {
	case errors.As(err, &verr):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "request validation failed", verr.Problems, requestID)
	case errors.Is(err, appraisal.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "record not found", requestID)
	case errors.Is(err, appraisal.ErrTaskNotRetryable):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_state_transition", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
