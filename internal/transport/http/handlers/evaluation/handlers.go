package evaluationhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/evaluation"
	"appraise/internal/domain/notifications"
	"appraise/internal/domain/org"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
	Org     *org.Service
	Notify  *notifications.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *evaluation.Service, orgSvc *org.Service, notify *notifications.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Org: orgSvc, Notify: notify, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/{evaluationID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSelf, h.Perms)).Put("/{evaluationID}/draft", h.handleSaveDraft)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSelf, h.Perms)).Put("/{evaluationID}/self", h.handleSubmitSelf)
		r.With(middleware.RequirePermission(auth.PermEvaluationsReview, h.Perms)).Put("/{evaluationID}/manager-review", h.handleManagerReview)
		r.With(middleware.RequirePermission(auth.PermEvaluationsReview, h.Perms)).Post("/{evaluationID}/schedule-meeting", h.handleScheduleMeeting)
		r.With(middleware.RequirePermission(auth.PermEvaluationsReview, h.Perms)).Put("/{evaluationID}/meeting-notes", h.handleMeetingNotes)
		r.With(middleware.RequirePermission(auth.PermEvaluationsFinalize, h.Perms)).Post("/{evaluationID}/complete", h.handleComplete)
		r.With(middleware.RequirePermission(auth.PermEvaluationsCalibrate, h.Perms)).Patch("/{evaluationID}/calibrate", h.handleCalibrate)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Post("/export", h.handleExport)
	})
	r.With(middleware.RequirePermission(auth.PermRemindersSend, h.Perms)).Post("/send-reminder", h.handleSendReminder)
	h.registerGoalRoutes(r)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	// Employees see their own evaluations, managers their team's reviews,
	// HR the whole tenant with optional query filters.
	employeeID, managerID := "", ""
	switch user.RoleName {
	case auth.RoleEmployee:
		employeeID = h.actorEmployeeID(r, user)
		if employeeID == "" {
			api.Success(w, []evaluation.Evaluation{}, middleware.GetRequestID(r.Context()))
			return
		}
	case auth.RoleManager:
		if r.URL.Query().Get("mine") == "true" {
			employeeID = h.actorEmployeeID(r, user)
		} else {
			managerID = h.actorEmployeeID(r, user)
		}
		if employeeID == "" && managerID == "" {
			api.Success(w, []evaluation.Evaluation{}, middleware.GetRequestID(r.Context()))
			return
		}
	default:
		employeeID = r.URL.Query().Get("employeeId")
		managerID = r.URL.Query().Get("managerId")
	}

	evals, err := h.Service.List(r.Context(), user.TenantID, employeeID, managerID, r.URL.Query().Get("appraisalId"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "evaluation_list_failed", "failed to list evaluations", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, evals, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	ev, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	if !h.canSee(r, user, ev) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, ev, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	user, ev, ok := h.loadOwned(w, r, ownerEmployee)
	if !ok {
		return
	}
	var payload struct {
		Responses json.RawMessage `json:"responses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.SaveDraft(r.Context(), user.TenantID, ev.ID, payload.Responses); err != nil {
		h.fail(w, r, err, "draft_save_failed", "failed to save draft")
		return
	}
	api.Success(w, map[string]string{"id": ev.ID, "status": ev.Status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitSelf(w http.ResponseWriter, r *http.Request) {
	user, ev, ok := h.loadOwned(w, r, ownerEmployee)
	if !ok {
		return
	}
	var payload struct {
		Responses json.RawMessage `json:"responses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.SubmitSelf(r.Context(), user.TenantID, ev.ID, payload.Responses); err != nil {
		h.fail(w, r, err, "self_submit_failed", "failed to submit self evaluation")
		return
	}
	h.record(r, user, audit.ActionEvaluationUpdated, ev.ID, map[string]string{"transition": evaluation.StatusSelfSubmitted})
	h.notifyEmployee(r, user.TenantID, ev.ManagerID, notifications.TypeSelfSubmitted,
		"Self evaluation submitted", "A team member has submitted their self evaluation.")
	api.Success(w, map[string]string{"id": ev.ID, "status": evaluation.StatusSelfSubmitted}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleManagerReview(w http.ResponseWriter, r *http.Request) {
	user, ev, ok := h.loadOwned(w, r, ownerManager)
	if !ok {
		return
	}
	var payload struct {
		Responses     json.RawMessage `json:"responses"`
		OverallRating int             `json:"overallRating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.SubmitManagerReview(r.Context(), user.TenantID, ev.ID, payload.Responses, payload.OverallRating); err != nil {
		h.fail(w, r, err, "manager_review_failed", "failed to submit manager review")
		return
	}
	h.record(r, user, audit.ActionEvaluationUpdated, ev.ID, map[string]any{"transition": evaluation.StatusManagerReviewed, "overallRating": payload.OverallRating})
	h.notifyEmployee(r, user.TenantID, ev.EmployeeID, notifications.TypeReviewSubmitted,
		"Manager review submitted", "Your manager has completed their review.")
	api.Success(w, map[string]string{"id": ev.ID, "status": evaluation.StatusManagerReviewed}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	user, ev, ok := h.loadOwned(w, r, ownerManager)
	if !ok {
		return
	}
	var payload struct {
		ScheduledAt string `json:"scheduledAt"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	at, okDate := v.Date("scheduledAt", payload.ScheduledAt)
	if v.Reject(w, middleware.GetRequestID(r.Context())) || !okDate {
		return
	}

	if err := h.Service.ScheduleMeeting(r.Context(), user.TenantID, ev.ID, at, payload.Title, payload.Description); err != nil {
		h.fail(w, r, err, "meeting_schedule_failed", "failed to schedule meeting")
		return
	}
	h.record(r, user, audit.ActionEvaluationUpdated, ev.ID, payload)
	h.notifyEmployee(r, user.TenantID, ev.EmployeeID, notifications.TypeMeetingScheduled,
		"Review meeting scheduled", "A one-on-one review meeting has been scheduled.")
	api.Success(w, map[string]string{"id": ev.ID, "status": evaluation.StatusMeetingScheduled}, middleware.GetRequestID(r.Context()))
}

// handleMeetingNotes records the meeting outcome, moving the evaluation to
// meeting_completed. An optional final rating revises the review's overall
// rating. Posting notes again after completion just amends them.
func (h *Handler) handleMeetingNotes(w http.ResponseWriter, r *http.Request) {
	user, ev, ok := h.loadOwned(w, r, ownerManager)
	if !ok {
		return
	}
	var payload struct {
		MeetingNotes string `json:"meetingNotes"`
		FinalRating  *int   `json:"finalRating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("meetingNotes", payload.MeetingNotes, "meeting notes are required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if ev.Status == evaluation.StatusMeetingCompleted {
		if err := h.Service.UpdateMeetingNotes(r.Context(), user.TenantID, ev.ID, payload.MeetingNotes); err != nil {
			h.fail(w, r, err, "meeting_notes_failed", "failed to update meeting notes")
			return
		}
		api.Success(w, map[string]string{"id": ev.ID, "status": evaluation.StatusMeetingCompleted}, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.CompleteMeeting(r.Context(), user.TenantID, ev.ID, payload.MeetingNotes, payload.FinalRating); err != nil {
		h.fail(w, r, err, "meeting_notes_failed", "failed to record meeting outcome")
		return
	}
	h.record(r, user, audit.ActionEvaluationUpdated, ev.ID, map[string]any{"transition": evaluation.StatusMeetingCompleted, "finalRating": payload.FinalRating})
	api.Success(w, map[string]string{"id": ev.ID, "status": evaluation.StatusMeetingCompleted}, middleware.GetRequestID(r.Context()))
}

// handleComplete finalizes the evaluation.
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, ev, ok := h.loadOwned(w, r, ownerManager)
	if !ok {
		return
	}
	if err := h.Service.Finalize(r.Context(), user.TenantID, ev.ID); err != nil {
		h.fail(w, r, err, "finalize_failed", "failed to finalize evaluation")
		return
	}
	h.record(r, user, audit.ActionEvaluationFinal, ev.ID, nil)
	h.notifyEmployee(r, user.TenantID, ev.EmployeeID, notifications.TypeEvaluationFinalized,
		"Evaluation finalized", "Your performance evaluation has been finalized.")
	api.Success(w, map[string]string{"id": ev.ID, "status": evaluation.StatusFinalized}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		CalibratedRating int    `json:"calibratedRating"`
		Remarks          string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	evaluationID := chi.URLParam(r, "evaluationID")
	if err := h.Service.Calibrate(r.Context(), user.TenantID, evaluationID, payload.CalibratedRating, payload.Remarks); err != nil {
		h.fail(w, r, err, "calibrate_failed", "failed to calibrate evaluation")
		return
	}
	h.record(r, user, audit.ActionCalibrated, evaluationID, payload)
	api.Success(w, map[string]string{"id": evaluationID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		EvaluationID string `json:"evaluationId"`
		Message      string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	ev, err := h.Service.Get(r.Context(), user.TenantID, payload.EvaluationID)
	if err != nil {
		h.fail(w, r, err, "reminder_failed", "failed to send reminder")
		return
	}

	body := payload.Message
	if body == "" {
		body = "Your performance evaluation is awaiting action."
	}

	// A reminder has no state change of its own, so a delivery failure is
	// the whole operation failing; it is surfaced instead of logged away.
	userID, err := h.Org.EmployeeUserID(r.Context(), user.TenantID, ev.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "reminder_failed", "failed to send reminder", middleware.GetRequestID(r.Context()))
		return
	}
	if userID == "" {
		api.Fail(w, http.StatusNotFound, "not_found", "employee has no user account", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Notify == nil {
		api.Fail(w, http.StatusBadGateway, "dependency_failure", "reminder could not be delivered", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Notify.Notify(r.Context(), user.TenantID, userID, notifications.TypeReminder, "Evaluation reminder", body); err != nil {
		api.Fail(w, http.StatusBadGateway, "dependency_failure", "reminder could not be delivered", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "reminder_sent"}, middleware.GetRequestID(r.Context()))
}

type ownerKind int

const (
	ownerEmployee ownerKind = iota
	ownerManager
)

// loadOwned loads the evaluation and enforces that the actor is the side
// the operation belongs to. HR passes either check.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request, kind ownerKind) (auth.UserContext, *evaluation.Evaluation, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return user, nil, false
	}
	ev, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return user, nil, false
	}
	if user.RoleName == auth.RoleHR || user.RoleName == auth.RoleSystemAdmin {
		return user, ev, true
	}

	actor := h.actorEmployeeID(r, user)
	owned := false
	switch kind {
	case ownerEmployee:
		owned = actor != "" && actor == ev.EmployeeID
	case ownerManager:
		owned = actor != "" && actor == ev.ManagerID
	}
	if !owned {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return user, nil, false
	}
	return user, ev, true
}

func (h *Handler) canSee(r *http.Request, user auth.UserContext, ev *evaluation.Evaluation) bool {
	if user.RoleName == auth.RoleHR || user.RoleName == auth.RoleSystemAdmin {
		return true
	}
	actor := h.actorEmployeeID(r, user)
	return actor != "" && (actor == ev.EmployeeID || actor == ev.ManagerID)
}

func (h *Handler) actorEmployeeID(r *http.Request, user auth.UserContext) string {
	id, err := h.Org.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("actor employee lookup failed", "userId", user.UserID, "err", err)
		return ""
	}
	return id
}

func (h *Handler) notifyEmployee(r *http.Request, tenantID, employeeID, ntype, title, body string) {
	if h.Notify == nil || employeeID == "" {
		return
	}
	userID, err := h.Org.EmployeeUserID(r.Context(), tenantID, employeeID)
	if err != nil || userID == "" {
		if err != nil {
			slog.Warn("notification user lookup failed", "employeeId", employeeID, "err", err)
		}
		return
	}
	if err := h.Notify.Notify(r.Context(), tenantID, userID, ntype, title, body); err != nil {
		slog.Warn("notification create failed", "type", ntype, "err", err)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, evaluationID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "evaluation", evaluationID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	var verr *evaluation.ValidationError
	switch {
	case errors.As(err, &verr):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "request validation failed", verr.Fields, requestID)
	case errors.Is(err, evaluation.ErrNotFound), errors.Is(err, evaluation.ErrGoalNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "record not found", requestID)
	case errors.Is(err, evaluation.ErrInvalidTransition):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_state_transition", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrGoalNotEligible):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_state_transition", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrConcurrentModification):
		api.Fail(w, http.StatusConflict, "concurrent_modification", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
