package evaluationhandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/evaluation"
	"appraise/internal/domain/notifications"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

func (h *Handler) registerGoalRoutes(r chi.Router) {
	r.Route("/development-goals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/", h.handleListGoals)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}", h.handleGetGoal)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/", h.handleCreateGoal)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Put("/{goalID}/progress", h.handleGoalProgress)
	})
}

func (h *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, managerID := "", ""
	switch user.RoleName {
	case auth.RoleEmployee:
		employeeID = h.actorEmployeeID(r, user)
		if employeeID == "" {
			api.Success(w, []evaluation.DevelopmentGoal{}, middleware.GetRequestID(r.Context()))
			return
		}
	case auth.RoleManager:
		managerID = h.actorEmployeeID(r, user)
		if managerID == "" {
			api.Success(w, []evaluation.DevelopmentGoal{}, middleware.GetRequestID(r.Context()))
			return
		}
	default:
		employeeID = r.URL.Query().Get("employeeId")
		managerID = r.URL.Query().Get("managerId")
	}

	goals, err := h.Service.ListGoals(r.Context(), user.TenantID, employeeID, managerID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "goal_list_failed", "failed to list development goals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, goals, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	goal, err := h.Service.GetGoal(r.Context(), user.TenantID, chi.URLParam(r, "goalID"))
	if err != nil {
		h.fail(w, r, err, "goal_get_failed", "failed to load development goal")
		return
	}
	if user.RoleName == auth.RoleEmployee || user.RoleName == auth.RoleManager {
		actor := h.actorEmployeeID(r, user)
		if actor == "" || (actor != goal.EmployeeID && actor != goal.ManagerID) {
			api.Fail(w, http.StatusForbidden, "forbidden", "not your development goal", middleware.GetRequestID(r.Context()))
			return
		}
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		EvaluationID string `json:"evaluationId"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		TargetDate   string `json:"targetDate"`
		Progress     int    `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("evaluationId", payload.EvaluationID, "evaluationId is required")
	v.Required("title", payload.Title, "title is required")
	goal := evaluation.DevelopmentGoal{
		EvaluationID: payload.EvaluationID,
		Title:        payload.Title,
		Description:  payload.Description,
		Progress:     payload.Progress,
	}
	if payload.TargetDate != "" {
		if at, okDate := v.Date("targetDate", payload.TargetDate); okDate {
			goal.TargetDate = &at
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	// Goal authorship is tied to the evaluation, so reuse its ownership rule:
	// the employee or their manager may add goals, HR always can.
	ev, err := h.Service.Get(r.Context(), user.TenantID, payload.EvaluationID)
	if err != nil {
		h.fail(w, r, err, "goal_create_failed", "failed to create development goal")
		return
	}
	if !h.canSee(r, user, ev) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateGoal(r.Context(), user.TenantID, goal)
	if err != nil {
		h.fail(w, r, err, "goal_create_failed", "failed to create development goal")
		return
	}
	h.record(r, user, audit.ActionEvaluationUpdated, payload.EvaluationID, map[string]string{"goalId": id, "title": payload.Title})
	h.notifyEmployee(r, user.TenantID, ev.EmployeeID, notifications.TypeGoalCreated,
		"Development goal created", "A development goal has been added to your evaluation.")
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		Progress int `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	goalID := chi.URLParam(r, "goalID")

	if user.RoleName == auth.RoleEmployee || user.RoleName == auth.RoleManager {
		goal, err := h.Service.GetGoal(r.Context(), user.TenantID, goalID)
		if err != nil {
			h.fail(w, r, err, "goal_progress_failed", "failed to update goal progress")
			return
		}
		actor := h.actorEmployeeID(r, user)
		if actor == "" || (actor != goal.EmployeeID && actor != goal.ManagerID) {
			api.Fail(w, http.StatusForbidden, "forbidden", "not your development goal", middleware.GetRequestID(r.Context()))
			return
		}
	}

	goal, err := h.Service.UpdateGoalProgress(r.Context(), user.TenantID, goalID, payload.Progress)
	if err != nil {
		h.fail(w, r, err, "goal_progress_failed", "failed to update goal progress")
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}
