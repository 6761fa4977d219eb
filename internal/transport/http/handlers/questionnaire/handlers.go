package questionnairehandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/questionnaire"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
	"appraise/internal/transport/http/shared"
)

type Handler struct {
	Service *questionnaire.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *questionnaire.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/questionnaire-templates", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermTemplatesRead, h.Perms)).Get("/", h.handleListTemplates)
		r.With(middleware.RequirePermission(auth.PermTemplatesRead, h.Perms)).Get("/{templateID}", h.handleGetTemplate)
		r.With(middleware.RequirePermission(auth.PermTemplatesWrite, h.Perms)).Post("/", h.handleCreateTemplate)
	})
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	templates, err := h.Service.ListTemplates(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "template_list_failed", "failed to list templates", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, templates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	tmpl, err := h.Service.GetTemplate(r.Context(), user.TenantID, chi.URLParam(r, "templateID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "template not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, tmpl, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload questionnaire.Template
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if !questionnaire.ValidTargetRole(payload.TargetRole) {
		v.Add("targetRole", "target role must be employee or manager")
	}
	for _, problem := range questionnaire.ValidateQuestions(payload.Questions) {
		v.Add("questions", problem)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateTemplate(r.Context(), user.TenantID, payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "template_create_failed", "failed to create template", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "questionnaire.template.create", "questionnaire_template", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
			slog.Warn("audit questionnaire.template.create failed", "err", err)
		}
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}
