package reportshandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/auth"
	"appraise/internal/domain/org"
	"appraise/internal/domain/reports"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
	Org     *org.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *reports.Service, orgSvc *org.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Org: orgSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/progress", h.handleProgress)
		r.With(middleware.RequirePermission(auth.PermReportsExport, h.Perms)).Get("/progress/export", h.handleExportCSV)
		// Dashboards are self-scoped, so they need only authentication.
		r.Get("/dashboard/employee", h.handleEmployeeDashboard)
		r.Get("/dashboard/manager", h.handleManagerDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard/hr", h.handleHRDashboard)
	})
}

func filterFromQuery(r *http.Request) reports.Filter {
	q := r.URL.Query()
	return reports.Filter{
		GroupID:      q.Get("groupId"),
		Search:       q.Get("search"),
		LocationID:   q.Get("locationId"),
		DepartmentID: q.Get("departmentId"),
		LevelID:      q.Get("levelId"),
		GradeID:      q.Get("gradeId"),
		ManagerID:    q.Get("managerId"),
	}
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter := h.scopeFilter(r, user, filterFromQuery(r))

	rows, progress, err := h.Service.ProgressReport(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build progress report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"rows": rows, "progress": progress}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter := h.scopeFilter(r, user, filterFromQuery(r))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=appraisal-progress-%s.csv", time.Now().UTC().Format("2006-01-02")))
	if err := h.Service.ExportCSV(r.Context(), user.TenantID, filter, w); err != nil {
		slog.Warn("csv export failed", "tenantId", user.TenantID, "err", err)
	}
}

// handleEmployeeDashboard shows the caller their own evaluation counters.
func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	dashboard, err := h.Service.EmployeeDashboard(r.Context(), user.TenantID, h.actorEmployeeID(r, user))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

// handleManagerDashboard shows pending reviews across the caller's reports.
func (h *Handler) handleManagerDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	dashboard, err := h.Service.ManagerDashboard(r.Context(), user.TenantID, h.actorEmployeeID(r, user))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHRDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	dashboard, err := h.Service.HRDashboard(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

// scopeFilter pins managers to their own reports regardless of the query.
func (h *Handler) scopeFilter(r *http.Request, user auth.UserContext, filter reports.Filter) reports.Filter {
	if user.RoleName == auth.RoleManager {
		filter.ManagerID = h.actorEmployeeID(r, user)
	}
	return filter
}

func (h *Handler) actorEmployeeID(r *http.Request, user auth.UserContext) string {
	id, err := h.Org.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("actor employee lookup failed", "userId", user.UserID, "err", err)
		return ""
	}
	return id
}
