package adminhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraise/internal/domain/auth"
	"appraise/internal/platform/metrics"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
)

type Handler struct {
	Metrics *metrics.Collector
	Perms   middleware.PermissionStore
}

func NewHandler(collector *metrics.Collector, perms middleware.PermissionStore) *Handler {
	return &Handler{Metrics: collector, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/admin/metrics", h.handleMetrics)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}
