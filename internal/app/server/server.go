package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraise/internal/domain/appraisal"
	"appraise/internal/domain/audit"
	"appraise/internal/domain/auth"
	"appraise/internal/domain/evaluation"
	"appraise/internal/domain/notifications"
	"appraise/internal/domain/org"
	"appraise/internal/domain/questionnaire"
	"appraise/internal/domain/reports"
	"appraise/internal/platform/config"
	"appraise/internal/platform/db"
	"appraise/internal/platform/email"
	"appraise/internal/platform/jobs"
	"appraise/internal/platform/metrics"
	adminhandler "appraise/internal/transport/http/handlers/admin"
	appraisalhandler "appraise/internal/transport/http/handlers/appraisal"
	audithandler "appraise/internal/transport/http/handlers/audit"
	authhandler "appraise/internal/transport/http/handlers/auth"
	evaluationhandler "appraise/internal/transport/http/handlers/evaluation"
	notificationshandler "appraise/internal/transport/http/handlers/notifications"
	orghandler "appraise/internal/transport/http/handlers/org"
	questionnairehandler "appraise/internal/transport/http/handlers/questionnaire"
	reportshandler "appraise/internal/transport/http/handlers/reports"
	"appraise/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	Pool   *pgxpool.Pool
	Router http.Handler
	Jobs   *jobs.Service

	cancel context.CancelFunc
}

// New connects, migrates, seeds and wires the whole service. The scheduled
// task sweeper is constructed but not started; call StartJobs for that.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	authStore := auth.NewStore(pool)
	authService := auth.NewService(authStore)
	orgService := org.NewService(org.NewStore(pool))
	questionnaireService := questionnaire.NewService(questionnaire.NewStore(pool))
	appraisalService := appraisal.NewService(appraisal.NewStore(pool), questionnaireService)
	evaluationService := evaluation.NewService(evaluation.NewStore(pool), questionnaireService)
	reportsService := reports.NewService(reports.NewStore(pool))
	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notifyService.DefaultFrom = cfg.EmailFrom
	auditService := audit.New(pool)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	jobService := jobs.New(appraisalService, auditService, collector, cfg)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authService, cfg.JWTSecret)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/request-reset", authHandler.HandleRequestReset)
		r.Post("/auth/reset", authHandler.HandleResetPassword)

		orghandler.NewHandler(orgService, authStore, auditService).RegisterRoutes(r)
		questionnairehandler.NewHandler(questionnaireService, authStore, auditService).RegisterRoutes(r)
		appraisalhandler.NewHandler(appraisalService, reportsService, jobService, authStore, auditService).RegisterRoutes(r)
		evaluationhandler.NewHandler(evaluationService, orgService, notifyService, authStore, auditService).RegisterRoutes(r)
		reportshandler.NewHandler(reportsService, orgService, authStore).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authStore).RegisterRoutes(r)
		if collector != nil {
			adminhandler.NewHandler(collector, authStore).RegisterRoutes(r)
		}
	})

	return &App{Config: cfg, Pool: pool, Router: router, Jobs: jobService}, nil
}

func (a *App) StartJobs(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Jobs.Start(ctx)
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.Pool.Close()
}

func Run() {
	cfg := config.Load()

	app, err := New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	app.StartJobs(context.Background())

	log.Printf("appraise server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
