package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/accrual"
	"leavehub/internal/domain/attendance"
	"leavehub/internal/domain/audit"
	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/calendar"
	"leavehub/internal/domain/delegation"
	"leavehub/internal/domain/directory"
	"leavehub/internal/domain/entitlement"
	"leavehub/internal/domain/notifications"
	"leavehub/internal/domain/payroll"
	"leavehub/internal/domain/policy"
	"leavehub/internal/domain/request"
	"leavehub/internal/platform/config"
	"leavehub/internal/platform/db"
	"leavehub/internal/platform/jobs"
	"leavehub/internal/platform/metrics"
	audithandler "leavehub/internal/transport/http/handlers/audit"
	authhandler "leavehub/internal/transport/http/handlers/auth"
	calendarhandler "leavehub/internal/transport/http/handlers/calendar"
	delegationhandler "leavehub/internal/transport/http/handlers/delegation"
	entitlementhandler "leavehub/internal/transport/http/handlers/entitlement"
	leavehandler "leavehub/internal/transport/http/handlers/leave"
	notificationshandler "leavehub/internal/transport/http/handlers/notifications"
	policyhandler "leavehub/internal/transport/http/handlers/policy"
	reportshandler "leavehub/internal/transport/http/handlers/reports"
	"leavehub/internal/transport/http/api"
	"leavehub/internal/transport/http/middleware"
)

// App bundles everything a test or the main binary needs to drive the
// service.
type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// New connects, migrates, seeds and wires the full application.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	collector := metrics.New()

	dirStore := directory.NewStore(pool)
	policyStore := policy.NewStore(pool)
	policyService := policy.NewService(policyStore)
	requestStore := request.NewStore(pool)

	calendarStore := calendar.NewStore(pool)
	holidaySource := calendar.NewHolidayTableSource(pool)
	engine := calendar.NewEngine(calendarStore, holidaySource)

	calculator := accrual.NewCalculator(policyStore, dirStore, requestStore)
	ledger := entitlement.NewLedger(entitlement.NewStore(pool), policyStore, dirStore, calculator, requestStore)

	delegationService := delegation.NewService(delegation.NewStore(pool), dirStore)
	notifyService := notifications.New(notifications.NewStore(pool), nil)
	attendanceService := attendance.New(pool)
	deductions := payroll.NewDeductions(pool)

	requestService := request.NewService(
		requestStore, policyStore, engine, dirStore, delegationService,
		ledger, request.NewAttachmentStore(pool), notifyService, attendanceService, deductions,
	)
	requestService.GraceDays = cfg.RetroactiveGraceDays

	jobsService := jobs.New(pool, cfg, requestService, delegationService, collector)

	authStore := auth.NewStore(pool)
	auditService := audit.New(pool)
	attachmentStore := request.NewAttachmentStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Auth(cfg.JWTSecret))
	if cfg.RateLimitPerMinute > 0 {
		router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	}

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
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authStore, cfg.JWTSecret).RegisterRoutes(r)
		policyhandler.NewHandler(policyService, calculator, dirStore, authStore, auditService).RegisterRoutes(r)
		calendarhandler.NewHandler(engine, authStore).RegisterRoutes(r)
		entitlementhandler.NewHandler(ledger, authStore, auditService).RegisterRoutes(r)
		delegationhandler.NewHandler(delegationService, authStore).RegisterRoutes(r)
		leavehandler.NewHandler(requestService, attachmentStore, authStore, auditService, jobsService, collector).RegisterRoutes(r)
		reportshandler.NewHandler(requestService, ledger, policyService, dirStore, authStore).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authStore).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Jobs:    jobsService,
		Metrics: collector,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run is the main-binary entrypoint: build the app, start background jobs
// and serve until the process exits.
func Run() {
	cfg := config.Load()

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	app.Jobs.Start(ctx)

	slog.Info("leavehub server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
