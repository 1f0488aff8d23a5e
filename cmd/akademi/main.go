package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/akademi-id/akademi/internal/account"
	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/admission"
	"github.com/akademi-id/akademi/internal/app"
	"github.com/akademi-id/akademi/internal/audit"
	audithttp "github.com/akademi-id/akademi/internal/audit/http"
	"github.com/akademi-id/akademi/internal/auth"
	"github.com/akademi-id/akademi/internal/courses"
	"github.com/akademi-id/akademi/internal/dashboard"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/inquiry"
	"github.com/akademi-id/akademi/internal/notices"
	"github.com/akademi-id/akademi/internal/notify"
	"github.com/akademi-id/akademi/internal/observability"
	"github.com/akademi-id/akademi/internal/platform/cache"
	"github.com/akademi-id/akademi/internal/platform/db"
	"github.com/akademi-id/akademi/internal/platform/httpx"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/rbac"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
	"github.com/akademi-id/akademi/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("akademi exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	loc := i18n.New(cfg.AppLang)
	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, "akademi_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine(loc)
	if err != nil {
		return err
	}

	auditStore := audit.NewPGStore(dbpool)
	auditLogger := audit.NewLogger(auditStore, audit.LoggerConfig{
		QueueSize:   cfg.AuditQueueSize,
		Workers:     cfg.AuditWorkers,
		Debug:       cfg.AuditDiagnostics(),
		Diagnostics: logger,
	})

	guardian := guard.New(shared.SessionPrincipals{})
	limiter := ratelimit.New(ratelimit.WithRegisterer(metrics.Registerer()))
	gate := action.NewGate(guardian, limiter, auditLogger, loc, logger)
	rbacMiddleware := rbac.Middleware{Guard: guardian, Logger: logger}

	queue, err := jobs.NewClient(cfg.Redis().Asynq())
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	notifier := notify.New(queue, notify.Config{AdminEmail: cfg.AdminEmail, BaseURL: cfg.AppBaseURL}, loc, logger)
	defer notifier.Wait()

	authService := auth.NewService(auth.NewRepository(dbpool), gate)
	accountService := account.NewService(account.NewRepository(dbpool), gate, notifier, logger)
	courseService := courses.NewService(courses.NewRepository(dbpool), gate, logger)
	noticeService := notices.NewService(notices.NewRepository(dbpool), gate, logger)
	inquiryService := inquiry.NewService(inquiry.NewRepository(dbpool), gate, notifier, logger)
	admissionService := admission.NewService(admission.NewRepository(dbpool), gate, notifier, logger)
	auditService := audit.NewService(auditStore, guardian)

	inspector := asynq.NewInspector(cfg.Redis().Asynq())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBACMiddleware: rbacMiddleware,
		AuthHandler:    auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, loc),
		AccountHandler: account.NewHandler(logger, accountService, templates, csrfManager, loc),
		DashboardHandler: dashboard.NewHandler(logger, dashboard.Deps{
			Applications: admissionService,
			Inbox:        inquiryService,
			Notices:      noticeService,
			Audit:        auditService,
			Catalog:      courseService,
		}, templates, csrfManager),
		CoursesHandler:   courses.NewHandler(logger, courseService, templates, csrfManager, loc),
		NoticesHandler:   notices.NewHandler(logger, noticeService, templates, csrfManager, loc),
		InquiryHandler:   inquiry.NewHandler(logger, inquiryService, templates, csrfManager, loc),
		AdmissionHandler: admission.NewHandler(logger, admissionService, courseService, templates, csrfManager, loc),
		AuditHandler:     audithttp.NewHandler(logger, auditService, templates, csrfManager, loc),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		HealthChecks: map[string]httpx.Check{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	auditLogger.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		// Requests are drained, flush what they audited.
		auditLogger.Close()
		return err
	})
	return g.Wait()
}
