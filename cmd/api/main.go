package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/background"
	"github.com/hostall/hostguard/internal/config"
	"github.com/hostall/hostguard/internal/database"
	"github.com/hostall/hostguard/internal/handlers"
	"github.com/hostall/hostguard/internal/metrics"
	middlewareCustom "github.com/hostall/hostguard/internal/middleware"
	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/repositories"
	"github.com/hostall/hostguard/internal/routes"
	"github.com/hostall/hostguard/internal/services"
	pkgauth "github.com/hostall/hostguard/pkg/auth"
	pkghttp "github.com/hostall/hostguard/pkg/http"
	pkglogger "github.com/hostall/hostguard/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Apply pending schema migrations
	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.RunMigrations(migrateCtx, migrationsDir); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	metrics.Init()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db, cfg.Guard.MaxFailedLogins, cfg.Guard.LockoutDuration)
	twoFactorRepo := repositories.NewTwoFactorRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)
	resetTokenRepo := repositories.NewResetTokenRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Security event log with async mirror to the store
	eventService := services.NewSecurityEventService(eventRepo, auditLogger, services.SecurityEventConfig{
		RingSize:   cfg.Guard.EventRingSize,
		QueueSize:  cfg.Guard.MirrorQueueSize,
		Retries:    cfg.Guard.MirrorRetries,
		RetryDelay: cfg.Guard.MirrorRetryDelay,
	}, logger, nil)

	// Rate limiting service
	rateLimitService := services.NewRateLimitService(models.DefaultPolicies(), eventService, logger, nil)

	// Session token manager and registry
	tokenManager := auth.NewSessionTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)
	sessionService := services.NewSessionService(services.SessionConfig{
		MaxAge:     cfg.Guard.MaxSessionAge,
		Inactivity: cfg.Guard.InactivityTimeout,
	}, eventService, logger, nil)

	// TOTP two-factor service
	totpManager, err := auth.NewTOTPManager(cfg.Auth.TOTPEncryptionKey, cfg.Auth.TOTPIssuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}
	twoFactorService := services.NewTwoFactorService(
		twoFactorRepo, totpManager, eventService, logger,
		cfg.Server.Env, cfg.Auth.DevTOTPCode, nil,
	)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Guard.TimingDelayBaseMs,
		RandomDelayMs: cfg.Guard.TimingDelayRandomMs,
	})

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.AlertAddress,
		cfg.Email.ResetURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Escalation sweep over the event log
	escalationService := services.NewEscalationService(
		rateLimitService, eventService, emailService,
		services.EscalationConfig{
			Threshold: cfg.Guard.EscalationThreshold,
			Window:    cfg.Guard.EscalationWindow,
			Duration:  cfg.Guard.EscalationDuration,
		}, logger, nil,
	)

	// Login guard and reset flow
	loginService := services.NewLoginService(
		accountRepo, rateLimitService, sessionService, eventService,
		twoFactorService, tokenManager, timingDelay, logger,
	)
	resetService := services.NewPasswordResetService(
		resetTokenRepo, accountRepo, rateLimitService, eventService,
		emailService, cfg.Email.TokenExpiry, logger,
	)

	// Background monitor
	monitor := background.NewMonitor(
		escalationService, sessionService, rateLimitService, resetTokenRepo,
		background.MonitorConfig{
			SweepInterval:          cfg.Guard.SweepInterval,
			SessionCheckInterval:   cfg.Guard.SessionCheckInterval,
			AttemptCleanupInterval: cfg.Guard.AttemptCleanupInterval,
		}, logger,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(loginService, ipConfig)
	twoFactorHandler := handlers.NewTwoFactorHandler(twoFactorService)
	resetHandler := handlers.NewPasswordResetHandler(resetService, ipConfig)
	dashboardHandler := handlers.NewDashboardHandler(
		eventService, rateLimitService, escalationService, sessionService,
		cfg.Guard.EscalationWindow,
	)

	// Bootstrap first admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(ctx, db, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(metrics.Instrument)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, twoFactorHandler, resetHandler, dashboardHandler, tokenManager, sessionService)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	router.Handle("/metrics", metrics.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background workers
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	eventService.Start(backgroundCtx)
	go monitor.Start(backgroundCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	monitor.Stop()
	eventService.Stop()
	backgroundCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set.
func ensureAdminAccount(ctx context.Context, db *database.DB, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, adminEmail).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}
	if exists {
		logger.Info("admin account already exists")
		return nil
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO accounts (email, name, password_hash, role) VALUES ($1, $2, $3, $4)`,
		adminEmail, "Admin", hashedPassword, "admin")
	if err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
