package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DamionHane/FHEReporting/internal/auth"
	"github.com/DamionHane/FHEReporting/internal/config"
	"github.com/DamionHane/FHEReporting/internal/database"
	"github.com/DamionHane/FHEReporting/internal/handlers"
	"github.com/DamionHane/FHEReporting/internal/logger"
	"github.com/DamionHane/FHEReporting/internal/middleware"
	"github.com/DamionHane/FHEReporting/internal/oracle"
	"github.com/DamionHane/FHEReporting/internal/repository"
	"github.com/DamionHane/FHEReporting/internal/repository/memory"
	"github.com/DamionHane/FHEReporting/internal/scheduler"
	"github.com/DamionHane/FHEReporting/internal/sealing"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(cfg.Log.Level, "api")

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"store_driver", cfg.Store.Driver,
		"log_level", cfg.Log.Level,
	)

	// Wire the persistence backend
	var (
		reportStore        workflow.ReportStore
		investigationStore workflow.InvestigationStore
		requestStore       workflow.RequestStore
		rosterStore        workflow.RosterStore
		auditStore         workflow.AuditStore
		sealedStore        sealing.Store
		healthCheck        func() error
	)

	if cfg.Store.Driver == "postgres" {
		db, err := database.New(&cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func(db *database.Database) {
			if err := db.Close(); err != nil {
				slog.Error("Failed to close database connection", "error", err)
			}
		}(db)

		slog.Info("Database connection established")

		migrator := database.NewMigrationExecutor(db.DB)
		if err := migrator.RunMigrations("./migrations"); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("Database migrations completed")

		reportStore = repository.NewReportRepository(db.DB)
		investigationStore = repository.NewInvestigationRepository(db.DB)
		requestStore = repository.NewRequestRepository(db.DB)
		rosterStore = repository.NewRosterRepository(db.DB)
		auditStore = repository.NewAuditRepository(db.DB)
		sealedStore = repository.NewSealedRepository(db.DB)
		healthCheck = db.HealthCheck
	} else {
		store := memory.NewStore()
		reportStore = store
		investigationStore = store
		requestStore = store
		rosterStore = store
		auditStore = store
		sealedStore = store
		healthCheck = func() error { return nil }
	}

	// Sealed-value keeper
	sealingKey, err := sealing.KeyFromEnv(cfg.Sealing.Key, cfg.Sealing.Secret)
	if err != nil {
		slog.Error("Failed to load sealing key", "error", err)
		os.Exit(1)
	}
	keeper, err := sealing.NewKeeper(sealingKey, sealedStore)
	if err != nil {
		slog.Error("Failed to initialize sealing keeper", "error", err)
		os.Exit(1)
	}

	// Oracle proof verifier. The public key can be given directly or derived
	// from the signing seed when both sides run from one deployment.
	publicKey := cfg.Oracle.SignerPublicKey
	if publicKey == "" && cfg.Oracle.SignerSeed != "" {
		signer, err := oracle.NewSigner(cfg.Oracle.SignerSeed)
		if err != nil {
			slog.Error("Failed to load oracle signing seed", "error", err)
			os.Exit(1)
		}
		publicKey = signer.PublicKeyHex()
	}
	verifier, err := oracle.NewEd25519Verifier(publicKey)
	if err != nil {
		slog.Error("Failed to initialize proof verifier", "error", err)
		os.Exit(1)
	}

	// Oracle dispatcher
	amqpConn, dispatcher, err := oracle.Connect(cfg.Oracle.AMQPURI, cfg.Oracle.Queue)
	if err != nil {
		slog.Error("Failed to connect to oracle broker", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	slog.Info("Oracle broker connection established", "queue", cfg.Oracle.Queue)

	// Workflow service
	svc := workflow.NewService(
		reportStore,
		investigationStore,
		requestStore,
		rosterStore,
		auditStore,
		keeper,
		dispatcher,
		verifier,
		workflow.SystemClock{},
		workflow.Config{
			InvestigationWindow:  cfg.Workflow.InvestigationWindow,
			DecryptionWindow:     cfg.Workflow.DecryptionWindow,
			AutoResolveThreshold: cfg.Workflow.AutoResolveThreshold,
			NotesCostUnit:        cfg.Workflow.NotesCostUnit,
		},
	)

	// Bootstrap the authority on first start
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	current, err := rosterStore.Authority(ctx)
	if err != nil {
		cancel()
		slog.Error("Failed to read authority", "error", err)
		os.Exit(1)
	}
	if current == "" {
		if err := rosterStore.SetAuthority(ctx, cfg.Workflow.Authority); err != nil {
			cancel()
			slog.Error("Failed to bootstrap authority", "error", err)
			os.Exit(1)
		}
		slog.Info("Authority bootstrapped", "address", cfg.Workflow.Authority)
	}
	cancel()

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(svc, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authService := auth.NewService(&cfg.JWT)
	authMw := middleware.NewAuthMiddleware(authService)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	defer rateLimiter.Close()

	// Initialize handlers
	reportHandler := handlers.NewReportHandler(svc)
	rosterHandler := handlers.NewRosterHandler(svc)
	oracleHandler := handlers.NewOracleHandler(svc)
	auditHandler := handlers.NewAuditHandler(svc)

	// Setup router
	mux := http.NewServeMux()

	// Public read routes
	mux.HandleFunc("GET /api/v1/reports/{id}", reportHandler.Get)
	mux.HandleFunc("GET /api/v1/reports/{id}/decryption", reportHandler.GetDecryptionStatus)
	mux.HandleFunc("GET /api/v1/reports/{id}/refund", reportHandler.GetRefundAvailability)
	mux.HandleFunc("GET /api/v1/stats", reportHandler.GetStats)
	mux.HandleFunc("GET /api/v1/roster/investigators/{address}", rosterHandler.CheckInvestigator)

	// Oracle callback is gated by proof verification, not by a bearer token
	mux.HandleFunc("POST /api/v1/oracle/callback", oracleHandler.Callback)

	// Refund claims are open to any caller; the deadline preconditions
	// inside the service gate the effect
	mux.HandleFunc("POST /api/v1/reports/{id}/refund/decryption", reportHandler.ClaimDecryptionRefund)
	mux.HandleFunc("POST /api/v1/reports/{id}/refund/investigation", reportHandler.ClaimInvestigationRefund)

	// Authenticated routes
	mux.Handle("POST /api/v1/reports",
		authMw.Authenticate(http.HandlerFunc(reportHandler.Submit)))
	mux.Handle("POST /api/v1/reports/{id}/assign",
		authMw.Authenticate(http.HandlerFunc(reportHandler.Assign)))
	mux.Handle("GET /api/v1/reports/{id}/investigation",
		authMw.Authenticate(http.HandlerFunc(reportHandler.GetInvestigation)))
	mux.Handle("POST /api/v1/reports/{id}/notes",
		authMw.Authenticate(http.HandlerFunc(reportHandler.AddNotes)))
	mux.Handle("PUT /api/v1/reports/{id}/status",
		authMw.Authenticate(http.HandlerFunc(reportHandler.UpdateStatus)))
	mux.Handle("POST /api/v1/reports/{id}/decryption",
		authMw.Authenticate(http.HandlerFunc(reportHandler.RequestDecryption)))
	mux.Handle("GET /api/v1/investigators/me/reports",
		authMw.Authenticate(http.HandlerFunc(reportHandler.GetMyReports)))

	// Roster administration
	mux.Handle("POST /api/v1/roster/investigators",
		authMw.Authenticate(http.HandlerFunc(rosterHandler.AddInvestigator)))
	mux.Handle("DELETE /api/v1/roster/investigators/{address}",
		authMw.Authenticate(http.HandlerFunc(rosterHandler.RemoveInvestigator)))
	mux.Handle("POST /api/v1/roster/authority",
		authMw.Authenticate(http.HandlerFunc(rosterHandler.TransferAuthority)))

	// Audit log
	mux.Handle("GET /api/v1/audit-logs",
		authMw.Authenticate(http.HandlerFunc(auditHandler.ListAuditLogs)))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := healthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`)); err != nil {
				slog.Error("Failed to write health check response", "error", err)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`)); err != nil {
			slog.Error("Failed to write health check response", "error", err)
		}
	})

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
