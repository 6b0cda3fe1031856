package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vetscribe/vetscribe/internal/config"
	"github.com/vetscribe/vetscribe/internal/domain/audit"
	"github.com/vetscribe/vetscribe/internal/domain/capture"
	"github.com/vetscribe/vetscribe/internal/domain/consult"
	"github.com/vetscribe/vetscribe/internal/domain/patient"
	"github.com/vetscribe/vetscribe/internal/domain/report"
	"github.com/vetscribe/vetscribe/internal/domain/session"
	"github.com/vetscribe/vetscribe/internal/platform/ai"
	"github.com/vetscribe/vetscribe/internal/platform/auth"
	"github.com/vetscribe/vetscribe/internal/platform/db"
	"github.com/vetscribe/vetscribe/internal/platform/middleware"
)

// AuditorAdapter adapts the audit service to the consult.Auditor
// interface, avoiding a dependency from the consult package on audit.
type AuditorAdapter struct {
	svc *audit.Service
}

func NewAuditorAdapter(svc *audit.Service) *AuditorAdapter {
	return &AuditorAdapter{svc: svc}
}

// FinalizeCleanup fans post-finalize cleanup out to the session draft
// store and the report editor cache. Dropping the editor cancels any
// autosave still pending, so a debounced write scheduled before
// finalization cannot land on the finalized report.
type FinalizeCleanup struct {
	drafts  *session.Store
	editors *report.Manager
}

// Clear implements consult.DraftPurger.
func (f *FinalizeCleanup) Clear(consultID uuid.UUID) {
	f.drafts.Clear(consultID)
	if f.editors != nil {
		f.editors.Discard(consultID)
	}
}

// ReportFinalized implements consult.Auditor.
func (a *AuditorAdapter) ReportFinalized(ctx context.Context, c *consult.Consult) {
	keys := make([]string, 0, len(c.Sections))
	for k := range c.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	event := &audit.Event{
		ConsultID:   c.ID,
		PatientID:   c.PatientID,
		ReportType:  c.ReportType,
		SectionKeys: keys,
		FinalizedAt: c.FinalizedAt,
	}
	if c.InputMode != nil {
		event.InputMode = *c.InputMode
	}
	a.svc.LogReportGenerated(ctx, event)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "vetscribe-server",
		Short: "VetScribe clinical documentation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the VetScribe API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(cfg.AuthSecret))
	}

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.RequireClinician())

	// AI collaborator client
	geminiClient := ai.NewClient(cfg.AIBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)

	// Session draft store
	drafts := session.NewStore(0)
	sessionHandler := session.NewHandler(drafts)
	sessionHandler.RegisterRoutes(apiV1)

	// Audit domain
	auditRepo := audit.NewRepo(pool)
	auditSvc := audit.NewService(auditRepo, logger)
	auditCtx, auditCancel := context.WithCancel(ctx)
	defer auditCancel()
	go auditSvc.Start(auditCtx)

	// Patient domain
	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Consult domain. The editor manager is attached to the cleanup once
	// the report domain is built below.
	cleanup := &FinalizeCleanup{drafts: drafts}
	consultRepo := consult.NewRepo(pool)
	consultSvc := consult.NewService(consultRepo, NewAuditorAdapter(auditSvc), cleanup, logger)
	consultHandler := consult.NewHandler(consultSvc)
	consultHandler.RegisterRoutes(apiV1)

	// Capture domain
	captureSvc := capture.NewService(geminiClient, geminiClient, consultSvc, patientSvc, logger)
	captureHandler := capture.NewHandler(captureSvc)
	captureHandler.RegisterRoutes(apiV1)

	// Report domain
	generator := report.NewGenerator(geminiClient, consultSvc, cfg.EnabledSections(), logger)
	editorManager := report.NewManager(generator, geminiClient, consultSvc, logger)
	cleanup.editors = editorManager
	reportHandler := report.NewHandler(editorManager, consultSvc, patientSvc)
	reportHandler.RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
