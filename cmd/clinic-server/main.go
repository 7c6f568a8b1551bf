package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maternacare/maternacare/internal/config"
	"github.com/maternacare/maternacare/internal/domain/admission"
	"github.com/maternacare/maternacare/internal/domain/billing"
	"github.com/maternacare/maternacare/internal/domain/catalog"
	"github.com/maternacare/maternacare/internal/domain/patient"
	"github.com/maternacare/maternacare/internal/platform/auth"
	"github.com/maternacare/maternacare/internal/platform/db"
	"github.com/maternacare/maternacare/internal/platform/jobs"
	"github.com/maternacare/maternacare/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Maternity clinic billing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(accrualCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

func accrualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accrual",
		Short: "Room accrual maintenance",
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile room charges for every admitted patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, pool, logger, err := buildBillingService()
			if err != nil {
				return err
			}
			defer pool.Close()

			processed, skipped, err := svc.SweepAdmitted(context.Background())
			if err != nil {
				return err
			}
			logger.Info().Int("processed", processed).Int("skipped", skipped).Msg("accrual sweep finished")
			return nil
		},
	}
	cmd.AddCommand(sweepCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reconcile room charges for all admissions on record, including discharged stays",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, pool, logger, err := buildBillingService()
			if err != nil {
				return err
			}
			defer pool.Close()

			processed, skipped, err := svc.BackfillAccruals(context.Background())
			if err != nil {
				return err
			}
			logger.Info().Int("processed", processed).Int("skipped", skipped).Msg("accrual backfill finished")
			return nil
		},
	}
	cmd.AddCommand(backfillCmd)

	return cmd
}

// buildBillingService wires the billing service and its dependencies for
// one-shot CLI commands. The caller owns the returned pool.
func buildBillingService() (*billing.Service, *pgxpool.Pool, zerolog.Logger, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, logger, err
	}

	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, logger, err
	}

	admSvc := admission.NewService(admission.NewRepo(pool))
	catSvc := catalog.NewService(catalog.NewRepo(pool))

	billingSvc := billing.NewService(
		billing.NewRepo(pool),
		func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		admSvc,
		catSvc,
		billing.Config{
			Currency: cfg.Currency,
			TaxRate:  cfg.TaxRate,
			DueDays:  cfg.BillDueDays,
		},
		logger,
	)
	return billingSvc, pool, logger, nil
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware([]byte(cfg.JWTSecret)))
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// -- Register domain handlers --

	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	admRepo := admission.NewRepo(pool)
	admSvc := admission.NewService(admRepo)
	admission.NewHandler(admSvc).RegisterRoutes(apiV1)

	catRepo := catalog.NewRepo(pool)
	catSvc := catalog.NewService(catRepo)
	catalog.NewHandler(catSvc).RegisterRoutes(apiV1)

	billingRepo := billing.NewRepo(pool)
	billingSvc := billing.NewService(
		billingRepo,
		func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		admSvc,
		catSvc,
		billing.Config{
			Currency: cfg.Currency,
			TaxRate:  cfg.TaxRate,
			DueDays:  cfg.BillDueDays,
		},
		logger,
	)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	// Nightly room accrual sweep
	runner, err := jobs.NewAccrualRunner(cfg.AccrualCron, billingSvc, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.AccrualCron).Msg("invalid accrual cron spec")
	}
	runner.Start()
	defer runner.Stop()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
