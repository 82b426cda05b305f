package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/exermed/exermed/internal/config"
	"github.com/exermed/exermed/internal/domain/generation"
	"github.com/exermed/exermed/internal/domain/scenario"
	"github.com/exermed/exermed/internal/platform/auth"
	"github.com/exermed/exermed/internal/platform/db"
	"github.com/exermed/exermed/internal/platform/demographics"
	"github.com/exermed/exermed/internal/platform/export"
	"github.com/exermed/exermed/internal/platform/fhir"
	"github.com/exermed/exermed/internal/platform/middleware"
	"github.com/exermed/exermed/internal/platform/terminology"
	"github.com/exermed/exermed/internal/sim"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "exermed-server",
		Short: "Synthetic military-medical patient generator",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateCmd())

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

// generateCmd runs a one-shot cohort generation straight to a file, without
// the API server or a database. Useful for exercise planners preparing
// datasets offline.
func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a patient cohort to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			seed, _ := cmd.Flags().GetInt64("seed")
			out, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")
			gzipOut, _ := cmd.Flags().GetBool("gzip")
			scenarioFile, _ := cmd.Flags().GetString("scenario")
			workers, _ := cmd.Flags().GetInt("workers")

			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			raw := sim.DefaultScenario()
			if scenarioFile != "" {
				data, err := os.ReadFile(scenarioFile)
				if err != nil {
					return fmt.Errorf("read scenario file: %w", err)
				}
				if err := json.Unmarshal(data, &raw); err != nil {
					return fmt.Errorf("parse scenario file: %w", err)
				}
			}

			resolved, err := sim.Resolve(raw)
			if err != nil {
				return fmt.Errorf("invalid scenario: %w", err)
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			simulator := sim.New(resolved,
				sim.WithWorkers(workers),
				sim.WithDemographics(demographics.NewProvider()),
				sim.WithConditions(terminology.NewProvider()),
				sim.WithLogger(logger),
				sim.WithProgress(func(processed, total int) {
					logger.Info().Int("processed", processed).Int("total", total).Msg("generating")
				}, 500),
			)

			records, err := simulator.Run(cmd.Context(), count, seed)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			exporter, err := export.New(export.Options{
				Format: export.Format(format),
				Gzip:   gzipOut,
			})
			if err != nil {
				return err
			}

			bundle := fhir.NewConverter(time.Now().UTC()).NewBundle(records)

			name := exporter.FileName(out)
			f, err := os.Create(name)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()

			if err := exporter.Export(f, bundle); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			fmt.Printf("Generated %d patient(s) with seed %d -> %s\n", len(records), seed, name)
			return nil
		},
	}

	cmd.Flags().Int("count", 100, "Number of patients to generate")
	cmd.Flags().Int64("seed", 0, "RNG seed (0 = derive from clock)")
	cmd.Flags().String("out", "cohort", "Output file base name")
	cmd.Flags().String("format", "json", "Output format: json or xml")
	cmd.Flags().Bool("gzip", false, "Gzip the output")
	cmd.Flags().String("scenario", "", "Path to a scenario config JSON file")
	cmd.Flags().Int("workers", 4, "Parallel simulation workers")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
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
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth mode: all requests run as admin")
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// API group with rate limiting
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
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Scenario templates
	scenarioRepo := scenario.NewRepoPG(pool)
	scenarioSvc := scenario.NewService(scenarioRepo, logger)
	if err := scenarioSvc.EnsureDefault(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed default scenario")
	}
	scenarioHandler := scenario.NewHandler(scenarioSvc)
	scenarioHandler.RegisterRoutes(apiV1)

	// Generation jobs. Redis-backed store when REDIS_URL is set so jobs
	// survive restarts and are shared across instances.
	var jobStore generation.JobStore
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		jobStore = generation.NewRedisStore(rdb, cfg.JobTTL)
		logger.Info().Msg("using redis job store")
	} else {
		jobStore = generation.NewMemoryStore()
		logger.Info().Msg("using in-memory job store")
	}

	exportKey, err := cfg.ExportKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid EXPORT_ENCRYPTION_KEY")
	}

	genSvc := generation.NewService(jobStore, scenarioSvc,
		generation.WithWorkers(cfg.SimWorkers),
		generation.WithExportKey(exportKey),
		generation.WithLogger(logger),
	)
	genHandler := generation.NewHandler(genSvc)
	genHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	genSvc.Shutdown()
	logger.Info().Msg("server stopped")
	return nil
}
