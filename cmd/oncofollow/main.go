package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/oncofollow/oncofollow/internal/classify"
	"github.com/oncofollow/oncofollow/internal/config"
	"github.com/oncofollow/oncofollow/internal/domain/followup"
	"github.com/oncofollow/oncofollow/internal/ingest"
	"github.com/oncofollow/oncofollow/internal/platform/db"
	"github.com/oncofollow/oncofollow/internal/platform/lock"
	"github.com/oncofollow/oncofollow/internal/platform/middleware"
	"github.com/oncofollow/oncofollow/migrations"
)

const importsRoute = "/api/v1/imports"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "oncofollow",
		Short:        "Oncology follow-up ingestion and classification",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(auditCmd())
	return rootCmd
}

// newLogger writes JSON, or colored console output in development.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, db.PoolOptions{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Schema:   cfg.DBSchema,
	})
}

// newLocker returns a redis-backed import lock when REDIS_URL is set and a
// process-local one otherwise. The returned client is nil in the latter case.
func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return lock.NewLocalLocker(), nil, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, cfg.ImportLockTTL), client, nil
}

func ingestOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		ClassifyAfterImport: cfg.ClassifyAfterImport,
		ClassifyMode:        classify.Mode(cfg.ClassifyMode),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	locker, redisClient, err := newLocker(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to redis")
		return err
	}
	checks := []db.Check{db.PoolCheck(pool)}
	if redisClient != nil {
		defer redisClient.Close()
		checks = append(checks, db.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		logger.Info().Msg("using redis import lock")
	}

	store := followup.NewTxRunnerPG(pool)
	engine := classify.NewEngine(store, classify.DefaultTaxonomy(), logger)
	importer := ingest.NewService(store, locker, engine, ingestOptions(cfg), logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M", cfg.UploadLimit, importsRoute))

	e.GET("/health", db.HealthHandler(pool, checks...))

	apiV1 := e.Group("/api/v1")
	ingest.NewHandler(importer).RegisterRoutes(apiV1)
	classify.NewHandler(engine).RegisterRoutes(apiV1)
	followup.NewHandler(store).RegisterRoutes(apiV1)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS, cfg.DBSchema)
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", cfg.DBSchema)

			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS, cfg.DBSchema).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migration status for schema: %s\n", cfg.DBSchema)
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a follow-up spreadsheet or delimited export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var store followup.TxRunner
			var locker lock.Locker = lock.NewLocalLocker()
			if dryRun {
				store = followup.NewMemoryStore()
			} else {
				pool, err := openPool(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
				store = followup.NewTxRunnerPG(pool)

				var client *redis.Client
				locker, client, err = newLocker(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				if client != nil {
					defer client.Close()
				}
			}

			engine := classify.NewEngine(store, classify.DefaultTaxonomy(), logger)
			svc := ingest.NewService(store, locker, engine, ingestOptions(cfg), logger)
			sum, err := svc.Import(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().Bool("dry-run", false, "Parse and write into an in-memory store instead of the database")
	return cmd
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify follow-up records",
		RunE: func(cmd *cobra.Command, args []string) error {
			byCode, _ := cmd.Flags().GetBool("by-code")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			mode := classify.ModeFull
			if byCode {
				mode = classify.ModeByCode
			}
			engine := classify.NewEngine(followup.NewTxRunnerPG(pool), classify.DefaultTaxonomy(), logger)
			res, err := engine.Run(cmd.Context(), mode)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Bool("by-code", false, "Only fill categories of unclassified records, grouped by procedure code")
	return cmd
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Report duplicate follow-ups and date inconsistencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			var report *followup.AuditReport
			err = followup.NewTxRunnerPG(pool).InTx(cmd.Context(), func(tx followup.Tx) error {
				var err error
				report, err = followup.Audit(cmd.Context(), tx)
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
