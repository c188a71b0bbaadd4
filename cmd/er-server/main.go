package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meridian/er/internal/config"
	"github.com/meridian/er/internal/domain/reference"
	"github.com/meridian/er/internal/platform/db"
	"github.com/meridian/er/internal/platform/events"
	"github.com/meridian/er/internal/platform/resources"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "er-server",
		Short:        "Meridian emergency room operations API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(referenceCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadConfig loads and validates configuration and builds the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger(nil), err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

func openPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for this command")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
}

// loadResources reads the models and reference tables. With
// REFERENCE_SOURCE=postgres the tables come from the returned pool, which the
// caller must close. In CSV mode a pool is still opened when DATABASE_URL is
// set, for /health/db; failing to reach it is then only a warning.
func loadResources(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*resources.Store, *pgxpool.Pool, error) {
	paths := resources.Paths{
		TriageModel:   cfg.TriageModelPath,
		VolumeModel:   cfg.VolumeModelPath,
		WaitTimeModel: cfg.WaitTimeModelPath,
		Visits:        cfg.VisitsPath,
		Staffing:      cfg.StaffingPath,
	}

	var pool *pgxpool.Pool
	var src reference.Source
	if cfg.UsePostgres() {
		p, err := openPool(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		pool = p
		src = reference.NewPGSource(pool)
		paths.Visits, paths.Staffing = "", ""
	} else if cfg.DatabaseURL != "" {
		p, err := openPool(ctx, cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("database unavailable, /health/db disabled")
		} else {
			pool = p
		}
	}

	store, err := resources.Load(ctx, paths, src, logger)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}
	return store, pool, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the API server.

Outside ENV=development, PUT /tickets/:id/status requires an
"Authorization: Bearer <jwt>" header. The token must be HS256-signed with
JWT_SIGNING_KEY and carry the "staff" or "admin" role. Clients that send no
token, such as the stock queue dashboard, get 401 until they are set up to
send one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: staff routes accept every request as admin")
	}

	ctx := context.Background()
	store, pool, err := loadResources(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load resources")
	}

	deps := serverDeps{cfg: cfg, store: store, pub: events.NopPublisher{}, logger: logger}
	if pool != nil {
		defer pool.Close()
		deps.db = pool
	}
	if rdb := db.NewRedisClient(ctx, cfg.RedisURL, logger); rdb != nil {
		defer rdb.Close()
		deps.cache = rdb
	}
	if cfg.AMQPURL != "" {
		pub := events.NewAMQPPublisher(cfg.AMQPURL, events.DefaultExchange, logger)
		defer pub.Close()
		deps.pub = pub
	}

	e := newServer(deps)

	addr := ":" + cfg.Port
	go func() {
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every model and dataset, print a summary and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			store, pool, err := loadResources(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if pool != nil {
				pool.Close()
			}
			out, err := json.MarshalIndent(store.Summary(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(c *cobra.Command, run func(context.Context, *db.Migrator) error) error {
		dir, _ := c.Flags().GetString("dir")
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := c.Context()
		pool, err := openPool(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		return run(ctx, db.NewMigrator(pool, dir))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("dir", "./migrations", "Path to migrations directory")
		cmd.AddCommand(c)
	}
	return cmd
}

func referenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Manage the visit history and staffing reference tables",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the Postgres reference tables with the contents of the CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			visitsPath, _ := cmd.Flags().GetString("visits")
			staffingPath, _ := cmd.Flags().GetString("staffing")
			if visitsPath == "" {
				visitsPath = cfg.VisitsPath
			}
			if staffingPath == "" {
				staffingPath = cfg.StaffingPath
			}

			ctx := cmd.Context()
			csv := reference.NewCSVSource(visitsPath, staffingPath)
			visits, err := csv.Visits(ctx)
			if err != nil {
				return err
			}
			staffing, err := csv.Staffing(ctx)
			if err != nil {
				return err
			}

			pool, err := openPool(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			nv, ns, err := reference.NewPGSource(pool).Replace(ctx, visits, staffing)
			if err != nil {
				return fmt.Errorf("import reference tables: %w", err)
			}
			logger.Info().Int64("visits", nv).Int64("staffing_rows", ns).Msg("reference tables imported")
			return nil
		},
	}
	importCmd.Flags().String("visits", "", "Visit history CSV (defaults to VISITS_PATH)")
	importCmd.Flags().String("staffing", "", "Staffing schedule CSV (defaults to STAFFING_PATH)")

	cmd.AddCommand(importCmd)
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the event stream",
	}

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Log every event published to the exchange until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is required for this command")
			}
			key, _ := cmd.Flags().GetString("key")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = events.Tail(ctx, cfg.AMQPURL, events.DefaultExchange, key, func(ev events.Event) error {
				logger.Info().
					Str("id", ev.ID).
					Str("type", ev.Type).
					Time("occurred_at", ev.OccurredAt).
					RawJSON("data", ev.Data).
					Msg("event")
				return nil
			}, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	tailCmd.Flags().String("key", "#", "Routing key pattern to bind")

	cmd.AddCommand(tailCmd)
	return cmd
}
