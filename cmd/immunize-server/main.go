package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/immunize/internal/config"
	"github.com/clinic/immunize/internal/domain/vaccine"
	"github.com/clinic/immunize/internal/platform/db"
	"github.com/clinic/immunize/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "immunize-server",
		Short:        "Clinic immunization records API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(remindersCmd())
	rootCmd.AddCommand(codesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// bootstrap loads and validates the configuration and builds the root logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	logger := newLogger(os.Getenv("ENV"))
	cfg, err := config.Load()
	if err != nil {
		return nil, logger, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(cfg.Env), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

// migrationSource prefers an on-disk directory so operators can ship
// additional files; otherwise the embedded set is used.
func migrationSource(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return migrations.FS
}

func openMigrator(ctx context.Context, cfg *config.Config) (*db.Manager, *db.Migrator, error) {
	dbm, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	if err := dbm.EnsureConnected(ctx); err != nil {
		dbm.Close()
		return nil, nil, err
	}
	return dbm, db.NewMigrator(dbm.Pool(), migrationSource(cfg.MigrationsDir)), nil
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
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			dbm, m, err := openMigrator(ctx, cfg)
			if err != nil {
				return err
			}
			defer dbm.Close()

			n, err := m.Up(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			dbm, m, err := openMigrator(ctx, cfg)
			if err != nil {
				return err
			}
			defer dbm.Close()

			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%03d  %-32s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "vaccines",
		Short: "Upsert the default vaccine inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := a.vaccines.Seed(ctx, vaccine.DefaultInventory)
				if err != nil {
					return err
				}
				a.logger.Info().Int("vaccines", n).Msg("vaccine inventory seeded")
				return nil
			})
		},
	})
	return cmd
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Immunization reminder jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one reminder pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				summary, err := a.reminders.Run(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary.String())
				return nil
			})
		},
	})
	return cmd
}

func codesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Verification code maintenance",
	}
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired verification codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			grace, _ := cmd.Flags().GetDuration("grace")
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if grace < 0 {
					grace = a.cfg.CodePurgeGrace
				}
				n, err := a.linking.PurgeExpired(ctx, grace)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired codes\n", n)
				return nil
			})
		},
	}
	purge.Flags().Duration("grace", -1, "Keep codes that expired within this long (defaults to CODE_PURGE_GRACE)")
	cmd.AddCommand(purge)
	return cmd
}

// withApp wires the application for a one-shot command and tears it down
// afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	if err := a.db.EnsureConnected(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}
