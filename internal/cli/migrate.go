package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/places-api/internal/config"
	"github.com/pkordes/places-api/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withProvider(cmd, func(ctx context.Context, p *goose.Provider) error {
			results, err := p.Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			if len(results) == 0 {
				cmd.Println("no migrations to apply")
			}
			for _, r := range results {
				printResult(cmd, r)
			}
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withProvider(cmd, func(ctx context.Context, p *goose.Provider) error {
			r, err := p.Down(ctx)
			if err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			printResult(cmd, r)
			return nil
		})
	},
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Roll back every applied migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withProvider(cmd, func(ctx context.Context, p *goose.Provider) error {
			results, err := p.DownTo(ctx, 0)
			if err != nil {
				return fmt.Errorf("migrate reset: %w", err)
			}
			for _, r := range results {
				printResult(cmd, r)
			}
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether each is applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withProvider(cmd, func(ctx context.Context, p *goose.Provider) error {
			statuses, err := p.Status(ctx)
			if err != nil {
				return fmt.Errorf("migrate status: %w", err)
			}
			for _, s := range statuses {
				applied := "-"
				if s.State == goose.StateApplied {
					applied = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				cmd.Printf("%-8s %-28s %s\n", s.State, filepath.Base(s.Source.Path), applied)
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateResetCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withProvider loads configuration, opens the store and hands fn a goose
// provider for the configured driver.
func withProvider(cmd *cobra.Command, fn func(context.Context, *goose.Provider) error) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, err := migrations.NewProvider(cfg.DatabaseDriver, st.sqlDB)
	if err != nil {
		return err
	}
	return fn(ctx, provider)
}

func printResult(cmd *cobra.Command, r *goose.MigrationResult) {
	if r == nil || r.Source == nil {
		return
	}
	cmd.Printf("%-4s %-28s %s\n", r.Direction, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
}
