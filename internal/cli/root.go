// Package cli implements the places-api command line: the HTTP server, schema
// migrations and version reporting. Each subcommand loads configuration the
// same way, so the server and the migrate command always target one database.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pkordes/places-api/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "places-api",
	Short: "CRUD API for places with unique slugs",
	Long: `places-api serves a JSON API for creating, listing, updating and deleting
places. Configuration comes from environment variables, optionally layered
over a TOML file named by CONFIG_FILE.

Run without a subcommand to start the server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServeCmd,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the JSON slog.Logger used by every subcommand.
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}
