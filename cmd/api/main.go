// Package main is the entry point for the Places API.
// Its sole responsibility is handing control to the command line; wiring
// lives in internal/cli. No business logic belongs here.
package main

import (
	"log/slog"
	"os"

	"github.com/pkordes/places-api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
