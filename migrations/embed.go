// Package migrations embeds the SQL migration files so they can be applied
// through the goose programmatic API by the migrate command, by server
// bootstrap when AUTO_MIGRATE is set, and by integration tests.
//
// Each supported database has its own directory because the DDL differs.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// Supported driver names. They match the values of config.Config.DatabaseDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// FS holds every *.sql migration file embedded at compile time.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// NewProvider returns a goose provider for the named driver, reading the
// matching migration directory from FS.
func NewProvider(driver string, db *sql.DB) (*goose.Provider, error) {
	var dialect goose.Dialect
	switch driver {
	case DriverPostgres:
		dialect = goose.DialectPostgres
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("migrations.NewProvider: unsupported driver %q", driver)
	}

	dir, err := fs.Sub(FS, driver)
	if err != nil {
		return nil, fmt.Errorf("migrations.NewProvider: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations.NewProvider: %w", err)
	}
	return provider, nil
}
