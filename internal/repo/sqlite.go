package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pkordes/places-api/internal/domain"
)

// sqliteTimeFormat is fixed-width so that ORDER BY on the TEXT column sorts
// chronologically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// foldFunc is a SQL function registered with the SQLite driver that lowercases
// its argument with full Unicode rules. SQLite's built-in lower() and LIKE
// only fold ASCII, which would make "ASUNCIÓN" miss "Asunción".
const foldFunc = "places_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// OpenSQLite opens the SQLite database at path with foreign keys, a busy
// timeout and WAL journaling enabled. Transactions begin IMMEDIATE so the
// slug check and the write that follows it hold the write lock together.
// In-memory databases are limited to one connection because each connection
// would otherwise see its own empty database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: open: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: ping: %w", err)
	}
	return db, nil
}

// sqlConn is the subset of *sql.DB and *sql.Tx the SQLite repo needs.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlitePlaceRepo is the SQLite implementation of PlaceRepo.
// IDs and timestamps are generated here because SQLite has no native
// UUID or timestamptz support.
type sqlitePlaceRepo struct {
	conn sqlConn
	// db is nil when the repo is bound to a transaction.
	db  *sql.DB
	now func() time.Time
}

// NewSQLitePlaceRepo constructs a PlaceRepo backed by db. Migrations must
// already have been applied.
func NewSQLitePlaceRepo(db *sql.DB) PlaceRepo {
	return &sqlitePlaceRepo{conn: db, db: db, now: time.Now}
}

func (r *sqlitePlaceRepo) Create(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		INSERT INTO places (id, name, slug, city, state, created_at, updated_at)
		VALUES (@id, @name, @slug, @city, @state, @ts, @ts)`

	id := uuid.New()
	_, err := r.conn.ExecContext(ctx, q,
		sql.Named("id", id.String()),
		sql.Named("name", place.Name),
		sql.Named("slug", place.Slug),
		sql.Named("city", place.City),
		sql.Named("state", place.State),
		sql.Named("ts", r.timestamp()),
	)
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Create: %w", mapSQLiteError(err, place.Slug))
	}

	result, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Create: %w", err)
	}
	return result, nil
}

func (r *sqlitePlaceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	const q = `SELECT ` + placeColumns + ` FROM places WHERE id = @id`

	result, err := scanSQLitePlace(r.conn.QueryRowContext(ctx, q, sql.Named("id", id.String())))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *sqlitePlaceRepo) ListPaged(ctx context.Context, filter domain.PlaceFilter, p domain.PaginationParams) ([]domain.Place, int64, error) {
	const where = `
		WHERE (@name  = '' OR ` + foldFunc + `(name)  LIKE '%' || @name  || '%' ESCAPE '\')
		  AND (@city  = '' OR ` + foldFunc + `(city)  LIKE '%' || @city  || '%' ESCAPE '\')
		  AND (@state = '' OR ` + foldFunc + `(state) LIKE '%' || @state || '%' ESCAPE '\')`

	filterArgs := []any{
		sql.Named("name", escapeLike(strings.ToLower(filter.Name))),
		sql.Named("city", escapeLike(strings.ToLower(filter.City))),
		sql.Named("state", escapeLike(strings.ToLower(filter.State))),
	}

	var total int64
	if err := r.conn.QueryRowContext(ctx, `SELECT count(*) FROM places`+where, filterArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.PlaceRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + placeColumns + ` FROM places` + where + `
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	args := append(filterArgs, sql.Named("limit", p.Limit), sql.Named("offset", p.Offset()))
	rows, err := r.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.PlaceRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	places := []domain.Place{}
	for rows.Next() {
		pl, err := scanSQLitePlace(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.PlaceRepo.ListPaged: scan: %w", err)
		}
		places = append(places, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.PlaceRepo.ListPaged: rows: %w", err)
	}
	return places, total, nil
}

func (r *sqlitePlaceRepo) Update(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		UPDATE places
		SET name       = @name,
		    slug       = @slug,
		    city       = @city,
		    state      = @state,
		    updated_at = @ts
		WHERE id = @id`

	res, err := r.conn.ExecContext(ctx, q,
		sql.Named("id", place.ID.String()),
		sql.Named("name", place.Name),
		sql.Named("slug", place.Slug),
		sql.Named("city", place.City),
		sql.Named("state", place.State),
		sql.Named("ts", r.timestamp()),
	)
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Update: %w", mapSQLiteError(err, place.Slug))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Update: %w", err)
	}
	if n == 0 {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Update: %w", domain.ErrNotFound)
	}

	result, err := r.GetByID(ctx, place.ID)
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Update: %w", err)
	}
	return result, nil
}

func (r *sqlitePlaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM places WHERE id = @id`, sql.Named("id", id.String()))
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *sqlitePlaceRepo) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM places WHERE slug = @slug AND id <> @exclude_id)`

	var exists bool
	err := r.conn.QueryRowContext(ctx, q, sql.Named("slug", slug), sql.Named("exclude_id", excludeID.String())).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repo.PlaceRepo.SlugExists: %w", err)
	}
	return exists, nil
}

// WithTx runs fn inside a database/sql transaction. A repo that is already
// transaction-bound runs fn directly against the same transaction.
func (r *sqlitePlaceRepo) WithTx(ctx context.Context, fn func(PlaceRepo) error) (err error) {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.WithTx: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlitePlaceRepo{conn: tx, now: r.now}); err != nil {
		return fmt.Errorf("repo.PlaceRepo.WithTx: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repo.PlaceRepo.WithTx: commit: %w", err)
	}
	return nil
}

func (r *sqlitePlaceRepo) timestamp() string {
	return r.now().UTC().Format(sqliteTimeFormat)
}

// scanSQLitePlace maps a single SQLite row into a domain.Place.
func scanSQLitePlace(s scanner) (domain.Place, error) {
	var (
		p                domain.Place
		id               string
		created, updated string
	)
	err := s.Scan(&id, &p.Name, &p.Slug, &p.City, &p.State, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Place{}, domain.ErrNotFound
		}
		return domain.Place{}, err
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return domain.Place{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	if p.CreatedAt, err = time.Parse(sqliteTimeFormat, created); err != nil {
		return domain.Place{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(sqliteTimeFormat, updated); err != nil {
		return domain.Place{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return p, nil
}

// mapSQLiteError turns a UNIQUE constraint failure into domain.ErrDuplicateSlug.
func mapSQLiteError(err error, slug string) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) &&
		sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %q: %w", domain.ErrDuplicateSlug, slug, err)
	}
	return err
}
