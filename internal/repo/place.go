// Package repo contains all database access logic for the Places API.
// PlaceRepo is the persistence contract; this package ships a Postgres
// implementation (pgx) and a SQLite implementation (modernc.org/sqlite).
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/places-api/internal/domain"
)

// PlaceRepo defines the persistence operations for Places.
// The service layer depends on this interface, not on a concrete store,
// which allows the service to be unit-tested with a mock.
type PlaceRepo interface {
	// Create inserts a new place and returns the persisted record (with
	// store-generated id, created_at and updated_at populated).
	// Returns domain.ErrDuplicateSlug if the slug is already taken.
	Create(ctx context.Context, place domain.Place) (domain.Place, error)

	// GetByID retrieves a single place by its UUID primary key.
	// Returns domain.ErrNotFound if no place with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error)

	// ListPaged returns one page of places matching filter, newest first,
	// together with the total number of matching places.
	ListPaged(ctx context.Context, filter domain.PlaceFilter, p domain.PaginationParams) ([]domain.Place, int64, error)

	// Update overwrites the mutable fields of an existing place and returns
	// the refreshed record. Returns domain.ErrNotFound if it does not exist
	// and domain.ErrDuplicateSlug if the new slug is taken.
	Update(ctx context.Context, place domain.Place) (domain.Place, error)

	// Delete removes a place by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// SlugExists reports whether any place other than excludeID uses slug.
	// Pass uuid.Nil to check against every place.
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

	// WithTx runs fn against a PlaceRepo bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(PlaceRepo) error) error
}

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup. Begin on a pgx.Tx opens a
// savepoint, so WithTx nests cleanly inside a test transaction.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgUniqueViolation is the SQLSTATE Postgres reports for a UNIQUE constraint hit.
const pgUniqueViolation = "23505"

const placeColumns = `id, name, slug, city, state, created_at, updated_at`

// pgPlaceRepo is the Postgres implementation of PlaceRepo.
type pgPlaceRepo struct {
	db db
}

// NewPlaceRepo constructs a PlaceRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPlaceRepo(db db) PlaceRepo {
	return &pgPlaceRepo{db: db}
}

// Create inserts a new place row and returns the full persisted record.
func (r *pgPlaceRepo) Create(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		INSERT INTO places (name, slug, city, state)
		VALUES (@name, @slug, @city, @state)
		RETURNING ` + placeColumns

	args := pgx.NamedArgs{
		"name":  place.Name,
		"slug":  place.Slug,
		"city":  place.City,
		"state": place.State,
	}

	result, err := scanPgPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Create: %w", mapPgError(err, place.Slug))
	}
	return result, nil
}

// GetByID retrieves a place by primary key.
func (r *pgPlaceRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	const q = `SELECT ` + placeColumns + ` FROM places WHERE id = @id`

	result, err := scanPgPlace(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of places matching filter ordered by created_at
// descending. Each filter is an ILIKE substring match; empty filters match all.
func (r *pgPlaceRepo) ListPaged(ctx context.Context, filter domain.PlaceFilter, p domain.PaginationParams) ([]domain.Place, int64, error) {
	const where = `
		WHERE (@name  = '' OR name  ILIKE '%' || @name  || '%')
		  AND (@city  = '' OR city  ILIKE '%' || @city  || '%')
		  AND (@state = '' OR state ILIKE '%' || @state || '%')`

	args := pgx.NamedArgs{
		"name":   escapeLike(filter.Name),
		"city":   escapeLike(filter.City),
		"state":  escapeLike(filter.State),
		"limit":  p.Limit,
		"offset": p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM places`+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.PlaceRepo.ListPaged: count: %w", err)
	}

	q := `SELECT ` + placeColumns + ` FROM places` + where + `
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.PlaceRepo.ListPaged: %w", err)
	}
	defer rows.Close()

	places := []domain.Place{}
	for rows.Next() {
		pl, err := scanPgPlace(rows)
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

// Update overwrites the mutable fields of a place and returns the updated record.
func (r *pgPlaceRepo) Update(ctx context.Context, place domain.Place) (domain.Place, error) {
	const q = `
		UPDATE places
		SET name       = @name,
		    slug       = @slug,
		    city       = @city,
		    state      = @state,
		    updated_at = clock_timestamp()
		WHERE id = @id
		RETURNING ` + placeColumns

	args := pgx.NamedArgs{
		"id":    place.ID,
		"name":  place.Name,
		"slug":  place.Slug,
		"city":  place.City,
		"state": place.State,
	}

	result, err := scanPgPlace(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Place{}, fmt.Errorf("repo.PlaceRepo.Update: %w", mapPgError(err, place.Slug))
	}
	return result, nil
}

// Delete removes a place by primary key.
func (r *pgPlaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM places WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PlaceRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// SlugExists reports whether slug is used by a place other than excludeID.
func (r *pgPlaceRepo) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM places WHERE slug = @slug AND id <> @exclude_id)`

	var exists bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"slug": slug, "exclude_id": excludeID}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repo.PlaceRepo.SlugExists: %w", err)
	}
	return exists, nil
}

// WithTx runs fn inside a transaction (or a savepoint when r is already
// transaction-bound). pgx.BeginFunc commits on nil and rolls back otherwise.
func (r *pgPlaceRepo) WithTx(ctx context.Context, fn func(PlaceRepo) error) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgPlaceRepo{db: tx})
	})
	if err != nil {
		return fmt.Errorf("repo.PlaceRepo.WithTx: %w", err)
	}
	return nil
}

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows, allowing
// the scan helpers to be reused for single-row and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

// scanPgPlace maps a single Postgres row into a domain.Place.
func scanPgPlace(s scanner) (domain.Place, error) {
	var (
		p  domain.Place
		id pgtype.UUID
	)
	err := s.Scan(&id, &p.Name, &p.Slug, &p.City, &p.State, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Place{}, domain.ErrNotFound
		}
		return domain.Place{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	return p, nil
}

// mapPgError turns a unique-constraint violation into domain.ErrDuplicateSlug,
// keeping the driver error in the chain. Other errors pass through.
func mapPgError(err error, slug string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %q: %w", domain.ErrDuplicateSlug, slug, err)
	}
	return err
}

// likeEscaper escapes LIKE metacharacters so filter values match literally.
// Both Postgres and SQLite (with ESCAPE '\') treat backslash as the escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
