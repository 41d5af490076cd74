package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/places-api/internal/domain"
	"github.com/pkordes/places-api/internal/repo"
	"github.com/pkordes/places-api/internal/service"
	"github.com/pkordes/places-api/internal/slug"
	"github.com/pkordes/places-api/testutil"
)

// These tests drive PlaceService against a real SQLite store so the
// transaction and slug-probing paths run end to end.

func newSQLiteService(t *testing.T) *service.PlaceService {
	t.Helper()
	return service.NewPlaceService(repo.NewSQLitePlaceRepo(testutil.NewSQLiteDB(t)))
}

func TestPlaceService_SQLite_RepeatedNameGetsSuffix(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validFields())
	require.NoError(t, err)
	second, err := svc.Create(ctx, validFields())
	require.NoError(t, err)
	third, err := svc.Create(ctx, validFields())
	require.NoError(t, err)

	assert.Equal(t, "test-place", first.Slug)
	assert.Equal(t, "test-place-1", second.Slug)
	assert.Equal(t, "test-place-2", third.Slug)
}

func TestPlaceService_SQLite_CreateGetRoundTrip(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validFields())
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Slug, got.Slug)
	assert.Equal(t, created.City, got.City)
	assert.Equal(t, created.State, got.State)
}

func TestPlaceService_SQLite_DuplicateSuppliedSlugIsStoreFailure(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	fields := validFields()
	fields.Slug = strPtr("test-place")
	_, err := svc.Create(ctx, fields)
	require.NoError(t, err)

	_, err = svc.Create(ctx, fields)

	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
}

func TestPlaceService_SQLite_UpdateRegeneratesOwnSlugUnchanged(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validFields())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.PlaceFields{Slug: strPtr("")})

	require.NoError(t, err)
	assert.Equal(t, "test-place", updated.Slug, "regenerating with the same name keeps the slug")
}

func TestPlaceService_SQLite_PartialUpdate(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validFields())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, domain.PlaceFields{City: strPtr("X")})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Equal(t, "X", got.City)
	assert.Equal(t, "Test Place", got.Name)
}

func TestPlaceService_SQLite_DeleteThenGet(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validFields())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.GetByID(ctx, created.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceService_SQLite_GetNeverAssigned(t *testing.T) {
	svc := newSQLiteService(t)

	_, err := svc.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceService_SQLite_ListByCitySubstring(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validFields())
	require.NoError(t, err)
	other := validFields()
	other.Name, other.City = strPtr("Other"), strPtr("Luque")
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	got, total, err := svc.List(ctx, domain.PlaceFilter{City: "asun"}, domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Asunción", got[0].City)
}

func TestPlaceService_SQLite_LongNameSuffixFitsColumn(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	fields := validFields()
	fields.Name = strPtr(strings.Repeat("n", slug.MaxLength))

	first, err := svc.Create(ctx, fields)
	require.NoError(t, err)
	second, err := svc.Create(ctx, fields)
	require.NoError(t, err)

	assert.Len(t, first.Slug, slug.MaxLength)
	assert.Len(t, second.Slug, slug.MaxLength)
	assert.True(t, strings.HasSuffix(second.Slug, "-1"), second.Slug)
}
