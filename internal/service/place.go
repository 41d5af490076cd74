// Package service contains the business logic for the Places API.
// Services enforce business rules, generate slugs, and orchestrate repo calls
// inside transactions. No SQL lives here; services depend on repo interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/places-api/internal/domain"
	"github.com/pkordes/places-api/internal/repo"
	"github.com/pkordes/places-api/internal/slug"
)

// PlaceService implements the place operations on top of a PlaceRepo.
type PlaceService struct {
	repo repo.PlaceRepo
}

// NewPlaceService constructs a PlaceService backed by the provided PlaceRepo.
func NewPlaceService(r repo.PlaceRepo) *PlaceService {
	return &PlaceService{repo: r}
}

// List returns one page of places matching filter, newest first, and the
// total number of matches. The slice is never nil; an empty page is not an error.
func (s *PlaceService) List(ctx context.Context, filter domain.PlaceFilter, p domain.PaginationParams) ([]domain.Place, int64, error) {
	filter = domain.PlaceFilter{
		Name:  strings.TrimSpace(filter.Name),
		City:  strings.TrimSpace(filter.City),
		State: strings.TrimSpace(filter.State),
	}

	places, total, err := s.repo.ListPaged(ctx, filter, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.PlaceService.List: %w", err)
	}
	if places == nil {
		places = []domain.Place{}
	}
	return places, total, nil
}

// GetByID returns a single place. Returns domain.ErrNotFound if it does not exist.
func (s *PlaceService) GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error) {
	place, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.GetByID: %w", err)
	}
	return place, nil
}

// Create persists a new place. When no slug (or a blank one) is supplied, a
// unique slug is generated from the name; the check and the insert share one
// transaction. Store errors are reported as domain.ErrStoreFailure.
func (s *PlaceService) Create(ctx context.Context, fields domain.PlaceFields) (domain.Place, error) {
	if err := validateCreate(fields); err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.Create: %w", err)
	}

	var place domain.Place
	fields.Apply(&place)

	var created domain.Place
	err := s.repo.WithTx(ctx, func(tx repo.PlaceRepo) error {
		var err error
		if place.Slug, err = resolveSlug(ctx, tx, fields, place.Name, uuid.Nil); err != nil {
			return err
		}
		created, err = tx.Create(ctx, place)
		return err
	})
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.Create: %w", storeFailure(err))
	}
	return created, nil
}

// Update applies the supplied fields to an existing place and returns the
// refreshed record. Unsupplied fields keep their values. A slug supplied
// blank is regenerated from the (possibly new) name; the place's own current
// slug does not count as a collision.
// Returns domain.ErrNotFound if the place does not exist.
func (s *PlaceService) Update(ctx context.Context, id uuid.UUID, fields domain.PlaceFields) (domain.Place, error) {
	if err := validateUpdate(fields); err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.Update: %w", err)
	}

	var updated domain.Place
	err := s.repo.WithTx(ctx, func(tx repo.PlaceRepo) error {
		place, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		fields.Apply(&place)

		if fields.Slug != nil {
			if place.Slug, err = resolveSlug(ctx, tx, fields, place.Name, place.ID); err != nil {
				return err
			}
		}

		updated, err = tx.Update(ctx, place)
		return err
	})
	if err != nil {
		return domain.Place{}, fmt.Errorf("service.PlaceService.Update: %w", storeFailure(err))
	}
	return updated, nil
}

// Delete hard-deletes a place. Returns domain.ErrNotFound if it does not exist.
func (s *PlaceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.PlaceService.Delete: %w", storeFailure(err))
	}
	return nil
}

// resolveSlug returns the slug to store: the normalized supplied slug, or a
// generated one when the supplied slug is absent or blank.
func resolveSlug(ctx context.Context, tx repo.PlaceRepo, fields domain.PlaceFields, name string, self uuid.UUID) (string, error) {
	if !fields.WantsGeneratedSlug() {
		return slug.Slugify(*fields.Slug), nil
	}
	return slug.Generate(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
		return tx.SlugExists(ctx, candidate, self)
	})
}

// storeFailure marks err as a domain.ErrStoreFailure unless it already
// carries a classification the caller handles separately.
func storeFailure(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreFailure, err)
}

// validateCreate enforces the rules for a new place:
//   - name, city and state are required and must not be blank.
//   - a supplied non-blank slug must contain at least one letter or digit.
func validateCreate(f domain.PlaceFields) error {
	var problems []string
	for _, field := range []struct {
		name  string
		value *string
	}{{"name", f.Name}, {"city", f.City}, {"state", f.State}} {
		if field.value == nil || strings.TrimSpace(*field.value) == "" {
			problems = append(problems, field.name+" is required")
		}
	}
	problems = append(problems, slugProblems(f)...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// validateUpdate enforces the rules for a partial update: any supplied name,
// city or state must not be blank. A blank slug is allowed and means "regenerate".
func validateUpdate(f domain.PlaceFields) error {
	var problems []string
	for _, field := range []struct {
		name  string
		value *string
	}{{"name", f.Name}, {"city", f.City}, {"state", f.State}} {
		if field.value != nil && strings.TrimSpace(*field.value) == "" {
			problems = append(problems, field.name+" must not be blank")
		}
	}
	problems = append(problems, slugProblems(f)...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func slugProblems(f domain.PlaceFields) []string {
	if f.WantsGeneratedSlug() || slug.Slugify(*f.Slug) != "" {
		return nil
	}
	return []string{"slug must contain at least one letter or digit"}
}
