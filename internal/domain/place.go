// Package domain contains the core data types for the Places API.
// This package has no dependencies on other internal packages and is imported
// by every layer above it (repo, service, handler).
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Place is a named location. Slug is unique across all places and is
// derived from Name unless the caller supplies one.
type Place struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	City      string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaceFields carries caller-supplied values for create and update.
// A nil field was not supplied. On update, only non-nil fields are applied;
// a non-nil empty Slug asks for the slug to be regenerated from the name.
type PlaceFields struct {
	Name  *string
	Slug  *string
	City  *string
	State *string
}

// Apply copies every supplied field except Slug onto p.
// Slug is left to the caller because an empty value means "regenerate".
func (f PlaceFields) Apply(p *Place) {
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.City != nil {
		p.City = *f.City
	}
	if f.State != nil {
		p.State = *f.State
	}
}

// WantsGeneratedSlug reports whether the slug should be derived from the name:
// either no slug was supplied or it was supplied blank.
func (f PlaceFields) WantsGeneratedSlug() bool {
	return f.Slug == nil || strings.TrimSpace(*f.Slug) == ""
}

// PlaceFilter narrows a place listing. Each non-empty field is matched as a
// case-insensitive substring of the corresponding column; filters are ANDed.
type PlaceFilter struct {
	Name  string
	City  string
	State string
}

// IsEmpty reports whether no filter field is set.
func (f PlaceFilter) IsEmpty() bool {
	return f.Name == "" && f.City == "" && f.State == ""
}
