package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/places-api/internal/domain"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the uniform body of every place endpoint.
type envelope struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Meta    *pageMeta `json:"meta,omitempty"`
}

// pageMeta describes the page returned by a list call.
type pageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// placeResponse is the JSON representation of a place.
type placeResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// placeRequest is the body of POST and PUT/PATCH. Pointer fields distinguish
// "not supplied" from "supplied empty".
type placeRequest struct {
	Name  *string `json:"name"`
	Slug  *string `json:"slug"`
	City  *string `json:"city"`
	State *string `json:"state"`
}

func placeToResponse(p domain.Place) placeResponse {
	return placeResponse{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		City:      p.City,
		State:     p.State,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (b placeRequest) toFields() domain.PlaceFields {
	return domain.PlaceFields{Name: b.Name, Slug: b.Slug, City: b.City, State: b.State}
}

// writeJSON writes v as the JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: statusSuccess, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: statusError, Message: message})
}
