package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/places-api/internal/domain"
)

// maxFieldLength is the column width of every text field of a place.
const maxFieldLength = 255

var errTrailingData = errors.New("unexpected data after JSON body")

// listPlacesParams holds the query parameters of GET /places.
type listPlacesParams struct {
	Name    *string
	City    *string
	State   *string
	Page    *int
	PerPage *int
}

// ListPlaces handles GET /places.
// Supports ?name=, ?city= and ?state= substring filters plus ?page= and
// ?per_page= (defaults: page=1, per_page=15, max=100).
func (s *Server) ListPlaces(w http.ResponseWriter, r *http.Request) {
	params, err := bindListPlacesParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := domain.PlaceFilter{}
	if params.Name != nil {
		filter.Name = *params.Name
	}
	if params.City != nil {
		filter.City = *params.City
	}
	if params.State != nil {
		filter.State = *params.State
	}
	page := domain.NewPaginationParams(params.Page, params.PerPage)

	places, total, err := s.places.List(r.Context(), filter, page)
	if err != nil {
		s.writeServiceError(w, r, "list", err)
		return
	}

	data := make([]placeResponse, len(places))
	for i, p := range places {
		data[i] = placeToResponse(p)
	}
	message := "Places retrieved successfully"
	if len(places) == 0 {
		message = "No places found"
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
		Meta:    &pageMeta{Page: page.Page, PerPage: page.Limit, Total: total},
	})
}

// GetPlace handles GET /places/{id}.
func (s *Server) GetPlace(w http.ResponseWriter, r *http.Request) {
	id, ok := bindPlaceID(w, r)
	if !ok {
		return
	}

	place, err := s.places.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "retrieve", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Place retrieved successfully", placeToResponse(place))
}

// CreatePlace handles POST /places.
func (s *Server) CreatePlace(w http.ResponseWriter, r *http.Request) {
	body, ok := decodePlaceRequest(w, r)
	if !ok {
		return
	}

	created, err := s.places.Create(r.Context(), body.toFields())
	if err != nil {
		s.writeServiceError(w, r, "create", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Place created successfully", placeToResponse(created))
}

// UpdatePlace handles PUT and PATCH /places/{id}. Both verbs apply only the
// supplied fields.
func (s *Server) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	id, ok := bindPlaceID(w, r)
	if !ok {
		return
	}
	body, ok := decodePlaceRequest(w, r)
	if !ok {
		return
	}

	updated, err := s.places.Update(r.Context(), id, body.toFields())
	if err != nil {
		s.writeServiceError(w, r, "update", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Place updated successfully", placeToResponse(updated))
}

// DeletePlace handles DELETE /places/{id}.
func (s *Server) DeletePlace(w http.ResponseWriter, r *http.Request) {
	id, ok := bindPlaceID(w, r)
	if !ok {
		return
	}

	if err := s.places.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "delete", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Place deleted successfully", nil)
}

// --- binding helpers --------------------------------------------------------

// bindPlaceID parses the {id} path parameter. An id that is not a UUID can
// never name a stored place, so it is answered like any other unknown id:
// 404 "Place not found". On failure it returns false.
func bindPlaceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusNotFound, "Place not found")
		return uuid.Nil, false
	}
	return id, true
}

// paramFormatError reports a query parameter that could not be bound.
type paramFormatError struct {
	param string
	err   error
}

func (e *paramFormatError) Error() string { return "Invalid format for parameter " + e.param }
func (e *paramFormatError) Unwrap() error { return e.err }

func bindListPlacesParams(r *http.Request) (listPlacesParams, error) {
	var params listPlacesParams
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dest any
	}{
		{"name", &params.Name},
		{"city", &params.City},
		{"state", &params.State},
		{"page", &params.Page},
		{"per_page", &params.PerPage},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, query, p.dest); err != nil {
			return listPlacesParams{}, &paramFormatError{param: p.name, err: err}
		}
	}
	return params, nil
}

// decodePlaceRequest reads the JSON body into a placeRequest and checks
// field lengths. On failure it writes the error response and returns false.
func decodePlaceRequest(w http.ResponseWriter, r *http.Request) (placeRequest, bool) {
	var body placeRequest
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&body)
	if err == nil {
		// Anything but whitespace after the object means the body is not one JSON document.
		switch extra := dec.Decode(&struct{}{}); {
		case extra == nil:
			err = errTrailingData
		case !errors.Is(extra, io.EOF):
			err = extra
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "Malformed JSON body")
		}
		return placeRequest{}, false
	}

	for _, f := range []struct {
		name  string
		value *string
	}{{"name", body.Name}, {"slug", body.Slug}, {"city", body.City}, {"state", body.State}} {
		if f.value != nil && utf8.RuneCountInString(*f.value) > maxFieldLength {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("%s must be at most %d characters", f.name, maxFieldLength))
			return placeRequest{}, false
		}
	}
	return body, true
}
