// Package handler implements the HTTP handlers for the Places API.
// All handlers are methods on Server. Methods are split into files by
// resource (health.go, place.go) but share the same Server struct so they
// can reach its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/places-api/internal/domain"
)

// PlaceServicer defines the business operations the place handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type PlaceServicer interface {
	List(ctx context.Context, filter domain.PlaceFilter, p domain.PaginationParams) ([]domain.Place, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Place, error)
	Create(ctx context.Context, fields domain.PlaceFields) (domain.Place, error)
	Update(ctx context.Context, id uuid.UUID, fields domain.PlaceFields) (domain.Place, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Server serves every API endpoint.
type Server struct {
	places PlaceServicer
	log    *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(places PlaceServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{places: places, log: log}
}

// Routes returns a chi router with every endpoint registered. Cross-cutting
// middleware (request IDs, logging, recovery) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/places", func(r chi.Router) {
		r.Get("/", s.ListPlaces)
		r.Post("/", s.CreatePlace)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetPlace)
			r.Put("/", s.UpdatePlace)
			r.Patch("/", s.UpdatePlace)
			r.Delete("/", s.DeletePlace)
		})
	})

	return r
}
