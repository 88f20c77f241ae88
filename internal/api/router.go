package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"trip-planner-service/internal/api/handlers"
	"trip-planner-service/internal/ports"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	builder handlers.ItineraryBuilder,
	engine handlers.FeedbackApplier,
	store ports.SessionStore,
	logger *zap.Logger,
) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	itineraries := &handlers.ItineraryHandler{Builder: builder, Store: store}
	feedback := &handlers.FeedbackHandler{Engine: engine, Store: store}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)
	r.Route("/itineraries", func(r chi.Router) {
		r.Post("/", itineraries.Create)
		r.Get("/{sessionID}", itineraries.Get)
		r.Post("/{sessionID}/feedback", feedback.Apply)
	})

	return r
}
