package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trip-planner-service/internal/api/dto"
	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/ports"
)

type ItineraryBuilder interface {
	Build(ctx context.Context, spec domain.TripSpecification) (*domain.Session, error)
}

type ItineraryHandler struct {
	Builder ItineraryBuilder
	Store   ports.SessionStore
}

// Create plans a new trip and opens a session for it.
func (h *ItineraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.TripRequest
	if !decodeBody(w, r, &req) {
		return
	}

	spec, err := req.ToSpec()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.Builder.Build(r.Context(), spec)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, r, http.StatusBadRequest, ve.Message)
			return
		}
		zap.L().Error("build itinerary failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewSessionResponse(sess))
}

// Get returns the current itinerary of a session.
func (h *ItineraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	sess, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		zap.L().Error("get session failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSessionResponse(sess))
}
