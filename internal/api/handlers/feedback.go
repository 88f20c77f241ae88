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
	"trip-planner-service/internal/services"
)

type FeedbackApplier interface {
	Apply(ctx context.Context, sessionID string, op domain.FeedbackOp) (*services.FeedbackResult, error)
}

type FeedbackHandler struct {
	Engine FeedbackApplier
	Store  ports.SessionStore
}

// Apply runs one feedback op against a session. Failures still carry the
// unchanged itinerary and a machine-readable reason.
func (h *FeedbackHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req dto.FeedbackRequest
	if err := decode(r, &req); err != nil {
		h.reject(w, r, id, domain.NewValidationError(domain.ReasonInvalidOp, err.Error()))
		return
	}

	op, err := domain.ParseFeedbackOp(req.ToDomain())
	if err != nil {
		h.reject(w, r, id, err)
		return
	}

	res, err := h.Engine.Apply(r.Context(), id, op)
	if res == nil {
		res = &services.FeedbackResult{State: services.StateFailed}
	}

	body := dto.FeedbackResponse{
		State:     string(res.State),
		Version:   res.Version,
		Reason:    res.Reason,
		Retryable: res.Retryable,
		Itinerary: dto.NewItineraryResponse(res.Itinerary),
	}

	if err == nil {
		writeJSON(w, r, http.StatusOK, body)
		return
	}

	var (
		ve *domain.ValidationError
		ie *domain.InfeasibleConstraintError
		ce *domain.ConcurrencyTimeoutError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		body.Message = err.Error()
		writeJSON(w, r, http.StatusNotFound, body)
	case errors.As(err, &ve):
		body.Message = ve.Error()
		writeJSON(w, r, http.StatusBadRequest, body)
	case errors.As(err, &ie):
		body.Message = ie.Error()
		writeJSON(w, r, http.StatusUnprocessableEntity, body)
	case errors.As(err, &ce):
		body.Message = ce.Error()
		w.Header().Set("Retry-After", "1")
		writeJSON(w, r, http.StatusServiceUnavailable, body)
	default:
		zap.L().Error("apply feedback failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		body.Reason = "internal_error"
		writeJSON(w, r, http.StatusInternalServerError, body)
	}
}

// reject answers an op that never reached the engine. The body carries the
// session's current itinerary so the client can re-render it unchanged.
func (h *FeedbackHandler) reject(w http.ResponseWriter, r *http.Request, sessionID string, cause error) {
	body := dto.FeedbackResponse{
		State:     string(services.StateFailed),
		Reason:    domain.ReasonOf(cause),
		Message:   cause.Error(),
		Retryable: domain.IsRetryable(cause),
		Itinerary: dto.NewItineraryResponse(domain.Itinerary{}),
	}

	if h.Store != nil {
		sess, err := h.Store.Get(r.Context(), sessionID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			body.Reason = domain.ReasonNotFound
			body.Message = err.Error()
			writeJSON(w, r, http.StatusNotFound, body)
			return
		case err != nil:
			zap.L().Warn("load session for rejected op",
				zap.String("req_id", obs.RequestID(r.Context())),
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		default:
			body.Version = sess.Version
			body.Itinerary = dto.NewItineraryResponse(sess.Itinerary)
		}
	}

	writeJSON(w, r, http.StatusBadRequest, body)
}
