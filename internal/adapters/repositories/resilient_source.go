package repositories

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/platform/retry"
	"trip-planner-service/internal/ports"
)

// ResilientCandidateSource bounds each search with a timeout and a single
// retry. When both attempts fail it returns an empty result so planning can
// continue with whatever is already known.
type ResilientCandidateSource struct {
	inner   ports.CandidateSource
	timeout time.Duration
	policy  retry.Policy
	logger  *zap.Logger
}

func NewResilientCandidateSource(
	inner ports.CandidateSource,
	timeout time.Duration,
	backoff time.Duration,
	logger *zap.Logger,
) *ResilientCandidateSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientCandidateSource{
		inner:   inner,
		timeout: timeout,
		policy:  retry.Policy{Attempts: 2, Backoff: backoff},
		logger:  logger,
	}
}

func (r *ResilientCandidateSource) Search(
	ctx context.Context,
	spec domain.TripSpecification,
	excludeIDs []string,
) ([]domain.Candidate, error) {
	var out []domain.Candidate

	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		res, err := r.inner.Search(callCtx, spec, excludeIDs)
		if err != nil {
			return err
		}
		out = res
		return nil
	}, nil)
	if err == nil {
		return out, nil
	}

	// The caller's own deadline is not an upstream failure.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.logger.Warn("candidate source degraded to empty result",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.Error(&domain.UpstreamUnavailableError{Service: "candidate_source", Err: err}),
		zap.String("destination", spec.Destination),
	)

	return []domain.Candidate{}, nil
}
