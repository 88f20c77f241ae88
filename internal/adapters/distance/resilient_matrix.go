package distance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/retry"
	"trip-planner-service/internal/ports"
)

// ResilientMatrix bounds each call to the primary matrix with a timeout and a
// single retry, then degrades to the fallback estimate. Malformed coordinates
// are never estimated.
type ResilientMatrix struct {
	primary  ports.TravelTimeMatrix
	fallback ports.TravelTimeMatrix
	timeout  time.Duration
	policy   retry.Policy
	logger   *zap.Logger
}

func NewResilientMatrix(
	primary ports.TravelTimeMatrix,
	fallback ports.TravelTimeMatrix,
	timeout time.Duration,
	backoff time.Duration,
	logger *zap.Logger,
) *ResilientMatrix {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientMatrix{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		policy:   retry.Policy{Attempts: 2, Backoff: backoff},
		logger:   logger,
	}
}

func (r *ResilientMatrix) Query(
	ctx context.Context,
	origin domain.Location,
	destinations []domain.Location,
	mode domain.TravelMode,
) ([]int, error) {
	var out []int

	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		res, err := r.primary.Query(callCtx, origin, destinations, mode)
		if err != nil {
			return err
		}
		if len(res) != len(destinations) {
			return errors.New("travel matrix returned a row of the wrong length")
		}
		out = res
		return nil
	}, func(err error) bool { return !errors.Is(err, domain.ErrMalformedCoordinates) })
	if err == nil {
		return out, nil
	}

	if errors.Is(err, domain.ErrMalformedCoordinates) {
		return nil, err
	}

	// The caller's own deadline is not an upstream failure.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.logger.Warn("travel matrix degraded to estimate",
		zap.Error(&domain.UpstreamUnavailableError{Service: "travel_time_matrix", Err: err}),
		zap.Int("destinations", len(destinations)),
		zap.String("mode", string(mode)),
	)

	return r.fallback.Query(context.WithoutCancel(ctx), origin, destinations, mode)
}
