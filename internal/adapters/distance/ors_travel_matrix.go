package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/platform/retry"
	"trip-planner-service/internal/ports"
)

// maxDestinationsPerRequest keeps each matrix call under the ORS location limit.
const maxDestinationsPerRequest = 49

var orsProfiles = map[domain.TravelMode]string{
	domain.ModeWalking: "foot-walking",
	domain.ModeDriving: "driving-car",
	domain.ModeCycling: "cycling-regular",
}

// ORSTravelMatrix implements TravelTimeMatrix using OpenRouteService.
//
// It coordinates:
//   - Coordinate validation (fails closed on malformed input)
//   - Persistent travel time caching
//   - Chunked external matrix calls with retry/backoff
//
// The provider is safe for concurrent use.
type ORSTravelMatrix struct {
	session *http.Client
	apiKey  string
	baseURL string
	retry   retry.Policy
	cache   ports.TravelTimeCache
	logger  *zap.Logger
}

type ORSOption func(*ORSTravelMatrix)

// WithBaseURL points the provider at another ORS deployment.
func WithBaseURL(u string) ORSOption { return func(o *ORSTravelMatrix) { o.baseURL = u } }

func WithCache(c ports.TravelTimeCache) ORSOption { return func(o *ORSTravelMatrix) { o.cache = c } }

func WithRetry(p retry.Policy) ORSOption { return func(o *ORSTravelMatrix) { o.retry = p } }

func WithLogger(l *zap.Logger) ORSOption { return func(o *ORSTravelMatrix) { o.logger = l } }

func NewORSTravelMatrix(apiKey string, opts ...ORSOption) (*ORSTravelMatrix, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	o := &ORSTravelMatrix{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		retry:   retry.Once,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Query computes durations in seconds from a single origin to many destinations.
func (o *ORSTravelMatrix) Query(
	ctx context.Context,
	origin domain.Location,
	destinations []domain.Location,
	mode domain.TravelMode,
) (_ []int, err error) {
	defer obs.Time(ctx, "ors.Query")(&err)

	if !origin.Valid() {
		return nil, fmt.Errorf("ORS query origin %v: %w", origin, domain.ErrMalformedCoordinates)
	}
	for i, d := range destinations {
		if !d.Valid() {
			return nil, fmt.Errorf("ORS query destination #%d %v: %w", i, d, domain.ErrMalformedCoordinates)
		}
	}

	profile, ok := orsProfiles[mode]
	if !ok {
		return nil, fmt.Errorf("ORS query: unsupported travel mode %q", mode)
	}

	out := make([]int, len(destinations))
	if len(destinations) == 0 {
		return out, nil
	}

	originKey := origin.Key()

	seen := make(map[string]struct{}, len(destinations))
	destKeys := make([]string, 0, len(destinations))
	locByKey := make(map[string]domain.Location, len(destinations))
	for _, d := range destinations {
		k := d.Key()
		if k == originKey {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		destKeys = append(destKeys, k)
		locByKey[k] = d
	}

	durations := make(map[string]int, len(destKeys))
	// Check persistent cache before issuing external API calls.
	if o.cache != nil && len(destKeys) > 0 {
		hits, err := o.cache.GetMany(ctx, originKey, destKeys, mode)
		if err != nil {
			o.logger.Warn("travel cache read failed", zap.Error(err))
		}
		for k, v := range hits {
			durations[k] = v
		}
	}

	misses := make([]string, 0, len(destKeys))
	for _, k := range destKeys {
		if _, ok := durations[k]; !ok {
			misses = append(misses, k)
		}
	}

	for start := 0; start < len(misses); start += maxDestinationsPerRequest {
		end := min(start+maxDestinationsPerRequest, len(misses))
		chunk := misses[start:end]

		locs := make([]domain.Location, 0, len(chunk))
		for _, k := range chunk {
			locs = append(locs, locByKey[k])
		}

		fetched, err := o.fetchMatrixRow(ctx, profile, origin, chunk, locs)
		if err != nil {
			return nil, fmt.Errorf("fetching matrix row: %w", err)
		}

		if o.cache != nil {
			if err := o.cache.PutMany(ctx, originKey, fetched, mode); err != nil {
				o.logger.Warn("travel cache write failed", zap.Error(err))
			}
		}

		for k, v := range fetched {
			durations[k] = v
		}
	}

	for i, d := range destinations {
		k := d.Key()
		if k == originKey {
			out[i] = 0
			continue
		}
		v, ok := durations[k]
		if !ok {
			return nil, fmt.Errorf("ORS matrix service did not return destination %q", k)
		}
		out[i] = v
	}

	return out, nil
}
