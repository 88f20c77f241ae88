package distance

import (
	"context"
	"fmt"
	"math"

	"trip-planner-service/internal/domain"
)

// HaversineMatrix estimates travel durations from great-circle distance,
// a detour factor and a per-mode average speed. It never calls the network.
type HaversineMatrix struct {
	speeds domain.FallbackSpeeds
}

func NewHaversineMatrix(speeds domain.FallbackSpeeds) *HaversineMatrix {
	return &HaversineMatrix{speeds: speeds}
}

func (h *HaversineMatrix) Query(
	_ context.Context,
	origin domain.Location,
	destinations []domain.Location,
	mode domain.TravelMode,
) ([]int, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("haversine origin %v: %w", origin, domain.ErrMalformedCoordinates)
	}

	kmh := h.speeds.KmhFor(mode)
	if kmh <= 0 {
		return nil, fmt.Errorf("haversine: no positive speed configured for mode %q", mode)
	}
	detour := math.Max(h.speeds.DetourFactor, 1)
	metersPerSecond := kmh * 1000 / 3600

	out := make([]int, len(destinations))
	for i, d := range destinations {
		if !d.Valid() {
			return nil, fmt.Errorf("haversine destination #%d %v: %w", i, d, domain.ErrMalformedCoordinates)
		}
		meters := origin.DistanceMeters(d) * detour
		out[i] = int(math.Ceil(meters / metersPerSecond))
	}

	return out, nil
}
