package ports

import (
	"context"
	"trip-planner-service/internal/domain"
)

// Contract for retrieving travel durations from one origin to many destinations.
type TravelTimeMatrix interface {
	// Return travel durations in seconds, parallel to destinations.
	// Malformed coordinates fail closed with domain.ErrMalformedCoordinates.
	Query(ctx context.Context, origin domain.Location, destinations []domain.Location, mode domain.TravelMode) ([]int, error)
}

// Persistent cache of origin -> destination travel durations in seconds.
type TravelTimeCache interface {
	GetMany(ctx context.Context, origin string, destinations []string, mode domain.TravelMode) (map[string]int, error)
	PutMany(ctx context.Context, origin string, results map[string]int, mode domain.TravelMode) error
}
