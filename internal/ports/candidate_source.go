package ports

import (
	"context"
	"trip-planner-service/internal/domain"
)

// Port: a boundary for retrieving ranked candidates for a trip.
type CandidateSource interface {
	// Return ranked places and accommodations, skipping excludeIDs. May be empty.
	Search(ctx context.Context, spec domain.TripSpecification, excludeIDs []string) ([]domain.Candidate, error)
}
