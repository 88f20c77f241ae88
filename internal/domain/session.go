package domain

import "time"

// Session is the unit of state owned by one planning conversation.
// Version increases by one on every committed mutation.
type Session struct {
	ID        string               `json:"id"`
	Version   int64                `json:"version"`
	Spec      TripSpecification    `json:"spec"`
	Itinerary Itinerary            `json:"itinerary"`
	Places    map[string]Candidate `json:"places"`
	// Degraded marks an itinerary planned without any candidate places,
	// usually because the candidate source was unavailable.
	Degraded  bool      `json:"degraded,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
