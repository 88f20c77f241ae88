package domain

import "slices"

type CandidateKind string

const (
	KindPlace         CandidateKind = "place"
	KindAccommodation CandidateKind = "accommodation"
)

// Candidate is a place or accommodation eligible for scheduling.
// Candidates are produced by a CandidateSource and treated as read-only.
type Candidate struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        CandidateKind `json:"kind"`
	Location    Location      `json:"location"`
	Tags        []string      `json:"tags"`
	Rating      float64       `json:"rating"`
	PriceTier   int           `json:"price_tier"`
	StayMinutes int           `json:"stay_minutes"`
	Hours       OpeningHours  `json:"hours"`
	Popularity  float64       `json:"popularity"`
}

// PrimaryCategory is the first tag, used for per-day category quotas.
func (c Candidate) PrimaryCategory() string {
	if len(c.Tags) == 0 {
		return ""
	}
	return c.Tags[0]
}

// InterestMatch returns the fraction of interests present in the candidate's tags.
func (c Candidate) InterestMatch(interests []string) float64 {
	if len(interests) == 0 {
		return 0
	}
	hits := 0
	for _, in := range interests {
		if slices.Contains(c.Tags, in) {
			hits++
		}
	}
	return float64(hits) / float64(len(interests))
}
