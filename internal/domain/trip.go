package domain

import (
	"fmt"
	"strings"
	"time"
)

type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PacePacked   Pace = "packed"
)

type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeDriving TravelMode = "driving"
	ModeCycling TravelMode = "cycling"
)

// TripSpecification holds the structured trip parameters produced upstream.
// It is validated once at ingestion and never mutated afterwards.
type TripSpecification struct {
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"start_date"`
	Days        int        `json:"days"`
	Interests   []string   `json:"interests"`
	BudgetTier  int        `json:"budget_tier"`
	Pace        Pace       `json:"pace"`
	DayStart    Clock      `json:"day_start"`
	DayEnd      Clock      `json:"day_end"`
	Travelers   int        `json:"travelers"`
	Origin      Location   `json:"origin"`
	Arrival     *Clock     `json:"arrival,omitempty"`
	Departure   *Clock     `json:"departure,omitempty"`
	Mode        TravelMode `json:"mode"`
}

// MaxTripDays bounds a single planning request.
const MaxTripDays = 30

// Validate checks the specification and fills defaults for optional fields.
func (s *TripSpecification) Validate() error {
	if strings.TrimSpace(s.Destination) == "" {
		return NewValidationError(ReasonInvalidSpec, "destination must be non-empty")
	}
	if s.StartDate.IsZero() {
		return NewValidationError(ReasonInvalidSpec, "start date is required")
	}
	if s.Days < 1 || s.Days > MaxTripDays {
		return NewValidationError(ReasonInvalidSpec, fmt.Sprintf("days must be between 1 and %d", MaxTripDays))
	}
	if s.DayStart < 0 || s.DayEnd > MinutesPerDay || s.DayStart >= s.DayEnd {
		return NewValidationError(ReasonInvalidSpec, fmt.Sprintf("daily window %s-%s is invalid", s.DayStart, s.DayEnd))
	}
	if !s.Origin.Valid() {
		return NewValidationError(ReasonInvalidSpec, "origin coordinates are malformed")
	}
	if s.BudgetTier == 0 {
		s.BudgetTier = 4
	}
	if s.BudgetTier < 1 || s.BudgetTier > 4 {
		return NewValidationError(ReasonInvalidSpec, "budget tier must be between 1 and 4")
	}
	if s.Travelers == 0 {
		s.Travelers = 1
	}
	if s.Travelers < 0 {
		return NewValidationError(ReasonInvalidSpec, "travelers must be positive")
	}

	switch s.Pace {
	case "":
		s.Pace = PaceModerate
	case PaceRelaxed, PaceModerate, PacePacked:
	default:
		return NewValidationError(ReasonInvalidSpec, fmt.Sprintf("unknown pace %q", s.Pace))
	}

	switch s.Mode {
	case "":
		s.Mode = ModeWalking
	case ModeWalking, ModeDriving, ModeCycling:
	default:
		return NewValidationError(ReasonInvalidSpec, fmt.Sprintf("unknown travel mode %q", s.Mode))
	}

	if s.Arrival != nil && (*s.Arrival < 0 || *s.Arrival > MinutesPerDay) {
		return NewValidationError(ReasonInvalidSpec, "arrival time out of range")
	}
	if s.Departure != nil && (*s.Departure < 0 || *s.Departure > MinutesPerDay) {
		return NewValidationError(ReasonInvalidSpec, "departure time out of range")
	}

	y, m, d := s.StartDate.Date()
	s.StartDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return nil
}
