package dto

import (
	"fmt"
	"strings"
	"time"

	"trip-planner-service/internal/domain"
)

const dateLayout = "2006-01-02"

type LocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

// TripRequest is the JSON body of POST /itineraries. Times are "HH:MM".
type TripRequest struct {
	Destination string          `json:"destination" validate:"required"`
	StartDate   string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	Days        int             `json:"days" validate:"required,min=1,max=30"`
	Interests   []string        `json:"interests" validate:"dive,required"`
	BudgetTier  int             `json:"budget_tier" validate:"omitempty,min=1,max=4"`
	Pace        string          `json:"pace" validate:"omitempty,oneof=relaxed moderate packed"`
	DayStart    string          `json:"day_start"`
	DayEnd      string          `json:"day_end"`
	Travelers   int             `json:"travelers" validate:"omitempty,min=1"`
	Origin      LocationRequest `json:"origin" validate:"required"`
	Arrival     string          `json:"arrival,omitempty"`
	Departure   string          `json:"departure,omitempty"`
	Mode        string          `json:"mode" validate:"omitempty,oneof=walking driving cycling"`
}

// ToSpec converts the request into a trip specification. Day start and end
// default to 09:00 and 18:00.
func (r TripRequest) ToSpec() (domain.TripSpecification, error) {
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return domain.TripSpecification{}, fmt.Errorf("start_date: %w", err)
	}

	dayStart, err := clockOr(r.DayStart, 9*60)
	if err != nil {
		return domain.TripSpecification{}, fmt.Errorf("day_start: %w", err)
	}
	dayEnd, err := clockOr(r.DayEnd, 18*60)
	if err != nil {
		return domain.TripSpecification{}, fmt.Errorf("day_end: %w", err)
	}

	spec := domain.TripSpecification{
		Destination: strings.TrimSpace(r.Destination),
		StartDate:   start,
		Days:        r.Days,
		Interests:   r.Interests,
		BudgetTier:  r.BudgetTier,
		Pace:        domain.Pace(r.Pace),
		DayStart:    dayStart,
		DayEnd:      dayEnd,
		Travelers:   r.Travelers,
		Mode:        domain.TravelMode(r.Mode),
	}
	if r.Origin.Lat != nil && r.Origin.Lon != nil {
		spec.Origin = domain.Location{Lat: *r.Origin.Lat, Lon: *r.Origin.Lon}
	}

	if r.Arrival != "" {
		c, err := domain.ParseClock(r.Arrival)
		if err != nil {
			return domain.TripSpecification{}, fmt.Errorf("arrival: %w", err)
		}
		spec.Arrival = &c
	}
	if r.Departure != "" {
		c, err := domain.ParseClock(r.Departure)
		if err != nil {
			return domain.TripSpecification{}, fmt.Errorf("departure: %w", err)
		}
		spec.Departure = &c
	}

	return spec, nil
}

func clockOr(s string, fallback domain.Clock) (domain.Clock, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return domain.ParseClock(s)
}
