package services

import (
	"context"
	"time"

	"trip-planner-service/internal/adapters/distance"
	"trip-planner-service/internal/domain"
)

// monday is the start date used by fixtures; day 2 is a Tuesday.
var monday = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

// lineLocation places a point on an east-west line; one unit is ten minutes of travel.
func lineLocation(x int) domain.Location {
	return domain.Location{Lat: 48.80, Lon: 2.30 + 0.01*float64(x)}
}

// lineMatrix builds a mock matrix where travel between any two of the
// given points is |x1-x2| * 10 minutes.
func lineMatrix(xs ...int) *distance.MockTravelMatrix {
	pairs := make([]distance.MockPair, 0, len(xs)*len(xs))
	for _, a := range xs {
		for _, b := range xs {
			if a == b {
				continue
			}
			d := a - b
			if d < 0 {
				d = -d
			}
			pairs = append(pairs, distance.MockPair{From: lineLocation(a), To: lineLocation(b), Seconds: d * 600})
		}
	}
	return distance.NewMockTravelMatrix(pairs)
}

func place(id string, x, stay int, hours domain.OpeningHours, tags ...string) domain.Candidate {
	return domain.Candidate{
		ID:          id,
		Name:        "Place " + id,
		Kind:        domain.KindPlace,
		Location:    lineLocation(x),
		Tags:        tags,
		Rating:      4,
		PriceTier:   1,
		StayMinutes: stay,
		Hours:       hours,
	}
}

func clock(h, m int) domain.Clock { return domain.Clock(h*60 + m) }

// stubSource returns a fixed candidate list and ignores exclusions.
type stubSource struct {
	cands []domain.Candidate
}

func (s stubSource) Search(context.Context, domain.TripSpecification, []string) ([]domain.Candidate, error) {
	return s.cands, nil
}

func testPolicy() domain.PlanningPolicy {
	p := domain.DefaultPolicy()
	p.OpTimeout = 2 * time.Second
	return p
}
