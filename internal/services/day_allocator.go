package services

import (
	"trip-planner-service/internal/domain"
)

// AllocateDays splits the trip into calendar days with their windows and
// anchors. lodging, when set, is the accommodation for nights 1..N-1; day k+1
// starts from it and every other day starts from the trip origin.
//
// A window whose start is not before its end stays in place and simply
// yields an empty day.
func AllocateDays(spec domain.TripSpecification, lodging *domain.Candidate) []domain.Day {
	days := make([]domain.Day, spec.Days)

	for i := range days {
		window := domain.Window{Start: spec.DayStart, End: spec.DayEnd}
		if i == 0 && spec.Arrival != nil {
			window.Start = max(window.Start, *spec.Arrival)
		}
		if i == spec.Days-1 && spec.Departure != nil {
			window.End = min(window.End, *spec.Departure)
		}

		day := domain.Day{
			Number: i + 1,
			Date:   spec.StartDate.AddDate(0, 0, i),
			Window: window,
			Anchor: spec.Origin,
			Visits: []domain.Visit{},
		}

		if i > 0 && days[i-1].Accommodation != nil {
			day.Anchor = days[i-1].Accommodation.Location
		}
		if lodging != nil && i < spec.Days-1 {
			acc := *lodging
			day.Accommodation = &acc
		}

		days[i] = day
	}

	return days
}

// SelectLodging returns the highest-ranked accommodation within the budget
// tier, or nil. cands is expected in CandidateSource rank order.
func SelectLodging(cands []domain.Candidate, budgetTier int) *domain.Candidate {
	for _, c := range cands {
		if c.Kind != domain.KindAccommodation || !c.Location.Valid() {
			continue
		}
		if budgetTier > 0 && c.PriceTier > budgetTier {
			continue
		}
		lodging := c
		return &lodging
	}
	return nil
}
