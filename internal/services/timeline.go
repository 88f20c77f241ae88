package services

import (
	"errors"
	"fmt"

	"trip-planner-service/internal/domain"
)

var errInfeasibleSequence = errors.New("sequence violates opening hours or the day window")

// scheduleSequence recomputes the eta/etd chain of seq from the day's anchor
// and window start. Visits may wait for an opening as long as the window
// allows. It returns the visits and the total travel including the leg from
// the anchor; errInfeasibleSequence means the order cannot be timed.
func scheduleSequence(day domain.Day, seq []domain.Candidate, legs Legs) ([]domain.Visit, int, error) {
	wd := day.Date.Weekday()
	maxWait := int(day.Window.End - day.Window.Start)

	visits := make([]domain.Visit, 0, len(seq))
	current := day.Window.Start
	prev := anchorNode
	total := 0

	for i, c := range seq {
		travel, ok := legs.Minutes(prev, c.ID)
		if !ok {
			return nil, 0, fmt.Errorf("schedule sequence: missing leg %q -> %q", prev, c.ID)
		}
		if c.StayMinutes <= 0 {
			return nil, 0, errInfeasibleSequence
		}

		eta, ok := c.Hours.EarliestStart(wd, current+domain.Clock(travel), c.StayMinutes, maxWait)
		if !ok {
			return nil, 0, errInfeasibleSequence
		}
		etd := eta + domain.Clock(c.StayMinutes)
		if etd > day.Window.End {
			return nil, 0, errInfeasibleSequence
		}

		leg := travel
		if i == 0 {
			leg = 0
		}
		visits = append(visits, domain.Visit{
			PlaceID:       c.ID,
			Name:          c.Name,
			ETA:           eta,
			ETD:           etd,
			StayMinutes:   c.StayMinutes,
			TravelMinutes: leg,
		})

		total += travel
		current = etd
		prev = c.ID
	}

	return visits, total, nil
}

// sequenceOf resolves the day's visits into candidates.
func sequenceOf(day domain.Day, places map[string]domain.Candidate) ([]domain.Candidate, error) {
	seq := make([]domain.Candidate, 0, len(day.Visits))
	for _, v := range day.Visits {
		c, ok := places[v.PlaceID]
		if !ok {
			return nil, fmt.Errorf("day %d: unknown place %q", day.Number, v.PlaceID)
		}
		seq = append(seq, c)
	}
	return seq, nil
}
