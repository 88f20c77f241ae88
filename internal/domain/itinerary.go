package domain

import (
	"fmt"
	"time"
)

// Window is the usable time span of one day.
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Slack returns the minutes left in the window after from.
func (w Window) Slack(from Clock) int { return int(w.End - from) }

// Visit is a single timed stop within a Day.
type Visit struct {
	PlaceID       string `json:"place_id"`
	Name          string `json:"name"`
	ETA           Clock  `json:"eta"`
	ETD           Clock  `json:"etd"`
	StayMinutes   int    `json:"stay_minutes"`
	TravelMinutes int    `json:"travel_minutes"`
}

// Day is one calendar day of the itinerary.
// Anchor is the starting location; Accommodation is where the night is spent.
type Day struct {
	Number        int        `json:"day"`
	Date          time.Time  `json:"date"`
	Window        Window     `json:"window"`
	Anchor        Location   `json:"anchor"`
	Visits        []Visit    `json:"visits"`
	Accommodation *Candidate `json:"accommodation,omitempty"`
}

// TravelMinutes is the sum of all travel legs of the day.
func (d Day) TravelMinutes() int {
	total := 0
	for _, v := range d.Visits {
		total += v.TravelMinutes
	}
	return total
}

// PlaceIDs returns the visit sequence as candidate ids.
func (d Day) PlaceIDs() []string {
	ids := make([]string, 0, len(d.Visits))
	for _, v := range d.Visits {
		ids = append(ids, v.PlaceID)
	}
	return ids
}

// Itinerary is the ordered list of days produced for a trip.
type Itinerary struct {
	Days []Day `json:"days"`
}

// Clone returns a deep copy safe to mutate without affecting the receiver.
func (it Itinerary) Clone() Itinerary {
	out := Itinerary{Days: make([]Day, len(it.Days))}
	for i, d := range it.Days {
		cp := d
		cp.Visits = make([]Visit, len(d.Visits))
		copy(cp.Visits, d.Visits)
		if d.Accommodation != nil {
			acc := *d.Accommodation
			acc.Tags = append([]string(nil), d.Accommodation.Tags...)
			cp.Accommodation = &acc
		}
		out.Days[i] = cp
	}
	return out
}

// Day returns a pointer to the day with the given 1-based number.
func (it *Itinerary) Day(number int) (*Day, bool) {
	if number < 1 || number > len(it.Days) {
		return nil, false
	}
	return &it.Days[number-1], true
}

// UsedIDs returns every candidate id scheduled anywhere in the itinerary,
// including accommodations.
func (it Itinerary) UsedIDs() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, d := range it.Days {
		for _, v := range d.Visits {
			add(v.PlaceID)
		}
		if d.Accommodation != nil {
			add(d.Accommodation.ID)
		}
	}
	return out
}

// TravelMinutes is the total travel across all days.
func (it Itinerary) TravelMinutes() int {
	total := 0
	for _, d := range it.Days {
		total += d.TravelMinutes()
	}
	return total
}

// CheckInvariants verifies ordering, travel gaps, opening hours, day windows,
// contiguous day numbering and candidate uniqueness. places must contain every
// scheduled candidate.
func CheckInvariants(it Itinerary, places map[string]Candidate) error {
	seen := make(map[string]int)

	for i, d := range it.Days {
		if d.Number != i+1 {
			return fmt.Errorf("day at index %d has number %d", i, d.Number)
		}

		wd := d.Date.Weekday()
		for j, v := range d.Visits {
			c, ok := places[v.PlaceID]
			if !ok {
				return fmt.Errorf("day %d visit %d: unknown place %q", d.Number, j, v.PlaceID)
			}
			if v.ETD != v.ETA+Clock(v.StayMinutes) || v.StayMinutes <= 0 {
				return fmt.Errorf("day %d visit %d: etd %s does not match eta %s + stay %d", d.Number, j, v.ETD, v.ETA, v.StayMinutes)
			}
			if !c.Hours.Contains(wd, v.ETA, v.ETD) {
				return fmt.Errorf("day %d visit %d: %q closed during %s-%s", d.Number, j, v.PlaceID, v.ETA, v.ETD)
			}

			if j == 0 {
				if v.ETA < d.Window.Start {
					return fmt.Errorf("day %d: first eta %s before window start %s", d.Number, v.ETA, d.Window.Start)
				}
			} else {
				prev := d.Visits[j-1]
				if prev.ETA >= v.ETA {
					return fmt.Errorf("day %d visit %d: eta %s not after previous eta %s", d.Number, j, v.ETA, prev.ETA)
				}
				if prev.ETD+Clock(v.TravelMinutes) > v.ETA {
					return fmt.Errorf("day %d visit %d: arrives %s after eta %s", d.Number, j, prev.ETD+Clock(v.TravelMinutes), v.ETA)
				}
			}
			if j == len(d.Visits)-1 && v.ETD > d.Window.End {
				return fmt.Errorf("day %d: last etd %s after window end %s", d.Number, v.ETD, d.Window.End)
			}

			if other, dup := seen[v.PlaceID]; dup {
				return fmt.Errorf("place %q scheduled on day %d and day %d", v.PlaceID, other, d.Number)
			}
			seen[v.PlaceID] = d.Number
		}
	}

	return nil
}
