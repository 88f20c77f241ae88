package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Interval is a half-open-by-convention opening window [Open, Close] on one weekday.
// Close may exceed MinutesPerDay when a venue stays open past midnight.
type Interval struct {
	Open  Clock `json:"open"`
	Close Clock `json:"close"`
}

// OpeningHours holds per-weekday opening intervals indexed by time.Weekday.
// An empty list means closed all day. Intervals are kept sorted by Open.
type OpeningHours [7][]Interval

// AlwaysOpen returns hours covering every minute of every weekday.
func AlwaysOpen() OpeningHours {
	var h OpeningHours
	for d := range h {
		h[d] = []Interval{{Open: 0, Close: MinutesPerDay}}
	}
	return h
}

// Daily returns hours with the same single interval on every weekday.
func Daily(open, close Clock) OpeningHours {
	var h OpeningHours
	for d := range h {
		h[d] = []Interval{{Open: open, Close: close}}
	}
	return h
}

// Contains reports whether [start, end] lies inside one open interval on wd.
func (h OpeningHours) Contains(wd time.Weekday, start, end Clock) bool {
	for _, iv := range h[wd] {
		if iv.Open <= start && end <= iv.Close {
			return true
		}
	}
	return false
}

// EarliestStart finds the earliest visit start at or after arrive such that a stay
// of stay minutes fits in one open interval on wd, waiting at most maxWait minutes.
func (h OpeningHours) EarliestStart(wd time.Weekday, arrive Clock, stay, maxWait int) (Clock, bool) {
	for _, iv := range h[wd] {
		start := max(arrive, iv.Open)
		if int(start-arrive) > maxWait {
			continue
		}
		if start+Clock(stay) <= iv.Close {
			return start, true
		}
	}
	return 0, false
}

// NeverOpen reports whether the venue has no opening interval on any weekday.
func (h OpeningHours) NeverOpen() bool {
	for _, ivs := range h {
		if len(ivs) > 0 {
			return false
		}
	}
	return true
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseOpeningHours parses textual hours such as
//
//	"Mon-Fri 09:00-17:00, 18:00-22:00"
//	"Sat 10:00-02:00"
//	"Sun closed"
//	"Daily 08:00-20:00"
//
// into the weekday array. Later lines add to earlier ones.
func ParseOpeningHours(lines []string) (OpeningHours, error) {
	var h OpeningHours

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		daysPart, rangesPart, ok := strings.Cut(line, " ")
		if !ok {
			return h, fmt.Errorf("parse opening hours %q: expected '<days> <ranges>'", line)
		}

		days, err := parseWeekdays(daysPart)
		if err != nil {
			return h, fmt.Errorf("parse opening hours %q: %w", line, err)
		}

		rangesPart = strings.TrimSpace(rangesPart)
		if strings.EqualFold(rangesPart, "closed") {
			continue
		}

		for _, r := range strings.Split(rangesPart, ",") {
			openStr, closeStr, ok := strings.Cut(strings.TrimSpace(r), "-")
			if !ok {
				return h, fmt.Errorf("parse opening hours %q: range %q: expected HH:MM-HH:MM", line, r)
			}
			open, err := ParseClock(openStr)
			if err != nil {
				return h, fmt.Errorf("parse opening hours %q: %w", line, err)
			}
			closeAt, err := ParseClock(closeStr)
			if err != nil {
				return h, fmt.Errorf("parse opening hours %q: %w", line, err)
			}
			if closeAt <= open {
				closeAt += MinutesPerDay
			}

			for _, d := range days {
				h[d] = append(h[d], Interval{Open: open, Close: closeAt})
			}
		}
	}

	for d := range h {
		slices.SortFunc(h[d], func(a, b Interval) int { return int(a.Open - b.Open) })
	}

	return h, nil
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "daily" {
		return []time.Weekday{0, 1, 2, 3, 4, 5, 6}, nil
	}

	from, to, isRange := strings.Cut(s, "-")
	start, ok := weekdayNames[from]
	if !ok {
		return nil, fmt.Errorf("unknown weekday %q", from)
	}
	if !isRange {
		return []time.Weekday{start}, nil
	}

	end, ok := weekdayNames[to]
	if !ok {
		return nil, fmt.Errorf("unknown weekday %q", to)
	}

	out := []time.Weekday{start}
	for d := start; d != end; {
		d = (d + 1) % 7
		out = append(out, d)
	}
	return out, nil
}
