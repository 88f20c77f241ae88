package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/ports"
)

// anchorNode keys the day's starting location in a leg table.
const anchorNode = "@anchor"

// Legs holds directed travel minutes between the anchor and a day's stops.
type Legs map[string]map[string]int

func (l Legs) Minutes(from, to string) (int, bool) {
	row, ok := l[from]
	if !ok {
		return 0, false
	}
	m, ok := row[to]
	return m, ok
}

func (l Legs) set(from, to string, minutes int) {
	row, ok := l[from]
	if !ok {
		row = make(map[string]int)
		l[from] = row
	}
	row[to] = minutes
}

// secondsToMinutes rounds up so a schedule never underestimates travel.
func secondsToMinutes(s int) int {
	if s <= 0 {
		return 0
	}
	return (s + 59) / 60
}

// FetchLegs queries the anchor -> stop and stop -> stop legs for a set of stops.
// Rows are fetched concurrently, bounded by workers.
func FetchLegs(
	ctx context.Context,
	matrix ports.TravelTimeMatrix,
	mode domain.TravelMode,
	anchor domain.Location,
	stops []domain.Candidate,
	workers int,
) (Legs, error) {
	legs := make(Legs, len(stops)+1)
	if len(stops) == 0 {
		return legs, nil
	}

	type origin struct {
		id  string
		loc domain.Location
	}
	origins := make([]origin, 0, len(stops)+1)
	origins = append(origins, origin{id: anchorNode, loc: anchor})
	for _, s := range stops {
		origins = append(origins, origin{id: s.ID, loc: s.Location})
	}

	rows := make([][]int, len(origins))
	targets := make([][]domain.Candidate, len(origins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, o := range origins {
		dests := make([]domain.Candidate, 0, len(stops))
		for _, s := range stops {
			if s.ID != o.id {
				dests = append(dests, s)
			}
		}
		targets[i] = dests
		if len(dests) == 0 {
			continue
		}

		g.Go(func() error {
			locs := make([]domain.Location, len(dests))
			for k, d := range dests {
				locs[k] = d.Location
			}
			secs, err := matrix.Query(gctx, o.loc, locs, mode)
			if err != nil {
				return fmt.Errorf("fetch legs: query from %q: %w", o.id, err)
			}
			if len(secs) != len(dests) {
				return fmt.Errorf("fetch legs: query from %q returned %d durations, want %d", o.id, len(secs), len(dests))
			}
			rows[i] = secs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, o := range origins {
		for k, d := range targets[i] {
			legs.set(o.id, d.ID, secondsToMinutes(rows[i][k]))
		}
	}

	return legs, nil
}
