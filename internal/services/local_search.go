package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/ports"
)

// OptimizeStats describes one optimizer run. Travel totals include the leg
// from the day's anchor to the first visit.
type OptimizeStats struct {
	Evaluations  int
	Accepted     int
	TravelBefore int
	TravelAfter  int
}

// LocalSearchOptimizer shortens a day's travel with first-improvement 2-opt.
type LocalSearchOptimizer struct {
	matrix  ports.TravelTimeMatrix
	workers int
}

func NewLocalSearchOptimizer(matrix ports.TravelTimeMatrix, workers int) *LocalSearchOptimizer {
	return &LocalSearchOptimizer{matrix: matrix, workers: workers}
}

// OptimizeDay fetches the day's leg table and runs TwoOpt over it. A day with
// fewer than two visits, or one no move improves, is returned unchanged.
func (o *LocalSearchOptimizer) OptimizeDay(
	ctx context.Context,
	day domain.Day,
	places map[string]domain.Candidate,
	mode domain.TravelMode,
) (_ domain.Day, stats OptimizeStats, err error) {
	ctx, end := obs.Start(ctx, "optimizer.OptimizeDay")
	defer end(&err)

	if len(day.Visits) < 2 {
		return day, stats, nil
	}

	seq, err := sequenceOf(day, places)
	if err != nil {
		return day, stats, fmt.Errorf("optimize day: %w", err)
	}

	legs, err := FetchLegs(ctx, o.matrix, mode, day.Anchor, seq, o.workers)
	if err != nil {
		return day, stats, fmt.Errorf("optimize day %d: %w", day.Number, err)
	}

	return TwoOpt(day, seq, legs)
}

// TwoOpt repeatedly reverses a sub-sequence [i..j] and keeps the first
// reversal whose recomputed chain is feasible and strictly shortens total
// travel. It stops at a local optimum or after 2·N² evaluated pairs.
func TwoOpt(day domain.Day, seq []domain.Candidate, legs Legs) (domain.Day, OptimizeStats, error) {
	var stats OptimizeStats

	n := len(seq)
	if n < 2 {
		return day, stats, nil
	}

	bestVisits, best, err := scheduleSequence(day, seq, legs)
	if errors.Is(err, errInfeasibleSequence) {
		// Nothing to compare against; leave the day as built.
		return day, stats, nil
	}
	if err != nil {
		return day, stats, fmt.Errorf("two-opt day %d: %w", day.Number, err)
	}
	stats.TravelBefore = best
	stats.TravelAfter = best

	limit := 2 * n * n
	current := slices.Clone(seq)

	for improved := true; improved && stats.Evaluations < limit; {
		improved = false

	scan:
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				if stats.Evaluations >= limit {
					break scan
				}
				stats.Evaluations++

				cand := slices.Clone(current)
				slices.Reverse(cand[i : j+1])

				visits, travel, err := scheduleSequence(day, cand, legs)
				if errors.Is(err, errInfeasibleSequence) {
					continue
				}
				if err != nil {
					return day, stats, fmt.Errorf("two-opt day %d: %w", day.Number, err)
				}

				if travel < best {
					current = cand
					best = travel
					bestVisits = visits
					stats.Accepted++
					improved = true
					break scan
				}
			}
		}
	}

	stats.TravelAfter = best
	if stats.Accepted == 0 {
		return day, stats, nil
	}

	day.Visits = bestVisits
	return day, stats, nil
}
