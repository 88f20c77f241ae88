package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"trip-planner-service/internal/domain"
)

// maxAlternatives bounds how many returned candidates Replace and Add try
// before giving up.
const maxAlternatives = 8

// mutation is the working copy of one feedback op. Nothing in it is shared
// with the stored session.
type mutation struct {
	engine    *FeedbackEngine
	spec      domain.TripSpecification
	itinerary domain.Itinerary
	places    map[string]domain.Candidate
	dirty     map[int]struct{}
}

func (m *mutation) apply(ctx context.Context, op domain.FeedbackOp) error {
	switch o := op.(type) {
	case domain.Drop:
		return m.drop(ctx, o)
	case domain.Replace:
		return m.replace(ctx, o)
	case domain.Move:
		return m.move(ctx, o)
	case domain.Add:
		return m.add(ctx, o)
	default:
		return domain.NewValidationError(domain.ReasonInvalidOp, fmt.Sprintf("unsupported op %T", op))
	}
}

func (m *mutation) visitAt(dayNumber, index int) (*domain.Day, error) {
	day, ok := m.itinerary.Day(dayNumber)
	if !ok {
		return nil, domain.NewValidationError(domain.ReasonNotFound, fmt.Sprintf("day %d does not exist", dayNumber))
	}
	if index < 0 || index >= len(day.Visits) {
		return nil, domain.NewValidationError(domain.ReasonNotFound,
			fmt.Sprintf("day %d has no visit at index %d", dayNumber, index))
	}
	return day, nil
}

func (m *mutation) drop(ctx context.Context, o domain.Drop) error {
	day, err := m.visitAt(o.Day, o.VisitIndex)
	if err != nil {
		return err
	}

	seq, err := sequenceOf(*day, m.places)
	if err != nil {
		return err
	}
	seq = slices.Delete(seq, o.VisitIndex, o.VisitIndex+1)

	if err := m.retime(ctx, day, seq); err != nil {
		return err
	}
	m.dirty[day.Number] = struct{}{}
	return nil
}

func (m *mutation) replace(ctx context.Context, o domain.Replace) error {
	day, err := m.visitAt(o.Day, o.VisitIndex)
	if err != nil {
		return err
	}

	// Used ids still include the visit being replaced.
	alternatives, err := m.search(ctx, o.Criteria)
	if err != nil {
		return err
	}
	if len(alternatives) == 0 {
		return domain.NewInfeasibleError(domain.ReasonNoAlternative, "no candidate matches the criteria")
	}

	seq, err := sequenceOf(*day, m.places)
	if err != nil {
		return err
	}

	for _, alt := range alternatives {
		trial := slices.Clone(seq)
		trial[o.VisitIndex] = alt

		legs, err := m.legs(ctx, day.Anchor, trial)
		if err != nil {
			return err
		}
		visits, _, err := scheduleSequence(*day, trial, legs)
		if errors.Is(err, errInfeasibleSequence) {
			continue
		}
		if err != nil {
			return err
		}

		m.places[alt.ID] = alt
		day.Visits = visits
		m.dirty[day.Number] = struct{}{}
		return nil
	}

	return domain.NewInfeasibleError(domain.ReasonNoAlternative, "no alternative fits the visit's slot")
}

func (m *mutation) move(ctx context.Context, o domain.Move) error {
	src, err := m.visitAt(o.Day, o.VisitIndex)
	if err != nil {
		return err
	}
	dst, ok := m.itinerary.Day(o.TargetDay)
	if !ok {
		return domain.NewValidationError(domain.ReasonNotFound, fmt.Sprintf("target day %d does not exist", o.TargetDay))
	}

	srcSeq, err := sequenceOf(*src, m.places)
	if err != nil {
		return err
	}
	moved := srcSeq[o.VisitIndex]
	srcSeq = slices.Delete(srcSeq, o.VisitIndex, o.VisitIndex+1)

	dstSeq := srcSeq
	if dst.Number != src.Number {
		dstSeq, err = sequenceOf(*dst, m.places)
		if err != nil {
			return err
		}
		if err := m.retime(ctx, src, srcSeq); err != nil {
			return err
		}
	}

	legs, err := m.legs(ctx, dst.Anchor, append(slices.Clone(dstSeq), moved))
	if err != nil {
		return err
	}

	for _, idx := range nearestIndices(o.TargetIndex, len(dstSeq)) {
		trial := slices.Insert(slices.Clone(dstSeq), idx, moved)
		visits, _, err := scheduleSequence(*dst, trial, legs)
		if errors.Is(err, errInfeasibleSequence) {
			continue
		}
		if err != nil {
			return err
		}

		dst.Visits = visits
		m.dirty[src.Number] = struct{}{}
		m.dirty[dst.Number] = struct{}{}
		return nil
	}

	return domain.NewInfeasibleError(domain.ReasonInfeasibleTarget,
		fmt.Sprintf("%q does not fit anywhere on day %d", moved.ID, dst.Number))
}

func (m *mutation) add(ctx context.Context, o domain.Add) error {
	day, ok := m.itinerary.Day(o.Day)
	if !ok {
		return domain.NewValidationError(domain.ReasonNotFound, fmt.Sprintf("day %d does not exist", o.Day))
	}
	if o.TargetIndex > len(day.Visits) {
		return domain.NewValidationError(domain.ReasonNotFound,
			fmt.Sprintf("day %d has no position %d", o.Day, o.TargetIndex))
	}

	alternatives, err := m.search(ctx, o.Criteria)
	if err != nil {
		return err
	}
	if len(alternatives) == 0 {
		return domain.NewInfeasibleError(domain.ReasonInfeasibleInsert, "no candidate matches the criteria")
	}

	seq, err := sequenceOf(*day, m.places)
	if err != nil {
		return err
	}

	for _, alt := range alternatives {
		legs, err := m.legs(ctx, day.Anchor, append(slices.Clone(seq), alt))
		if err != nil {
			return err
		}

		positions := []int{o.TargetIndex}
		if o.TargetIndex < 0 {
			positions = make([]int, 0, len(seq)+1)
			for i := 0; i <= len(seq); i++ {
				positions = append(positions, i)
			}
		}

		var (
			best       []domain.Visit
			bestTravel int
		)
		for _, idx := range positions {
			trial := slices.Insert(slices.Clone(seq), idx, alt)
			visits, travel, err := scheduleSequence(*day, trial, legs)
			if errors.Is(err, errInfeasibleSequence) {
				continue
			}
			if err != nil {
				return err
			}
			if best == nil || travel < bestTravel {
				best, bestTravel = visits, travel
			}
		}
		if best == nil {
			continue
		}

		m.places[alt.ID] = alt
		day.Visits = best
		m.dirty[day.Number] = struct{}{}
		return nil
	}

	return domain.NewInfeasibleError(domain.ReasonInfeasibleInsert,
		fmt.Sprintf("no matching candidate fits day %d", day.Number))
}

// search asks the candidate source for places matching cr that are not yet
// in the itinerary, in source rank order.
func (m *mutation) search(ctx context.Context, cr domain.Criteria) ([]domain.Candidate, error) {
	used := m.itinerary.UsedIDs()

	cands, err := m.engine.source.Search(ctx, m.spec, used)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewConcurrencyTimeoutError(domain.ReasonOpTimeout, "op timed out searching candidates")
		}
		return nil, fmt.Errorf("apply feedback: search candidates: %w", err)
	}

	out := make([]domain.Candidate, 0, maxAlternatives)
	for _, c := range cands {
		if len(out) == maxAlternatives {
			break
		}
		if slices.Contains(used, c.ID) || !cr.Matches(c) {
			continue
		}
		if c.StayMinutes <= 0 || !c.Location.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mutation) legs(ctx context.Context, anchor domain.Location, stops []domain.Candidate) (Legs, error) {
	legs, err := FetchLegs(ctx, m.engine.matrix, m.spec.Mode, anchor, stops, m.engine.policy.Workers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewConcurrencyTimeoutError(domain.ReasonOpTimeout, "op timed out fetching travel times")
		}
		return nil, fmt.Errorf("apply feedback: %w", err)
	}
	return legs, nil
}

// retime recomputes day's visits for seq from its anchor.
func (m *mutation) retime(ctx context.Context, day *domain.Day, seq []domain.Candidate) error {
	legs, err := m.legs(ctx, day.Anchor, seq)
	if err != nil {
		return err
	}
	visits, _, err := scheduleSequence(*day, seq, legs)
	if errors.Is(err, errInfeasibleSequence) {
		return domain.NewInfeasibleError(domain.ReasonInvariantViolation,
			fmt.Sprintf("day %d can no longer be timed", day.Number))
	}
	if err != nil {
		return err
	}
	day.Visits = visits
	return nil
}

// nearestIndices lists insertion positions 0..n ordered by distance from
// target, lower index first on ties.
func nearestIndices(target, n int) []int {
	target = min(max(target, 0), n)
	out := []int{target}
	for d := 1; len(out) < n+1; d++ {
		if target-d >= 0 {
			out = append(out, target-d)
		}
		if target+d <= n {
			out = append(out, target+d)
		}
	}
	return out
}
