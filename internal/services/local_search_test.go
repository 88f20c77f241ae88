package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/domain"
)

// lineLegs builds a leg table for stops on a line with the anchor at x=0.
func lineLegs(stops map[string]int) Legs {
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	legs := Legs{}
	for id, x := range stops {
		legs.set(anchorNode, id, x*10)
		for other, ox := range stops {
			if other != id {
				legs.set(id, other, abs(x-ox)*10)
			}
		}
	}
	return legs
}

func TestTwoOptReducesTravelAndIsIdempotent(t *testing.T) {
	xs := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}
	seq := []domain.Candidate{
		place("c", 3, 20, domain.AlwaysOpen()),
		place("a", 1, 20, domain.AlwaysOpen()),
		place("e", 5, 20, domain.AlwaysOpen()),
		place("b", 2, 20, domain.AlwaysOpen()),
		place("d", 4, 20, domain.AlwaysOpen()),
	}
	legs := lineLegs(xs)
	day := domain.Day{Number: 1, Date: monday, Window: domain.Window{Start: clock(9, 0), End: clock(20, 0)}}

	visits, travel, err := scheduleSequence(day, seq, legs)
	require.NoError(t, err)
	day.Visits = visits

	optimized, stats, err := TwoOpt(day, seq, legs)
	require.NoError(t, err)
	assert.Equal(t, travel, stats.TravelBefore)
	assert.LessOrEqual(t, stats.TravelAfter, stats.TravelBefore)
	assert.Positive(t, stats.Accepted)
	assert.LessOrEqual(t, stats.Evaluations, 2*len(seq)*len(seq))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, optimized.PlaceIDs(), "a line is optimal in order")
	assert.Equal(t, 50, stats.TravelAfter)

	places := make(map[string]domain.Candidate)
	for _, c := range seq {
		places[c.ID] = c
	}
	require.NoError(t, domain.CheckInvariants(domain.Itinerary{Days: []domain.Day{optimized}}, places))

	again, err := sequenceOf(optimized, places)
	require.NoError(t, err)
	rerun, stats2, err := TwoOpt(optimized, again, legs)
	require.NoError(t, err)
	assert.Zero(t, stats2.Accepted)
	assert.Equal(t, optimized, rerun)
	assert.Equal(t, stats.TravelAfter, stats2.TravelAfter)
}

func TestTwoOptRejectsShorterButInfeasibleOrder(t *testing.T) {
	// q first then p is feasible; p first is shorter but pushes q past the window.
	legs := Legs{}
	legs.set(anchorNode, "q", 30)
	legs.set(anchorNode, "p", 10)
	legs.set("q", "p", 30)
	legs.set("p", "q", 10)

	seq := []domain.Candidate{
		place("q", 3, 60, domain.AlwaysOpen()),
		place("p", 1, 60, domain.Daily(clock(16, 0), clock(18, 0))),
	}
	day := domain.Day{Number: 1, Date: monday, Window: domain.Window{Start: clock(9, 0), End: clock(17, 30)}}

	visits, _, err := scheduleSequence(day, seq, legs)
	require.NoError(t, err)
	day.Visits = visits

	out, stats, err := TwoOpt(day, seq, legs)
	require.NoError(t, err)
	assert.Zero(t, stats.Accepted)
	assert.Equal(t, 1, stats.Evaluations)
	assert.Equal(t, []string{"q", "p"}, out.PlaceIDs())
	assert.Equal(t, 60, stats.TravelAfter)
}

func TestOptimizeDayFetchesLegsThroughMatrix(t *testing.T) {
	places := map[string]domain.Candidate{
		"a": place("a", 1, 20, domain.AlwaysOpen()),
		"b": place("b", 2, 20, domain.AlwaysOpen()),
	}
	legs := lineLegs(map[string]int{"a": 1, "b": 2})
	day := domain.Day{Number: 1, Date: monday, Anchor: lineLocation(0), Window: domain.Window{Start: clock(9, 0), End: clock(18, 0)}}

	seq := []domain.Candidate{places["b"], places["a"]}
	visits, _, err := scheduleSequence(day, seq, legs)
	require.NoError(t, err)
	day.Visits = visits

	opt := NewLocalSearchOptimizer(lineMatrix(0, 1, 2), 2)
	out, stats, err := opt.OptimizeDay(context.Background(), day, places, domain.ModeWalking)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.PlaceIDs())
	assert.Equal(t, 30, stats.TravelBefore)
	assert.Equal(t, 20, stats.TravelAfter)
}

func TestFetchLegsRoundsUpToMinutes(t *testing.T) {
	stops := []domain.Candidate{place("a", 1, 10, domain.AlwaysOpen()), place("b", 2, 10, domain.AlwaysOpen())}

	legs, err := FetchLegs(context.Background(), lineMatrix(0, 1, 2), domain.ModeWalking, lineLocation(0), stops, 4)
	require.NoError(t, err)

	m, ok := legs.Minutes(anchorNode, "b")
	require.True(t, ok)
	assert.Equal(t, 20, m)
	m, ok = legs.Minutes("b", "a")
	require.True(t, ok)
	assert.Equal(t, 10, m)
	_, ok = legs.Minutes("a", anchorNode)
	assert.False(t, ok, "no return leg")

	assert.Equal(t, 1, secondsToMinutes(1))
	assert.Equal(t, 2, secondsToMinutes(61))
	assert.Equal(t, 0, secondsToMinutes(0))
}
