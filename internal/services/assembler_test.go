package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/adapters/distance"
	"trip-planner-service/internal/adapters/repositories"
	"trip-planner-service/internal/adapters/sessions"
	"trip-planner-service/internal/domain"
)

func TestAssemblerEndToEndScenario(t *testing.T) {
	origin := domain.Location{Lat: 41.3870, Lon: 2.1700}
	locA := domain.Location{Lat: 41.4036, Lon: 2.1744}
	locB := domain.Location{Lat: 41.4145, Lon: 2.1527}

	a := domain.Candidate{
		ID: "A", Name: "Sagrada Familia", Kind: domain.KindPlace, Location: locA,
		Rating: 4.5, StayMinutes: 120, Hours: domain.Daily(clock(8, 0), clock(20, 0)),
	}
	b := domain.Candidate{
		ID: "B", Name: "Park Guell", Kind: domain.KindPlace, Location: locB,
		Rating: 4.5, StayMinutes: 90, Hours: domain.Daily(clock(10, 0), clock(16, 0)),
	}

	matrix := distance.NewMockTravelMatrix([]distance.MockPair{
		{From: origin, To: locA, Seconds: 20 * 60},
		{From: origin, To: locB, Seconds: 40 * 60},
		{From: locA, To: locB, Seconds: 15 * 60},
		{From: locB, To: locA, Seconds: 15 * 60},
	})
	store := sessions.NewMemorySessionStore()
	source := repositories.NewStaticCandidateSource([]domain.Candidate{a, b})
	asm := NewItineraryAssembler(source, matrix, store, testPolicy(), nil)

	spec := domain.TripSpecification{
		Destination: "Barcelona",
		StartDate:   monday,
		Days:        2,
		DayStart:    clock(9, 0),
		DayEnd:      clock(18, 0),
		Origin:      origin,
	}

	sess, err := asm.Build(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.Version)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.Degraded)

	require.Len(t, sess.Itinerary.Days, 2)
	day1 := sess.Itinerary.Days[0]
	require.Equal(t, []string{"A", "B"}, day1.PlaceIDs())
	assert.Equal(t, "09:20", day1.Visits[0].ETA.String())
	assert.Equal(t, "11:20", day1.Visits[0].ETD.String())
	assert.Equal(t, 0, day1.Visits[0].TravelMinutes)
	assert.Equal(t, "11:35", day1.Visits[1].ETA.String())
	assert.Equal(t, "13:05", day1.Visits[1].ETD.String())
	assert.Equal(t, 15, day1.Visits[1].TravelMinutes)

	assert.Empty(t, sess.Itinerary.Days[1].Visits, "every candidate is already used")

	stored, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Version, stored.Version)
	assert.Equal(t, sess.Itinerary.Days[0].Visits, stored.Itinerary.Days[0].Visits)
	assert.Contains(t, stored.Places, "A")
	assert.Contains(t, stored.Places, "B")
}

func TestAssemblerRejectsInvalidSpec(t *testing.T) {
	asm := NewItineraryAssembler(stubSource{}, lineMatrix(0), sessions.NewMemorySessionStore(), testPolicy(), nil)

	_, err := asm.Build(context.Background(), domain.TripSpecification{Destination: "Rome", Days: 0})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonInvalidSpec, domain.ReasonOf(err))
}

func TestAssemblerUsesLodgingAsNextAnchor(t *testing.T) {
	hotel := domain.Candidate{
		ID: "hotel", Kind: domain.KindAccommodation, Location: lineLocation(4), PriceTier: 2,
		Hours: domain.AlwaysOpen(),
	}
	pool := []domain.Candidate{
		hotel,
		place("a", 1, 60, domain.AlwaysOpen(), "museum"),
		place("b", 2, 60, domain.AlwaysOpen(), "park"),
		place("c", 3, 60, domain.AlwaysOpen(), "food"),
	}
	policy := testPolicy()
	policy.VisitsPerDay[domain.PaceRelaxed] = 2

	asm := NewItineraryAssembler(stubSource{cands: pool}, lineMatrix(0, 1, 2, 3, 4), sessions.NewMemorySessionStore(), policy, nil)
	plan, err := asm.Plan(context.Background(), domain.TripSpecification{
		Destination: "Lyon", StartDate: monday, Days: 2, Pace: domain.PaceRelaxed, BudgetTier: 2,
		DayStart: clock(9, 0), DayEnd: clock(18, 0), Origin: lineLocation(0),
	})
	require.NoError(t, err)

	days := plan.Itinerary.Days
	require.Len(t, days, 2)
	require.NotNil(t, days[0].Accommodation)
	assert.Equal(t, "hotel", days[0].Accommodation.ID)
	assert.Nil(t, days[1].Accommodation)
	assert.Equal(t, lineLocation(4), days[1].Anchor)

	assert.Equal(t, []string{"a", "b"}, days[0].PlaceIDs())
	assert.Equal(t, []string{"c"}, days[1].PlaceIDs(), "c is ten minutes from the hotel")
	assert.Contains(t, plan.Places, "hotel")
	require.NoError(t, domain.CheckInvariants(plan.Itinerary, plan.Places))
}

func TestAssemblerParallelDaysNeverDoubleBook(t *testing.T) {
	policy := testPolicy()
	policy.ParallelDays = true
	policy.Workers = 4
	matrix := distance.NewHaversineMatrix(policy.Fallback)
	categories := []string{"museum", "park", "food"}

	for trial := 0; trial < 1000; trial++ {
		rng := rand.New(rand.NewPCG(uint64(trial), 7))

		cands := make([]domain.Candidate, 0, 14)
		for i := 0; i < 14; i++ {
			cands = append(cands, domain.Candidate{
				ID:          fmt.Sprintf("p%02d", i),
				Kind:        domain.KindPlace,
				Location:    domain.Location{Lat: 45.76 + rng.Float64()*0.01, Lon: 4.83 + rng.Float64()*0.01},
				Tags:        []string{categories[rng.IntN(len(categories))]},
				Rating:      float64(rng.IntN(11)) / 2,
				PriceTier:   1,
				StayMinutes: 30 + rng.IntN(4)*15,
				Hours:       domain.AlwaysOpen(),
			})
		}

		asm := NewItineraryAssembler(stubSource{cands: cands}, matrix, sessions.NewMemorySessionStore(), policy, nil)
		plan, err := asm.Plan(context.Background(), domain.TripSpecification{
			Destination: "Lyon", StartDate: monday, Days: 4, Pace: domain.PacePacked,
			Interests: []string{categories[trial%len(categories)]},
			DayStart:  clock(9, 0), DayEnd: clock(18, 0), Origin: domain.Location{Lat: 45.765, Lon: 4.835},
		})
		require.NoError(t, err, "trial %d", trial)

		seen := make(map[string]int)
		for _, d := range plan.Itinerary.Days {
			for _, v := range d.Visits {
				if prev, dup := seen[v.PlaceID]; dup {
					t.Fatalf("trial %d: %s on day %d and day %d", trial, v.PlaceID, prev, d.Number)
				}
				seen[v.PlaceID] = d.Number
			}
		}
		require.NoError(t, domain.CheckInvariants(plan.Itinerary, plan.Places), "trial %d", trial)
	}
}

type downSource struct{}

func (downSource) Search(context.Context, domain.TripSpecification, []string) ([]domain.Candidate, error) {
	return nil, errors.New("connection refused")
}

func TestAssemblerFlagsPlanWithoutCandidates(t *testing.T) {
	store := sessions.NewMemorySessionStore()
	source := repositories.NewResilientCandidateSource(downSource{}, time.Second, time.Millisecond, nil)
	asm := NewItineraryAssembler(source, lineMatrix(0), store, testPolicy(), nil)

	spec := domain.TripSpecification{
		Destination: "Lyon",
		StartDate:   monday,
		Days:        2,
		DayStart:    clock(9, 0),
		DayEnd:      clock(18, 0),
		Origin:      lineLocation(0),
	}

	sess, err := asm.Build(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, sess.Degraded)
	for _, d := range sess.Itinerary.Days {
		assert.Empty(t, d.Visits)
	}

	stored, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.Degraded)
}
