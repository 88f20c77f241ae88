package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/adapters/distance"
	"trip-planner-service/internal/adapters/sessions"
	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/ports"
)

const sessionID = "sess-1"

// seedSession stores a two-day trip: day 1 visits A, B and C on a line
// east of the origin, day 2 (a Tuesday, when C is closed) is empty.
func seedSession(t *testing.T, store ports.SessionStore) *domain.Session {
	t.Helper()

	closedTuesday := domain.AlwaysOpen()
	closedTuesday[time.Tuesday] = nil

	places := map[string]domain.Candidate{
		"A": place("A", 1, 60, domain.AlwaysOpen()),
		"B": place("B", 2, 60, domain.AlwaysOpen()),
		"C": place("C", 3, 60, closedTuesday),
	}
	window := domain.Window{Start: clock(9, 0), End: clock(18, 0)}

	sess := &domain.Session{
		ID:      sessionID,
		Version: 1,
		Spec: domain.TripSpecification{
			Destination: "Bordeaux", StartDate: monday, Days: 2, Pace: domain.PaceModerate,
			DayStart: window.Start, DayEnd: window.End, Origin: lineLocation(0), Mode: domain.ModeWalking,
		},
		Itinerary: domain.Itinerary{Days: []domain.Day{
			{
				Number: 1, Date: monday, Window: window, Anchor: lineLocation(0),
				Visits: []domain.Visit{
					{PlaceID: "A", Name: "Place A", ETA: clock(9, 10), ETD: clock(10, 10), StayMinutes: 60},
					{PlaceID: "B", Name: "Place B", ETA: clock(10, 20), ETD: clock(11, 20), StayMinutes: 60, TravelMinutes: 10},
					{PlaceID: "C", Name: "Place C", ETA: clock(11, 30), ETD: clock(12, 30), StayMinutes: 60, TravelMinutes: 10},
				},
			},
			{Number: 2, Date: monday.AddDate(0, 0, 1), Window: window, Anchor: lineLocation(0), Visits: []domain.Visit{}},
		}},
		Places: places,
	}
	require.NoError(t, domain.CheckInvariants(sess.Itinerary, places))
	require.NoError(t, store.Put(context.Background(), sess, time.Hour))
	return sess
}

func newEngine(t *testing.T, source ports.CandidateSource, policy domain.PlanningPolicy) (*FeedbackEngine, *sessions.MemorySessionStore) {
	t.Helper()
	store := sessions.NewMemorySessionStore()
	seedSession(t, store)
	return NewFeedbackEngine(store, source, lineMatrix(0, 1, 2, 3, 4, 5), policy, nil), store
}

func storedSession(t *testing.T, store ports.SessionStore) *domain.Session {
	t.Helper()
	s, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	return s
}

func TestFeedbackDropRetimesFromAnchor(t *testing.T) {
	engine, store := newEngine(t, stubSource{}, testPolicy())

	res, err := engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, int64(2), res.Version)

	day := res.Itinerary.Days[0]
	require.Equal(t, []string{"B", "C"}, day.PlaceIDs())
	assert.Equal(t, clock(9, 20), day.Visits[0].ETA)
	assert.Equal(t, clock(10, 20), day.Visits[0].ETD)
	assert.Equal(t, 0, day.Visits[0].TravelMinutes)
	assert.Equal(t, clock(10, 30), day.Visits[1].ETA)
	assert.Equal(t, clock(11, 30), day.Visits[1].ETD)

	stored := storedSession(t, store)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, res.Itinerary, stored.Itinerary)
	assert.NotContains(t, stored.Places, "A")
	assert.Equal(t, StateDone, engine.State(sessionID))
}

func TestFeedbackReplaceWithEmptySourceLeavesItineraryUnchanged(t *testing.T) {
	engine, store := newEngine(t, stubSource{}, testPolicy())
	before := storedSession(t, store)

	res, err := engine.Apply(context.Background(), sessionID, domain.Replace{Day: 1, VisitIndex: 1})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonNoAlternative, domain.ReasonOf(err))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, domain.ReasonNoAlternative, res.Reason)
	assert.False(t, res.Retryable)
	assert.Equal(t, before.Itinerary, res.Itinerary)

	after := storedSession(t, store)
	assert.Equal(t, before, after)
	assert.Equal(t, StateFailed, engine.State(sessionID))
}

func TestFeedbackReplaceInsertsAlternativeAndReoptimizes(t *testing.T) {
	d := place("D", 4, 60, domain.AlwaysOpen(), "park")
	source := stubSource{cands: []domain.Candidate{
		place("A", 1, 60, domain.AlwaysOpen()),
		place("museum", 5, 60, domain.AlwaysOpen(), "museum"),
		d,
	}}
	engine, store := newEngine(t, source, testPolicy())

	res, err := engine.Apply(context.Background(), sessionID, domain.Replace{
		Day: 1, VisitIndex: 1, Criteria: domain.Criteria{Tags: []string{"park"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "D"}, res.Itinerary.Days[0].PlaceIDs(), "2-opt reorders after the swap")
	stored := storedSession(t, store)
	assert.Contains(t, stored.Places, "D")
	assert.NotContains(t, stored.Places, "B")
	require.NoError(t, domain.CheckInvariants(stored.Itinerary, stored.Places))
}

func TestFeedbackAddNeverOpenCandidateFails(t *testing.T) {
	source := stubSource{cands: []domain.Candidate{place("N", 5, 30, domain.OpeningHours{})}}
	engine, store := newEngine(t, source, testPolicy())
	before := storedSession(t, store)

	res, err := engine.Apply(context.Background(), sessionID, domain.Add{Day: 1, TargetIndex: -1})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonInfeasibleInsert, domain.ReasonOf(err))
	assert.Equal(t, before.Itinerary, res.Itinerary)
	assert.Equal(t, before, storedSession(t, store))
}

func TestFeedbackAddPicksCheapestPosition(t *testing.T) {
	source := stubSource{cands: []domain.Candidate{place("D", 4, 30, domain.AlwaysOpen())}}
	engine, _ := newEngine(t, source, testPolicy())

	res, err := engine.Apply(context.Background(), sessionID, domain.Add{Day: 1, TargetIndex: -1})
	require.NoError(t, err)

	day := res.Itinerary.Days[0]
	require.Equal(t, []string{"A", "B", "C", "D"}, day.PlaceIDs())
	assert.Equal(t, clock(12, 40), day.Visits[3].ETA)
	assert.Equal(t, 10, day.Visits[3].TravelMinutes)
}

func TestFeedbackAddRejectsOutOfRangeIndex(t *testing.T) {
	source := stubSource{cands: []domain.Candidate{place("D", 4, 30, domain.AlwaysOpen())}}
	engine, _ := newEngine(t, source, testPolicy())

	_, err := engine.Apply(context.Background(), sessionID, domain.Add{Day: 1, TargetIndex: 9})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonNotFound, domain.ReasonOf(err))
}

func TestFeedbackMoveAcrossDays(t *testing.T) {
	engine, store := newEngine(t, stubSource{}, testPolicy())

	res, err := engine.Apply(context.Background(), sessionID, domain.Move{Day: 1, VisitIndex: 1, TargetDay: 2, TargetIndex: 0})
	require.NoError(t, err)

	day1, day2 := res.Itinerary.Days[0], res.Itinerary.Days[1]
	require.Equal(t, []string{"A", "C"}, day1.PlaceIDs())
	assert.Equal(t, clock(10, 30), day1.Visits[1].ETA)
	assert.Equal(t, 20, day1.Visits[1].TravelMinutes)
	require.Equal(t, []string{"B"}, day2.PlaceIDs())
	assert.Equal(t, clock(9, 20), day2.Visits[0].ETA)

	stored := storedSession(t, store)
	require.NoError(t, domain.CheckInvariants(stored.Itinerary, stored.Places))
}

func TestFeedbackMoveToClosedDayFails(t *testing.T) {
	engine, store := newEngine(t, stubSource{}, testPolicy())
	before := storedSession(t, store)

	res, err := engine.Apply(context.Background(), sessionID, domain.Move{Day: 1, VisitIndex: 2, TargetDay: 2, TargetIndex: 0})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonInfeasibleTarget, domain.ReasonOf(err))
	assert.Equal(t, before.Itinerary, res.Itinerary)
	assert.Equal(t, before, storedSession(t, store))
}

func TestFeedbackMoveFallsBackToNearestFeasibleIndex(t *testing.T) {
	engine, store := newEngine(t, stubSource{}, testPolicy())

	// E is only open on Tuesday morning, so B cannot go in front of it.
	var morningOnly domain.OpeningHours
	morningOnly[time.Tuesday] = []domain.Interval{{Open: clock(9, 0), Close: clock(10, 30)}}

	sess := storedSession(t, store)
	sess.Places["E"] = place("E", 1, 60, morningOnly)
	sess.Itinerary.Days[1].Visits = []domain.Visit{
		{PlaceID: "E", Name: "Place E", ETA: clock(9, 10), ETD: clock(10, 10), StayMinutes: 60},
	}
	require.NoError(t, store.Put(context.Background(), sess, time.Hour))

	res, err := engine.Apply(context.Background(), sessionID, domain.Move{Day: 1, VisitIndex: 1, TargetDay: 2, TargetIndex: 0})
	require.NoError(t, err)

	day2 := res.Itinerary.Days[1]
	require.Equal(t, []string{"E", "B"}, day2.PlaceIDs())
	assert.Equal(t, clock(9, 10), day2.Visits[0].ETA)
	assert.Equal(t, clock(10, 20), day2.Visits[1].ETA)
	assert.Equal(t, []string{"A", "C"}, res.Itinerary.Days[0].PlaceIDs())

	stored := storedSession(t, store)
	assert.Equal(t, int64(2), stored.Version)
	require.NoError(t, domain.CheckInvariants(stored.Itinerary, stored.Places))
}

func TestFeedbackRejectsUnknownCoordinates(t *testing.T) {
	engine, _ := newEngine(t, stubSource{}, testPolicy())

	_, err := engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 5})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.ReasonNotFound, ve.Reason)

	_, err = engine.Apply(context.Background(), sessionID, domain.Move{Day: 1, VisitIndex: 0, TargetDay: 3})
	assert.Equal(t, domain.ReasonNotFound, domain.ReasonOf(err))

	res, err := engine.Apply(context.Background(), "nope", domain.Drop{Day: 1})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, res.Itinerary.Days)
}

func TestFeedbackOpsOnOneSessionAreSerialized(t *testing.T) {
	engine, store := newEngine(t, stubSource{}, testPolicy())

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	stored := storedSession(t, store)
	assert.Equal(t, int64(4), stored.Version)
	assert.Empty(t, stored.Itinerary.Days[0].Visits)
}

// blockingSource holds every search until release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSource) Search(context.Context, domain.TripSpecification, []string) ([]domain.Candidate, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil, nil
}

func TestFeedbackQueuedOpTimesOut(t *testing.T) {
	source := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	policy := testPolicy()
	policy.OpTimeout = 100 * time.Millisecond
	engine, store := newEngine(t, source, policy)
	before := storedSession(t, store)

	firstDone := make(chan error, 1)
	go func() {
		_, err := engine.Apply(context.Background(), sessionID, domain.Replace{Day: 1, VisitIndex: 0})
		firstDone <- err
	}()
	<-source.started

	res, err := engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonQueueTimeout, domain.ReasonOf(err))
	assert.True(t, domain.IsRetryable(err))
	assert.True(t, res.Retryable)
	assert.Equal(t, before.Itinerary, res.Itinerary)

	close(source.release)
	first := <-firstDone
	assert.Equal(t, domain.ReasonNoAlternative, domain.ReasonOf(first), "the first op reports its own outcome")

	assert.Eventually(t, func() bool { return engine.lanes.pending(sessionID) == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, before, storedSession(t, store))
}

type stallingMatrix struct{}

func (stallingMatrix) Query(ctx context.Context, _ domain.Location, _ []domain.Location, _ domain.TravelMode) ([]int, error) {
	select {
	case <-time.After(time.Second):
		return nil, errors.New("upstream stalled")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestFeedbackOpTimeoutAbortsStartedOp(t *testing.T) {
	policy := testPolicy()
	policy.OpTimeout = 100 * time.Millisecond

	store := sessions.NewMemorySessionStore()
	seedSession(t, store)
	before := storedSession(t, store)

	matrix := distance.NewResilientMatrix(stallingMatrix{}, distance.NewHaversineMatrix(policy.Fallback),
		time.Second, time.Millisecond, nil)
	engine := NewFeedbackEngine(store, stubSource{}, matrix, policy, nil)

	start := time.Now()
	res, err := engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	assert.Equal(t, domain.ReasonOpTimeout, domain.ReasonOf(err))
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, res.Retryable)
	assert.Equal(t, before.Itinerary, res.Itinerary)
	assert.Equal(t, before, storedSession(t, store), "nothing is written after the deadline")
}

type panickingSource struct{}

func (panickingSource) Search(context.Context, domain.TripSpecification, []string) ([]domain.Candidate, error) {
	panic("index out of range")
}

func TestFeedbackPanicFailsOpAndKeepsLaneServing(t *testing.T) {
	engine, store := newEngine(t, panickingSource{}, testPolicy())
	before := storedSession(t, store)

	res, err := engine.Apply(context.Background(), sessionID, domain.Replace{Day: 1, VisitIndex: 0})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, before.Itinerary, res.Itinerary)
	assert.Equal(t, StateFailed, engine.State(sessionID))
	assert.Equal(t, before, storedSession(t, store))

	res, err = engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)
}

func TestFeedbackStatesExpireWithSessionTTL(t *testing.T) {
	policy := testPolicy()
	policy.SessionTTL = time.Hour
	engine, _ := newEngine(t, stubSource{}, policy)

	current := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return current }

	_, err := engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, StateDone, engine.State(sessionID))

	current = current.Add(2 * time.Hour)
	assert.Equal(t, StateIdle, engine.State(sessionID))

	_, err = engine.Apply(context.Background(), "other", domain.Drop{Day: 1, VisitIndex: 0})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Len(t, engine.states, 1)
	assert.Contains(t, engine.states, "other")
}

type conflictingStore struct {
	*sessions.MemorySessionStore
}

func (conflictingStore) CompareAndSwap(context.Context, string, int64, *domain.Session, time.Duration) (bool, error) {
	return false, nil
}

func TestFeedbackVersionConflictIsRetryable(t *testing.T) {
	store := conflictingStore{sessions.NewMemorySessionStore()}
	seedSession(t, store)
	engine := NewFeedbackEngine(store, stubSource{}, lineMatrix(0, 1, 2, 3), testPolicy(), nil)

	res, err := engine.Apply(context.Background(), sessionID, domain.Drop{Day: 1, VisitIndex: 0})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonVersionConflict, domain.ReasonOf(err))
	assert.True(t, res.Retryable)
	assert.Equal(t, int64(1), res.Version)
}

func TestNearestIndices(t *testing.T) {
	assert.Equal(t, []int{2, 1, 3, 0, 4}, nearestIndices(2, 4))
	assert.Equal(t, []int{2, 1, 0}, nearestIndices(9, 2))
	assert.Equal(t, []int{0}, nearestIndices(0, 0))
}
