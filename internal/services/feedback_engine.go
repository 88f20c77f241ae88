package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/ports"
)

type State string

const (
	StateIdle         State = "IDLE"
	StateApplying     State = "APPLYING"
	StateReoptimizing State = "REOPTIMIZING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// FeedbackResult is the outcome of one op. On failure Itinerary is the
// unchanged pre-op itinerary and Version the unchanged session version.
type FeedbackResult struct {
	State     State
	Version   int64
	Itinerary domain.Itinerary
	Reason    string
	Retryable bool
}

// FeedbackEngine applies feedback ops to stored sessions, one op at a time
// per session and in arrival order. Each op mutates a clone of the
// itinerary and commits it with a compare-and-swap on the session version,
// so a rejected op never changes what is stored.
type FeedbackEngine struct {
	store     ports.SessionStore
	source    ports.CandidateSource
	matrix    ports.TravelTimeMatrix
	optimizer *LocalSearchOptimizer
	policy    domain.PlanningPolicy
	logger    *zap.Logger
	now       func() time.Time

	lanes *laneSet

	mu        sync.Mutex
	states    map[string]stateEntry
	lastSweep time.Time
}

// stateEntry is the latest op state of one session. Finished entries are
// swept once they are older than the session TTL.
type stateEntry struct {
	state State
	at    time.Time
}

const stateSweepInterval = time.Minute

func NewFeedbackEngine(
	store ports.SessionStore,
	source ports.CandidateSource,
	matrix ports.TravelTimeMatrix,
	policy domain.PlanningPolicy,
	logger *zap.Logger,
) *FeedbackEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackEngine{
		store:     store,
		source:    source,
		matrix:    matrix,
		optimizer: NewLocalSearchOptimizer(matrix, policy.Workers),
		policy:    policy,
		logger:    logger,
		now:       time.Now,
		lanes:     newLaneSet(policy.QueueDepth),
		states:    make(map[string]stateEntry),
	}
}

// State returns the state of the latest op on sessionID.
func (e *FeedbackEngine) State(sessionID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[sessionID]; ok && !e.expired(s, e.now()) {
		return s.state
	}
	return StateIdle
}

func (e *FeedbackEngine) setState(sessionID string, s State) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.states[sessionID] = stateEntry{state: s, at: now}

	if now.Sub(e.lastSweep) < stateSweepInterval {
		return
	}
	e.lastSweep = now
	for id, entry := range e.states {
		if e.expired(entry, now) {
			delete(e.states, id)
		}
	}
}

// expired reports whether a finished op state has outlived its session.
func (e *FeedbackEngine) expired(s stateEntry, now time.Time) bool {
	if s.state != StateDone && s.state != StateFailed {
		return false
	}
	return now.Sub(s.at) > e.policy.SessionTTL
}

// Apply queues op behind any in-flight op on the same session and waits for
// its outcome. The op timeout covers queueing and upstream fetches and aborts
// the op without writing; once the write phase begins the op runs to completion.
//
// The returned result is never nil. err carries the failure reason.
func (e *FeedbackEngine) Apply(ctx context.Context, sessionID string, op domain.FeedbackOp) (*FeedbackResult, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.policy.OpTimeout)
	defer cancel()

	var (
		res *FeedbackResult
		err error
	)
	job := newLaneJob(func() {
		res, err = e.execute(opCtx, sessionID, op)
	})

	if !e.lanes.submit(sessionID, job) {
		return e.rejected(ctx, sessionID, domain.NewConcurrencyTimeoutError(domain.ReasonQueueTimeout, "feedback queue is full"))
	}

	select {
	case <-job.done:
	case <-opCtx.Done():
		if job.abandon() {
			return e.rejected(ctx, sessionID, domain.NewConcurrencyTimeoutError(
				domain.ReasonQueueTimeout, "timed out waiting for an earlier op on this session"))
		}
		<-job.done
	}

	if job.panicErr != nil {
		e.setState(sessionID, StateFailed)
		return e.rejected(ctx, sessionID, fmt.Errorf("apply feedback: %w", job.panicErr))
	}
	return res, err
}

// rejected builds a failure result for an op that never ran or did not finish.
func (e *FeedbackEngine) rejected(ctx context.Context, sessionID string, cause error) (*FeedbackResult, error) {
	res := &FeedbackResult{
		State:     StateFailed,
		Reason:    domain.ReasonOf(cause),
		Retryable: domain.IsRetryable(cause),
	}
	if sess, err := e.store.Get(context.WithoutCancel(ctx), sessionID); err == nil {
		res.Version = sess.Version
		res.Itinerary = sess.Itinerary
	}

	e.logger.Warn("feedback rejected",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("session_id", sessionID),
		zap.String("reason", res.Reason),
	)
	return res, cause
}

func (e *FeedbackEngine) execute(ctx context.Context, sessionID string, op domain.FeedbackOp) (_ *FeedbackResult, err error) {
	ctx, end := obs.Start(ctx, "feedback.Apply")
	defer end(&err)

	e.setState(sessionID, StateApplying)

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return e.fail(ctx, sessionID, nil, op, err)
		}
		if ctx.Err() != nil {
			return e.fail(ctx, sessionID, nil, op, domain.NewConcurrencyTimeoutError(domain.ReasonOpTimeout, "op timed out loading the session"))
		}
		return e.fail(ctx, sessionID, nil, op, fmt.Errorf("apply feedback: load session: %w", err))
	}

	m := &mutation{
		engine:    e,
		spec:      sess.Spec,
		itinerary: sess.Itinerary.Clone(),
		places:    make(map[string]domain.Candidate, len(sess.Places)+1),
		dirty:     make(map[int]struct{}),
	}
	for id, c := range sess.Places {
		m.places[id] = c
	}

	if err := m.apply(ctx, op); err != nil {
		return e.fail(ctx, sessionID, sess, op, err)
	}
	if ctx.Err() != nil {
		return e.fail(ctx, sessionID, sess, op, domain.NewConcurrencyTimeoutError(
			domain.ReasonOpTimeout, "op timed out before its result could be written"))
	}

	// From here on the op is committed to finishing; only the store can stop it.
	wctx := context.WithoutCancel(ctx)

	e.setState(sessionID, StateReoptimizing)
	for n := range m.dirty {
		day, ok := m.itinerary.Day(n)
		if !ok {
			continue
		}
		optimized, _, err := e.optimizer.OptimizeDay(wctx, *day, m.places, sess.Spec.Mode)
		if err != nil {
			return e.fail(ctx, sessionID, sess, op, fmt.Errorf("apply feedback: reoptimize day %d: %w", n, err))
		}
		*day = optimized
	}

	places := usedPlaces(m.itinerary, m.places)
	if err := domain.CheckInvariants(m.itinerary, places); err != nil {
		return e.fail(ctx, sessionID, sess, op, domain.NewInfeasibleError(domain.ReasonInvariantViolation, err.Error()))
	}

	next := *sess
	next.Version = sess.Version + 1
	next.Itinerary = m.itinerary
	next.Places = places
	next.Degraded = sess.Degraded && len(m.itinerary.UsedIDs()) == 0
	next.UpdatedAt = e.now().UTC()

	swapped, err := e.store.CompareAndSwap(wctx, sessionID, sess.Version, &next, e.policy.SessionTTL)
	if err != nil {
		return e.fail(ctx, sessionID, sess, op, fmt.Errorf("apply feedback: commit: %w", err))
	}
	if !swapped {
		return e.fail(ctx, sessionID, sess, op, domain.NewConcurrencyTimeoutError(
			domain.ReasonVersionConflict, "session changed while the op was applied"))
	}

	e.setState(sessionID, StateDone)
	e.logger.Info("feedback applied",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("session_id", sessionID),
		zap.String("op", string(op.Kind())),
		zap.Int64("version", next.Version),
	)

	return &FeedbackResult{State: StateDone, Version: next.Version, Itinerary: next.Itinerary}, nil
}

func (e *FeedbackEngine) fail(
	ctx context.Context,
	sessionID string,
	sess *domain.Session,
	op domain.FeedbackOp,
	cause error,
) (*FeedbackResult, error) {
	e.setState(sessionID, StateFailed)

	res := &FeedbackResult{
		State:     StateFailed,
		Reason:    domain.ReasonOf(cause),
		Retryable: domain.IsRetryable(cause),
	}
	if sess != nil {
		res.Version = sess.Version
		res.Itinerary = sess.Itinerary
	}

	e.logger.Info("feedback failed",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("session_id", sessionID),
		zap.String("op", string(op.Kind())),
		zap.String("reason", res.Reason),
		zap.Error(cause),
	)
	return res, cause
}

// usedPlaces keeps only the candidates the itinerary still references.
func usedPlaces(it domain.Itinerary, places map[string]domain.Candidate) map[string]domain.Candidate {
	out := make(map[string]domain.Candidate)
	for _, id := range it.UsedIDs() {
		if c, ok := places[id]; ok {
			out[id] = c
		}
	}
	for _, d := range it.Days {
		if d.Accommodation != nil {
			out[d.Accommodation.ID] = *d.Accommodation
		}
	}
	return out
}
