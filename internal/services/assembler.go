package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/ports"
)

// Plan is a freshly built itinerary together with every candidate it
// references, accommodations included.
type Plan struct {
	Itinerary domain.Itinerary
	Places    map[string]domain.Candidate
	// Degraded is set when the source offered no place to visit.
	Degraded bool
}

// ItineraryAssembler builds the initial itinerary of a session:
// lodging selection, day allocation, then greedy construction and 2-opt
// per day.
type ItineraryAssembler struct {
	source    ports.CandidateSource
	scheduler *GreedyScheduler
	optimizer *LocalSearchOptimizer
	store     ports.SessionStore
	policy    domain.PlanningPolicy
	logger    *zap.Logger
	now       func() time.Time
}

func NewItineraryAssembler(
	source ports.CandidateSource,
	matrix ports.TravelTimeMatrix,
	store ports.SessionStore,
	policy domain.PlanningPolicy,
	logger *zap.Logger,
) *ItineraryAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItineraryAssembler{
		source:    source,
		scheduler: NewGreedyScheduler(matrix, policy),
		optimizer: NewLocalSearchOptimizer(matrix, policy.Workers),
		store:     store,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// Plan validates spec and builds an itinerary without persisting it.
func (a *ItineraryAssembler) Plan(ctx context.Context, spec domain.TripSpecification) (_ *Plan, err error) {
	ctx, end := obs.Start(ctx, "assembler.Plan")
	defer end(&err)

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cands, err := a.source.Search(ctx, spec, nil)
	if err != nil {
		return nil, fmt.Errorf("plan itinerary: search candidates: %w", err)
	}

	lodging := SelectLodging(cands, spec.BudgetTier)
	days := AllocateDays(spec, lodging)

	pool := make([]domain.Candidate, 0, len(cands))
	ids := make([]string, 0, len(cands))
	byID := make(map[string]domain.Candidate, len(cands))
	for _, c := range cands {
		if c.Kind != domain.KindPlace {
			continue
		}
		if _, dup := byID[c.ID]; dup {
			continue
		}
		pool = append(pool, c)
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	claims := NewClaimPool(ids)

	degraded := len(pool) == 0
	if degraded {
		a.logger.Warn("no candidate places; itinerary will have empty days",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.String("destination", spec.Destination),
			zap.Int("days", spec.Days),
		)
	}

	buildDay := func(ctx context.Context, i int) error {
		day, err := a.scheduler.ScheduleDay(ctx, spec, days[i], pool, claims)
		if err != nil {
			return err
		}
		day, stats, err := a.optimizer.OptimizeDay(ctx, day, byID, spec.Mode)
		if err != nil {
			return err
		}
		a.logger.Debug("day built",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Int("day", day.Number),
			zap.Int("visits", len(day.Visits)),
			zap.Int("two_opt_evaluations", stats.Evaluations),
			zap.Int("two_opt_accepted", stats.Accepted),
			zap.Int("travel_before", stats.TravelBefore),
			zap.Int("travel_after", stats.TravelAfter),
		)
		days[i] = day
		return nil
	}

	if a.policy.ParallelDays {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(a.policy.Workers, 1))
		for i := range days {
			g.Go(func() error { return buildDay(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("plan itinerary: %w", err)
		}
	} else {
		for i := range days {
			if err := buildDay(ctx, i); err != nil {
				return nil, fmt.Errorf("plan itinerary: %w", err)
			}
		}
	}

	it := domain.Itinerary{Days: days}
	places := make(map[string]domain.Candidate)
	for _, d := range it.Days {
		for _, v := range d.Visits {
			places[v.PlaceID] = byID[v.PlaceID]
		}
		if d.Accommodation != nil {
			places[d.Accommodation.ID] = *d.Accommodation
		}
	}

	if err := domain.CheckInvariants(it, places); err != nil {
		return nil, fmt.Errorf("plan itinerary: %w", err)
	}

	return &Plan{Itinerary: it, Places: places, Degraded: degraded}, nil
}

// Build plans spec and stores it as a new session at version 1.
func (a *ItineraryAssembler) Build(ctx context.Context, spec domain.TripSpecification) (_ *domain.Session, err error) {
	ctx, end := obs.Start(ctx, "assembler.Build")
	defer end(&err)

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	plan, err := a.Plan(ctx, spec)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Version:   1,
		Spec:      spec,
		Itinerary: plan.Itinerary,
		Places:    plan.Places,
		Degraded:  plan.Degraded,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.store.Put(ctx, sess, a.policy.SessionTTL); err != nil {
		return nil, fmt.Errorf("build itinerary: store session: %w", err)
	}

	a.logger.Info("itinerary built",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("session_id", sess.ID),
		zap.Int("days", len(sess.Itinerary.Days)),
		zap.Int("travel_minutes", sess.Itinerary.TravelMinutes()),
		zap.Bool("degraded", sess.Degraded),
	)

	return sess, nil
}
