package services

import (
	"context"
	"fmt"
	"sort"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
	"trip-planner-service/internal/ports"
)

// proximityScale is the travel time, in minutes, at which the proximity
// term drops to one half.
const proximityScale = 15.0

type option struct {
	cand   domain.Candidate
	travel int
	eta    domain.Clock
	score  float64
}

// GreedyScheduler builds one day at a time by repeatedly taking the best
// feasible unclaimed candidate from the current location.
//
// It does not backtrack: an unlucky early pick only shortens the day and is
// left for LocalSearchOptimizer and feedback to improve.
type GreedyScheduler struct {
	matrix ports.TravelTimeMatrix
	policy domain.PlanningPolicy
}

func NewGreedyScheduler(matrix ports.TravelTimeMatrix, policy domain.PlanningPolicy) *GreedyScheduler {
	return &GreedyScheduler{matrix: matrix, policy: policy}
}

// ScheduleDay fills day.Visits from pool, claiming every chosen candidate
// in claims. Only place candidates with valid coordinates are considered.
func (g *GreedyScheduler) ScheduleDay(
	ctx context.Context,
	spec domain.TripSpecification,
	day domain.Day,
	pool []domain.Candidate,
	claims *ClaimPool,
) (_ domain.Day, err error) {
	ctx, end := obs.Start(ctx, "scheduler.ScheduleDay")
	defer end(&err)

	wd := day.Date.Weekday()
	quota := g.policy.VisitQuota(spec.Pace)
	perCategory := make(map[string]int)

	current := day.Window.Start
	location := day.Anchor
	visits := make([]domain.Visit, 0, max(quota, 4))

	for {
		if quota > 0 && len(visits) >= quota {
			break
		}
		if day.Window.Slack(current) < g.policy.MinSlackMinutes {
			break
		}

		remaining := make([]domain.Candidate, 0, len(pool))
		for _, c := range pool {
			if c.Kind != domain.KindPlace || c.StayMinutes <= 0 || !c.Location.Valid() {
				continue
			}
			if claims.Claimed(c.ID) {
				continue
			}
			if cat := c.PrimaryCategory(); cat != "" && g.policy.CategoryCap > 0 && perCategory[cat] >= g.policy.CategoryCap {
				continue
			}
			remaining = append(remaining, c)
		}
		if len(remaining) == 0 {
			break
		}

		locs := make([]domain.Location, len(remaining))
		for i, c := range remaining {
			locs[i] = c.Location
		}
		secs, err := g.matrix.Query(ctx, location, locs, spec.Mode)
		if err != nil {
			return day, fmt.Errorf("schedule day %d: query travel times: %w", day.Number, err)
		}
		if len(secs) != len(remaining) {
			return day, fmt.Errorf("schedule day %d: got %d travel times for %d candidates", day.Number, len(secs), len(remaining))
		}

		options := make([]option, 0, len(remaining))
		for i, c := range remaining {
			travel := secondsToMinutes(secs[i])
			arrive := current + domain.Clock(travel)

			eta, ok := c.Hours.EarliestStart(wd, arrive, c.StayMinutes, g.policy.MaxWaitMinutes)
			if !ok {
				continue
			}
			if eta+domain.Clock(c.StayMinutes) > day.Window.End {
				continue
			}

			effective := float64(travel) + float64(eta-arrive)
			options = append(options, option{
				cand:   c,
				travel: travel,
				eta:    eta,
				score:  g.score(c, spec.Interests, effective),
			})
		}
		if len(options) == 0 {
			break
		}

		sortOptions(options)

		var chosen *option
		for i := range options {
			if claims.Claim(options[i].cand.ID) {
				chosen = &options[i]
				break
			}
		}
		// Lost every claim to another day builder; rescan what is left.
		if chosen == nil {
			continue
		}

		leg := chosen.travel
		if len(visits) == 0 {
			leg = 0
		}
		etd := chosen.eta + domain.Clock(chosen.cand.StayMinutes)
		visits = append(visits, domain.Visit{
			PlaceID:       chosen.cand.ID,
			Name:          chosen.cand.Name,
			ETA:           chosen.eta,
			ETD:           etd,
			StayMinutes:   chosen.cand.StayMinutes,
			TravelMinutes: leg,
		})

		if cat := chosen.cand.PrimaryCategory(); cat != "" {
			perCategory[cat]++
		}
		current = etd
		location = chosen.cand.Location
	}

	day.Visits = visits
	return day, nil
}

func (g *GreedyScheduler) score(c domain.Candidate, interests []string, effectiveMinutes float64) float64 {
	w := g.policy.Weights
	return w.Interest*c.InterestMatch(interests) +
		w.Rating*(c.Rating/5) +
		w.Proximity*(1/(1+effectiveMinutes/proximityScale))
}

// sortOptions orders by score, then higher rating, shorter travel and id.
func sortOptions(options []option) {
	sort.Slice(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.cand.Rating != b.cand.Rating {
			return a.cand.Rating > b.cand.Rating
		}
		if a.travel != b.travel {
			return a.travel < b.travel
		}
		return a.cand.ID < b.cand.ID
	})
}
