package domain

import "time"

// ScoreWeights weights the greedy scoring terms. They need not sum to one.
type ScoreWeights struct {
	Interest  float64 `yaml:"interest" validate:"gte=0"`
	Rating    float64 `yaml:"rating" validate:"gte=0"`
	Proximity float64 `yaml:"proximity" validate:"gte=0"`
}

// FallbackSpeeds configures the haversine estimate used when the travel-time
// service is unavailable.
type FallbackSpeeds struct {
	WalkingKmh   float64 `yaml:"walking_kmh" validate:"gt=0"`
	DrivingKmh   float64 `yaml:"driving_kmh" validate:"gt=0"`
	CyclingKmh   float64 `yaml:"cycling_kmh" validate:"gt=0"`
	DetourFactor float64 `yaml:"detour_factor" validate:"gte=1"`
}

// KmhFor returns the configured average speed for mode.
func (f FallbackSpeeds) KmhFor(mode TravelMode) float64 {
	switch mode {
	case ModeDriving:
		return f.DrivingKmh
	case ModeCycling:
		return f.CyclingKmh
	default:
		return f.WalkingKmh
	}
}

// PlanningPolicy holds the tunable knobs of the planner.
type PlanningPolicy struct {
	Weights         ScoreWeights   `yaml:"weights"`
	MinSlackMinutes int            `yaml:"min_slack_minutes" validate:"gte=0"`
	MaxWaitMinutes  int            `yaml:"max_wait_minutes" validate:"gte=0"`
	VisitsPerDay    map[Pace]int   `yaml:"visits_per_day"`
	CategoryCap     int            `yaml:"category_cap" validate:"gte=0"`
	ParallelDays    bool           `yaml:"parallel_days"`
	Workers         int            `yaml:"workers" validate:"gte=1"`
	Fallback        FallbackSpeeds `yaml:"fallback"`

	UpstreamTimeout time.Duration `yaml:"upstream_timeout" validate:"gt=0"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" validate:"gte=0"`
	OpTimeout       time.Duration `yaml:"op_timeout" validate:"gt=0"`
	SessionTTL      time.Duration `yaml:"session_ttl" validate:"gt=0"`
	QueueDepth      int           `yaml:"queue_depth" validate:"gte=1"`
}

func DefaultPolicy() PlanningPolicy {
	return PlanningPolicy{
		Weights:         ScoreWeights{Interest: 0.5, Rating: 0.3, Proximity: 0.2},
		MinSlackMinutes: 30,
		MaxWaitMinutes:  60,
		VisitsPerDay: map[Pace]int{
			PaceRelaxed:  3,
			PaceModerate: 5,
			PacePacked:   7,
		},
		CategoryCap:  2,
		ParallelDays: false,
		Workers:      4,
		Fallback: FallbackSpeeds{
			WalkingKmh:   4.5,
			DrivingKmh:   30,
			CyclingKmh:   14,
			DetourFactor: 1.3,
		},
		UpstreamTimeout: 3 * time.Second,
		RetryBackoff:    200 * time.Millisecond,
		OpTimeout:       5 * time.Second,
		SessionTTL:      24 * time.Hour,
		QueueDepth:      32,
	}
}

// VisitQuota returns the per-day visit cap for pace; 0 means unlimited.
func (p PlanningPolicy) VisitQuota(pace Pace) int {
	return p.VisitsPerDay[pace]
}
