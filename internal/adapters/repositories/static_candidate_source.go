package repositories

import (
	"context"
	"slices"
	"sort"

	"trip-planner-service/internal/domain"
)

// In-memory CandidateSource used for offline planning and tests.
// Results follow the same ranking as the Postgres source.
type StaticCandidateSource struct {
	candidates []domain.Candidate
}

func NewStaticCandidateSource(cands []domain.Candidate) *StaticCandidateSource {
	return &StaticCandidateSource{candidates: append([]domain.Candidate(nil), cands...)}
}

func (s *StaticCandidateSource) Search(
	_ context.Context,
	spec domain.TripSpecification,
	excludeIDs []string,
) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if slices.Contains(excludeIDs, c.ID) {
			continue
		}
		if spec.BudgetTier > 0 && c.PriceTier > spec.BudgetTier {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := out[i].InterestMatch(spec.Interests), out[j].InterestMatch(spec.Interests)
		if mi != mj {
			return mi > mj
		}
		if out[i].Popularity != out[j].Popularity {
			return out[i].Popularity > out[j].Popularity
		}
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}
