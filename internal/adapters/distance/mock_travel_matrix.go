package distance

import (
	"context"
	"fmt"

	"trip-planner-service/internal/domain"
)

type MockPair struct {
	From, To domain.Location
	Seconds  int
}

// MockTravelMatrix answers queries from a fixed table of directed pairs.
// A missing pair is an error; identical locations are always 0.
type MockTravelMatrix struct {
	m map[string]int
}

func NewMockTravelMatrix(pairs []MockPair) *MockTravelMatrix {
	m := make(map[string]int, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = p.Seconds
	}
	return &MockTravelMatrix{m: m}
}

func (p *MockTravelMatrix) Query(
	_ context.Context,
	origin domain.Location,
	destinations []domain.Location,
	_ domain.TravelMode,
) ([]int, error) {
	out := make([]int, len(destinations))
	for i, d := range destinations {
		if d.Key() == origin.Key() {
			continue
		}
		s, ok := p.m[origin.Key()+"|"+d.Key()]
		if !ok {
			return nil, fmt.Errorf("missing pair %s -> %s", origin.Key(), d.Key())
		}
		out[i] = s
	}
	return out, nil
}
