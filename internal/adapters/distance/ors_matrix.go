package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"trip-planner-service/internal/domain"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Durations [][]*float64 `json:"durations"`
}

// fetchMatrixRow retrieves durations from one origin to many destinations
// using the OpenRouteService matrix endpoint.
func (o *ORSTravelMatrix) fetchMatrixRow(
	ctx context.Context,
	profile string,
	origin domain.Location,
	destinations []string,
	destinationLocs []domain.Location,
) (map[string]int, error) {
	if len(destinations) != len(destinationLocs) {
		return nil, fmt.Errorf("destinations and destinationLocs are expected to have the same length")
	}

	if len(destinations) == 0 {
		return map[string]int{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, profile)

	locations := make([][]float64, 0, 1+len(destinationLocs))
	locations = append(locations, origin.CoordsToList())
	for _, c := range destinationLocs {
		locations = append(locations, c.CoordsToList())
	}

	destIdx := make([]int, 0, len(destinationLocs))
	for i := 1; i < len(locations); i++ {
		destIdx = append(destIdx, i)
	}

	bodyObj := matrixRequest{
		Locations:    locations,
		Destinations: destIdx,
		Metrics:      []string{"duration"},
		Sources:      []int{0},
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		body := bytes.NewReader(payload)
		return o.newRequest(ctx, http.MethodPost, endpoint, body)
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Durations) != 1 {
		return nil, fmt.Errorf("expected 1 source row; got durations=%d", len(mr.Durations))
	}

	row := mr.Durations[0]
	if len(row) != len(destinations) {
		return nil, fmt.Errorf(
			"row length does not match destinations: durations=%d destinations=%d",
			len(row), len(destinations),
		)
	}

	out := make(map[string]int, len(destinations))
	for i, dest := range destinations {
		// ORS reports null for unroutable pairs.
		if row[i] == nil || *row[i] < 0 {
			return nil, fmt.Errorf("matrix returned invalid duration for %q", dest)
		}
		out[dest] = int(math.Round(*row[i]))
	}

	return out, nil
}
