package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trip-planner-service/internal/domain"
	"trip-planner-service/internal/platform/obs"
)

// DefaultSearchLimit caps how many candidates one search returns.
const DefaultSearchLimit = 200

// Postgres-backed implementation of the CandidateSource port.
// Ranking is by interest-tag overlap, then popularity and rating.
type PostgresCandidateSource struct {
	DB    *sql.DB
	Limit int
}

func NewPostgresCandidateSource(db *sql.DB) *PostgresCandidateSource {
	return &PostgresCandidateSource{DB: db, Limit: DefaultSearchLimit}
}

// Return ranked candidates for the trip destination, skipping excludeIDs.
func (s *PostgresCandidateSource) Search(
	ctx context.Context,
	spec domain.TripSpecification,
	excludeIDs []string,
) (_ []domain.Candidate, err error) {
	defer obs.Time(ctx, "candidates.Search")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres candidate source: DB is nil")
	}

	// NULL arrays would make ANY() yield NULL and filter every row.
	exclude := excludeIDs
	if exclude == nil {
		exclude = []string{}
	}
	interests := spec.Interests
	if interests == nil {
		interests = []string{}
	}

	limit := s.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query := `
	SELECT
		place_id, name, kind, lat, lon, tags::text,
		rating, price_tier, stay_minutes, popularity, hours::text
	FROM places
	WHERE lower(destination) = lower($1)
		AND NOT (place_id = ANY($2::text[]))
		AND price_tier <= $3
	ORDER BY
		(SELECT count(*) FROM jsonb_array_elements_text(tags) t WHERE t = ANY($4::text[])) DESC,
		popularity DESC,
		rating DESC,
		place_id
	LIMIT $5;
	`
	rows, err := s.DB.QueryContext(ctx, query,
		strings.TrimSpace(spec.Destination), exclude, spec.BudgetTier, interests, limit)
	if err != nil {
		return nil, fmt.Errorf("search candidates: query places table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, 64)
	for rows.Next() {
		var (
			c           domain.Candidate
			kind        string
			tags, hours string
		)
		err := rows.Scan(
			&c.ID, &c.Name, &kind, &c.Location.Lat, &c.Location.Lon, &tags,
			&c.Rating, &c.PriceTier, &c.StayMinutes, &c.Popularity, &hours,
		)
		if err != nil {
			return nil, fmt.Errorf("search candidates: scan row: %w", err)
		}
		c.Kind = domain.CandidateKind(kind)

		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("search candidates: decode tags of %q: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(hours), &c.Hours); err != nil {
			return nil, fmt.Errorf("search candidates: decode hours of %q: %w", c.ID, err)
		}

		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search candidates: row iteration: %w", err)
	}

	return out, nil
}
