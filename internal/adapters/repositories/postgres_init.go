package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"trip-planner-service/internal/domain"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPlacesQuery := `
	CREATE TABLE IF NOT EXISTS places (
		place_id TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('place', 'accommodation')),
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		tags JSONB NOT NULL DEFAULT '[]'::jsonb,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_tier INTEGER NOT NULL DEFAULT 1,
		stay_minutes INTEGER NOT NULL,
		popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
		hours JSONB NOT NULL
	);
	`

	createTravelCacheQuery := `
	CREATE TABLE IF NOT EXISTS travel_time_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        mode TEXT NOT NULL,
        duration_seconds INTEGER NOT NULL,
        PRIMARY KEY (origin, destination, mode)
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_places_destination
    ON places (lower(destination));
	`

	statements := []string{
		createPlacesQuery,
		createTravelCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// PlaceSeed is the on-disk shape of a candidate. Hours use the textual form
// accepted by domain.ParseOpeningHours; an empty list means always open.
type PlaceSeed struct {
	ID          string   `json:"id"`
	Destination string   `json:"destination"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Tags        []string `json:"tags"`
	Rating      float64  `json:"rating"`
	PriceTier   int      `json:"price_tier"`
	StayMinutes int      `json:"stay_minutes"`
	Popularity  float64  `json:"popularity"`
	Hours       []string `json:"hours"`
}

// ToCandidate validates the seed and parses its opening hours once.
func (p PlaceSeed) ToCandidate() (domain.Candidate, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return domain.Candidate{}, errors.New("id cannot be empty")
	}

	kind := domain.CandidateKind(p.Kind)
	switch kind {
	case "":
		kind = domain.KindPlace
	case domain.KindPlace, domain.KindAccommodation:
	default:
		return domain.Candidate{}, fmt.Errorf("place %q: unknown kind %q", id, p.Kind)
	}

	loc := domain.Location{Lat: p.Lat, Lon: p.Lon}
	if !loc.Valid() {
		return domain.Candidate{}, fmt.Errorf("place %q: %w", id, domain.ErrMalformedCoordinates)
	}

	if kind == domain.KindPlace && p.StayMinutes <= 0 {
		return domain.Candidate{}, fmt.Errorf("place %q: stay_minutes must be positive", id)
	}

	hours := domain.AlwaysOpen()
	if len(p.Hours) > 0 {
		var err error
		hours, err = domain.ParseOpeningHours(p.Hours)
		if err != nil {
			return domain.Candidate{}, fmt.Errorf("place %q: %w", id, err)
		}
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Candidate{
		ID:          id,
		Name:        strings.TrimSpace(p.Name),
		Kind:        kind,
		Location:    loc,
		Tags:        tags,
		Rating:      p.Rating,
		PriceTier:   p.PriceTier,
		StayMinutes: p.StayMinutes,
		Hours:       hours,
		Popularity:  p.Popularity,
	}, nil
}

// LoadPlaceSeeds reads and validates a JSON array of PlaceSeed.
func LoadPlaceSeeds(jsonPath string) ([]PlaceSeed, []domain.Candidate, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load places: read %q: %w", jsonPath, err)
	}

	var data []PlaceSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, nil, fmt.Errorf("load places: parse json: %w", err)
	}

	cands := make([]domain.Candidate, 0, len(data))
	for i, item := range data {
		c, err := item.ToCandidate()
		if err != nil {
			return nil, nil, fmt.Errorf("load places: item at index %d: %w", i+1, err)
		}
		cands = append(cands, c)
	}

	return data, cands, nil
}

// Populate the database with place data from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	seeds, cands, err := LoadPlaceSeeds(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed places: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed places: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO places (
		place_id, destination, name, kind, lat, lon,
		tags, rating, price_tier, stay_minutes, popularity, hours
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12::jsonb)
	ON CONFLICT (place_id) DO UPDATE
	SET destination = EXCLUDED.destination,
		name = EXCLUDED.name,
		kind = EXCLUDED.kind,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		tags = EXCLUDED.tags,
		rating = EXCLUDED.rating,
		price_tier = EXCLUDED.price_tier,
		stay_minutes = EXCLUDED.stay_minutes,
		popularity = EXCLUDED.popularity,
		hours = EXCLUDED.hours;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed places: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range cands {
		tags, err := json.Marshal(c.Tags)
		if err != nil {
			return 0, fmt.Errorf("seed places: encode tags place_id=%s: %w", c.ID, err)
		}
		hours, err := json.Marshal(c.Hours)
		if err != nil {
			return 0, fmt.Errorf("seed places: encode hours place_id=%s: %w", c.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID, strings.TrimSpace(seeds[i].Destination), c.Name, string(c.Kind),
			c.Location.Lat, c.Location.Lon, string(tags), c.Rating, c.PriceTier,
			c.StayMinutes, c.Popularity, string(hours),
		); err != nil {
			return 0, fmt.Errorf("seed places: insert place_id=%s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed places: commit tx: %w", err)
	}

	return len(cands), nil
}
