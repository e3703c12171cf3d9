package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

const placeColumns = `id, place_id, name, address, website, email, locale, needs_review, ignore, read_confirmed, contacted_at`

// PlaceStore implements outreach.PlaceRepository on Postgres.
type PlaceStore struct {
	db DB
}

// NewPlaceStore wraps an open pool (or a pgxmock pool in tests).
func NewPlaceStore(db DB) (*PlaceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PlaceStore{db: db}, nil
}

// Close releases the underlying pool.
func (s *PlaceStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// FindByExternalID loads a venue by place id.
func (s *PlaceStore) FindByExternalID(ctx context.Context, placeID string) (outreach.Venue, error) {
	row := s.db.QueryRow(ctx, `SELECT `+placeColumns+` FROM places WHERE place_id = $1`, placeID)
	venue, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outreach.Venue{}, fmt.Errorf("place %s: %w", placeID, outreach.ErrNotFound)
		}
		return outreach.Venue{}, fmt.Errorf("find place %s: %w", placeID, err)
	}
	return venue, nil
}

// CreateFromExternal inserts the venue unless the place id exists, then
// returns the stored row. The unique constraint arbitrates concurrent inserts.
func (s *PlaceStore) CreateFromExternal(ctx context.Context, venue outreach.Venue) (outreach.Venue, error) {
	if venue.PlaceID == "" {
		return outreach.Venue{}, fmt.Errorf("place id is required: %w", outreach.ErrInvalidVenue)
	}
	query := `
INSERT INTO places (place_id, name, address, website, email, locale, country, needs_review, ignore, read_confirmed, contacted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (place_id) DO NOTHING`
	if _, err := s.db.Exec(ctx, query, venueArgs(venue)...); err != nil {
		return outreach.Venue{}, fmt.Errorf("insert place %s: %w", venue.PlaceID, err)
	}
	return s.FindByExternalID(ctx, venue.PlaceID)
}

// Save upserts the venue keyed by place id and returns the stored row.
// Contact state only moves forward, matching outreach.Venue.Merge.
func (s *PlaceStore) Save(ctx context.Context, venue outreach.Venue) (outreach.Venue, error) {
	if venue.PlaceID == "" {
		return outreach.Venue{}, fmt.Errorf("place id is required: %w", outreach.ErrInvalidVenue)
	}
	query := `
INSERT INTO places (place_id, name, address, website, email, locale, country, needs_review, ignore, read_confirmed, contacted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (place_id) DO UPDATE SET
	name = CASE WHEN places.contacted_at IS NULL THEN EXCLUDED.name ELSE places.name END,
	address = EXCLUDED.address,
	website = EXCLUDED.website,
	email = CASE WHEN places.contacted_at IS NULL THEN EXCLUDED.email ELSE places.email END,
	locale = CASE WHEN places.contacted_at IS NULL THEN EXCLUDED.locale ELSE places.locale END,
	country = CASE WHEN places.contacted_at IS NULL THEN EXCLUDED.country ELSE places.country END,
	needs_review = CASE WHEN places.contacted_at IS NULL THEN EXCLUDED.needs_review ELSE places.needs_review END,
	ignore = EXCLUDED.ignore,
	read_confirmed = places.read_confirmed OR EXCLUDED.read_confirmed,
	contacted_at = COALESCE(places.contacted_at, EXCLUDED.contacted_at)
RETURNING ` + placeColumns
	saved, err := scanVenue(s.db.QueryRow(ctx, query, venueArgs(venue)...))
	if err != nil {
		return outreach.Venue{}, fmt.Errorf("save place %s: %w", venue.PlaceID, err)
	}
	return saved, nil
}

// FindAllNeedingReview lists venues awaiting a manual check.
func (s *PlaceStore) FindAllNeedingReview(ctx context.Context) ([]outreach.Venue, error) {
	rows, err := s.db.Query(ctx, `SELECT `+placeColumns+` FROM places
WHERE needs_review AND NOT ignore AND contacted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query review places: %w", err)
	}
	defer rows.Close()
	out := make([]outreach.Venue, 0)
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review place: %w", err)
		}
		out = append(out, venue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review places: %w", err)
	}
	return out, nil
}

// Summary aggregates outreach counters in one pass over the table.
func (s *PlaceStore) Summary(ctx context.Context) (outreach.Summary, error) {
	query := `
SELECT
	COUNT(*) FILTER (WHERE contacted_at IS NOT NULL),
	COUNT(*) FILTER (WHERE read_confirmed),
	COUNT(*) FILTER (WHERE needs_review),
	COUNT(DISTINCT country) FILTER (WHERE contacted_at IS NOT NULL)
FROM places`
	var summary outreach.Summary
	err := s.db.QueryRow(ctx, query).Scan(
		&summary.Contacted,
		&summary.Reacted,
		&summary.NeedReview,
		&summary.NumCountries,
	)
	if err != nil {
		return outreach.Summary{}, fmt.Errorf("summarize places: %w", err)
	}
	return summary, nil
}

func venueArgs(v outreach.Venue) []any {
	return []any{
		v.PlaceID,
		v.Name,
		v.Address,
		v.Website,
		v.Email,
		v.Locale,
		v.Country(),
		v.NeedsReview,
		v.Ignore,
		v.ReadConfirmed,
		v.ContactedAt,
	}
}

func scanVenue(row pgx.Row) (outreach.Venue, error) {
	var v outreach.Venue
	err := row.Scan(
		&v.ID,
		&v.PlaceID,
		&v.Name,
		&v.Address,
		&v.Website,
		&v.Email,
		&v.Locale,
		&v.NeedsReview,
		&v.Ignore,
		&v.ReadConfirmed,
		&v.ContactedAt,
	)
	return v, err
}
