package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

const placeColumns = `id, place_id, name, address, website, email, locale, needs_review, ignore, read_confirmed, contacted_at`

// PlaceStore implements outreach.PlaceRepository on SQLite.
type PlaceStore struct {
	db *sql.DB
}

// NewPlaceStore wraps an opened database.
func NewPlaceStore(db *sql.DB) *PlaceStore {
	return &PlaceStore{db: db}
}

// FindByExternalID loads a venue by place id.
func (s *PlaceStore) FindByExternalID(ctx context.Context, placeID string) (outreach.Venue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE place_id = ?`, placeID)
	venue, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return outreach.Venue{}, fmt.Errorf("place %s: %w", placeID, outreach.ErrNotFound)
		}
		return outreach.Venue{}, fmt.Errorf("find place %s: %w", placeID, err)
	}
	return venue, nil
}

// CreateFromExternal inserts the venue unless the place id exists and returns the stored row.
func (s *PlaceStore) CreateFromExternal(ctx context.Context, venue outreach.Venue) (outreach.Venue, error) {
	if venue.PlaceID == "" {
		return outreach.Venue{}, fmt.Errorf("place id is required: %w", outreach.ErrInvalidVenue)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO places (place_id, name, address, website, email, locale, country, needs_review, ignore, read_confirmed, contacted_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (place_id) DO NOTHING`, venueArgs(venue)...)
	if err != nil {
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
	row := s.db.QueryRowContext(ctx, `
INSERT INTO places (place_id, name, address, website, email, locale, country, needs_review, ignore, read_confirmed, contacted_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (place_id) DO UPDATE SET
	name = CASE WHEN places.contacted_at IS NULL THEN excluded.name ELSE places.name END,
	address = excluded.address,
	website = excluded.website,
	email = CASE WHEN places.contacted_at IS NULL THEN excluded.email ELSE places.email END,
	locale = CASE WHEN places.contacted_at IS NULL THEN excluded.locale ELSE places.locale END,
	country = CASE WHEN places.contacted_at IS NULL THEN excluded.country ELSE places.country END,
	needs_review = CASE WHEN places.contacted_at IS NULL THEN excluded.needs_review ELSE places.needs_review END,
	ignore = excluded.ignore,
	read_confirmed = places.read_confirmed OR excluded.read_confirmed,
	contacted_at = COALESCE(places.contacted_at, excluded.contacted_at)
RETURNING `+placeColumns, venueArgs(venue)...)
	saved, err := scanVenue(row)
	if err != nil {
		return outreach.Venue{}, fmt.Errorf("save place %s: %w", venue.PlaceID, err)
	}
	return saved, nil
}

// FindAllNeedingReview lists venues awaiting a manual check.
func (s *PlaceStore) FindAllNeedingReview(ctx context.Context) ([]outreach.Venue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+placeColumns+` FROM places
WHERE needs_review = 1 AND ignore = 0 AND contacted_at IS NULL ORDER BY id`)
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

// Summary aggregates outreach counters.
func (s *PlaceStore) Summary(ctx context.Context) (outreach.Summary, error) {
	var summary outreach.Summary
	err := s.db.QueryRowContext(ctx, `
SELECT
	COALESCE(SUM(contacted_at IS NOT NULL), 0),
	COALESCE(SUM(read_confirmed), 0),
	COALESCE(SUM(needs_review), 0),
	COUNT(DISTINCT CASE WHEN contacted_at IS NOT NULL THEN country END)
FROM places`).Scan(&summary.Contacted, &summary.Reacted, &summary.NeedReview, &summary.NumCountries)
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
		toMillis(v.ContactedAt),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVenue(row scanner) (outreach.Venue, error) {
	var (
		v         outreach.Venue
		contacted sql.NullInt64
	)
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
		&contacted,
	)
	if err != nil {
		return outreach.Venue{}, err
	}
	v.ContactedAt = fromMillis(contacted)
	return v, nil
}
