package places

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// Resolver turns directory place ids into stored venues. A venue is looked
// up first and only fetched from the directory when the store has no record.
type Resolver struct {
	repo          outreach.PlaceRepository
	dir           Directory
	defaultLocale string
	group         singleflight.Group
}

// NewResolver wires a resolver. New venues get defaultLocale until a scrape
// finds a better one.
func NewResolver(repo outreach.PlaceRepository, dir Directory, defaultLocale string) *Resolver {
	return &Resolver{repo: repo, dir: dir, defaultLocale: defaultLocale}
}

// Resolve returns the stored venue for placeID, creating it from directory
// details on first sight.
func (r *Resolver) Resolve(ctx context.Context, placeID string) (outreach.Venue, error) {
	v, err, _ := r.group.Do(placeID, func() (any, error) {
		venue, err := r.repo.FindByExternalID(ctx, placeID)
		if err == nil {
			return venue, nil
		}
		if !errors.Is(err, outreach.ErrNotFound) {
			return nil, fmt.Errorf("find venue %s: %w", placeID, err)
		}
		details, err := r.dir.Details(ctx, placeID)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(details.Name) == "" {
			return nil, fmt.Errorf("place %s has no name: %w", placeID, outreach.ErrInvalidVenue)
		}
		created, err := r.repo.CreateFromExternal(ctx, outreach.Venue{
			PlaceID:     placeID,
			Name:        details.Name,
			Address:     details.Address,
			Website:     details.Website,
			Locale:      r.defaultLocale,
			NeedsReview: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create venue %s: %w", placeID, err)
		}
		return created, nil
	})
	if err != nil {
		return outreach.Venue{}, err
	}
	return v.(outreach.Venue), nil
}
