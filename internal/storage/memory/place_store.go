package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// PlaceStore keeps venues in a map keyed by external place id.
type PlaceStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[string]outreach.Venue
}

// NewPlaceStore constructs an empty PlaceStore.
func NewPlaceStore() *PlaceStore {
	return &PlaceStore{byID: make(map[string]outreach.Venue)}
}

// FindByExternalID returns the stored venue or outreach.ErrNotFound.
func (s *PlaceStore) FindByExternalID(_ context.Context, placeID string) (outreach.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	venue, ok := s.byID[placeID]
	if !ok {
		return outreach.Venue{}, fmt.Errorf("place %s: %w", placeID, outreach.ErrNotFound)
	}
	return venue, nil
}

// CreateFromExternal stores the venue unless the place id is already known.
func (s *PlaceStore) CreateFromExternal(_ context.Context, venue outreach.Venue) (outreach.Venue, error) {
	if venue.PlaceID == "" {
		return outreach.Venue{}, fmt.Errorf("place id is required: %w", outreach.ErrInvalidVenue)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byID[venue.PlaceID]; ok {
		return existing, nil
	}
	s.nextID++
	venue.ID = s.nextID
	s.byID[venue.PlaceID] = venue
	return venue, nil
}

// Save inserts the venue or merges it into the one stored under its place
// id; see outreach.Venue.Merge.
func (s *PlaceStore) Save(_ context.Context, venue outreach.Venue) (outreach.Venue, error) {
	if venue.PlaceID == "" {
		return outreach.Venue{}, fmt.Errorf("place id is required: %w", outreach.ErrInvalidVenue)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byID[venue.PlaceID]; ok {
		venue = existing.Merge(venue)
	} else if venue.ID == 0 {
		s.nextID++
		venue.ID = s.nextID
	}
	s.byID[venue.PlaceID] = venue
	return venue, nil
}

// FindAllNeedingReview lists venues flagged for review that are neither ignored nor contacted.
func (s *PlaceStore) FindAllNeedingReview(_ context.Context) ([]outreach.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outreach.Venue, 0)
	for _, venue := range s.byID {
		if venue.NeedsReview && !venue.Ignore && !venue.Contacted() {
			out = append(out, venue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Summary counts contacted, confirmed and review-pending venues.
func (s *PlaceStore) Summary(_ context.Context) (outreach.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summary outreach.Summary
	countries := make(map[string]struct{})
	for _, venue := range s.byID {
		if venue.Contacted() {
			summary.Contacted++
			countries[venue.Country()] = struct{}{}
		}
		if venue.ReadConfirmed {
			summary.Reacted++
		}
		if venue.NeedsReview {
			summary.NeedReview++
		}
	}
	summary.NumCountries = len(countries)
	return summary, nil
}

// Len reports how many venues are stored.
func (s *PlaceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
