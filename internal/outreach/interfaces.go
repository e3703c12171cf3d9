package outreach

import (
	"context"
	"io"
	"iter"
	"time"
)

// PlaceRepository persists venues keyed by their external place id.
type PlaceRepository interface {
	// FindByExternalID returns ErrNotFound when the venue is unknown.
	FindByExternalID(ctx context.Context, placeID string) (Venue, error)
	// CreateFromExternal inserts the venue unless one with the same place id
	// exists and returns the stored record either way.
	CreateFromExternal(ctx context.Context, venue Venue) (Venue, error)
	// Save inserts a venue without an internal id and updates it otherwise.
	Save(ctx context.Context, venue Venue) (Venue, error)
	FindAllNeedingReview(ctx context.Context) ([]Venue, error)
	Summary(ctx context.Context) (Summary, error)
}

// JobRepository persists job metadata.
type JobRepository interface {
	// Save assigns an id on first persist.
	Save(ctx context.Context, job Job) (Job, error)
	FindAll(ctx context.Context) ([]Job, error)
}

// VenueStream yields venues in directory order. Per-venue failures are
// yielded as errors; a failure that ends the stream early is reported by Err.
type VenueStream interface {
	All(ctx context.Context) iter.Seq2[Venue, error]
	Err() error
}

// PlaceSource searches a places directory. The initial search runs inside
// Fetch so its failure reaches the caller.
type PlaceSource interface {
	Fetch(ctx context.Context, country, city string) (VenueStream, error)
}

// Scraper extracts contact data from a venue website. Implementations never fail.
type Scraper interface {
	Scrape(ctx context.Context, url string) WebsiteInfo
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Hasher computes digests used as archive keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job ids.
type IDGenerator interface {
	NewID() (string, error)
}
