// Package places streams venues for a city from a places directory and
// resolves them against the venue store.
package places

import (
	"context"
	"errors"
)

// Page is one page of directory search results.
type Page struct {
	PlaceIDs  []string
	NextToken string
}

// Details is the subset of directory data stored for a venue.
type Details struct {
	PlaceID string
	Name    string
	Address string
	Website string
}

// Directory is a paginated places search API.
type Directory interface {
	// TextSearch runs the initial restaurant search for query within country.
	TextSearch(ctx context.Context, country, query string) (Page, error)
	// NextPage fetches the page behind a continuation token.
	NextPage(ctx context.Context, token string) (Page, error)
	Details(ctx context.Context, placeID string) (Details, error)
}

// ErrDirectoryUnavailable is returned by Unavailable.
var ErrDirectoryUnavailable = errors.New("places directory not configured")

// Unavailable stands in for a directory when no API key is configured.
type Unavailable struct{}

// TextSearch implements Directory.
func (Unavailable) TextSearch(context.Context, string, string) (Page, error) {
	return Page{}, ErrDirectoryUnavailable
}

// NextPage implements Directory.
func (Unavailable) NextPage(context.Context, string) (Page, error) {
	return Page{}, ErrDirectoryUnavailable
}

// Details implements Directory.
func (Unavailable) Details(context.Context, string) (Details, error) {
	return Details{}, ErrDirectoryUnavailable
}
