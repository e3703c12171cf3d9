package places

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// GoogleDirectory implements Directory on top of the Google Places API.
type GoogleDirectory struct {
	client *maps.Client
}

// NewGoogleDirectory builds a client authenticated with apiKey. Extra options
// such as maps.WithBaseURL are passed through.
func NewGoogleDirectory(apiKey string, opts ...maps.ClientOption) (*GoogleDirectory, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("places api key is required")
	}
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleDirectory{client: client}, nil
}

// TextSearch implements Directory.
func (g *GoogleDirectory) TextSearch(ctx context.Context, country, query string) (Page, error) {
	resp, err := g.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:  query,
		Region: country,
		Type:   maps.PlaceTypeRestaurant,
	})
	if err != nil {
		return Page{}, fmt.Errorf("text search %q: %w", query, err)
	}
	return toPage(resp), nil
}

// NextPage implements Directory.
func (g *GoogleDirectory) NextPage(ctx context.Context, token string) (Page, error) {
	resp, err := g.client.TextSearch(ctx, &maps.TextSearchRequest{PageToken: token})
	if err != nil {
		return Page{}, fmt.Errorf("text search next page: %w", err)
	}
	return toPage(resp), nil
}

// Details implements Directory.
func (g *GoogleDirectory) Details(ctx context.Context, placeID string) (Details, error) {
	resp, err := g.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskWebsite,
		},
	})
	if err != nil {
		return Details{}, fmt.Errorf("place details %s: %w", placeID, err)
	}
	return Details{
		PlaceID: placeID,
		Name:    resp.Name,
		Address: resp.FormattedAddress,
		Website: resp.Website,
	}, nil
}

func toPage(resp maps.PlacesSearchResponse) Page {
	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.PlaceID != "" {
			ids = append(ids, r.PlaceID)
		}
	}
	return Page{PlaceIDs: ids, NextToken: resp.NextPageToken}
}
