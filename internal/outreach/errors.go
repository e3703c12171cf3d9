package outreach

import "errors"

var (
	// ErrNotFound is returned when a venue or job does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyContacted is returned when outreach is requested for a venue that was already contacted.
	ErrAlreadyContacted = errors.New("venue already contacted")
	// ErrInvalidVenue is returned when a venue lacks data required by an operation.
	ErrInvalidVenue = errors.New("invalid venue")
	// ErrInvalidQuery is returned when a search lacks a country or city.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnsupportedLocale is returned when no template exists for a locale.
	ErrUnsupportedLocale = errors.New("unsupported locale")
)
