package outreach

import (
	"strings"
	"time"
)

// PlaceStatus describes the processing state of a venue inside a job.
type PlaceStatus string

// Place status values carried by placeStatus events.
const (
	PlaceStatusScraping  PlaceStatus = "SCRAPING"
	PlaceStatusScraped   PlaceStatus = "SCRAPED"
	PlaceStatusContacted PlaceStatus = "CONTACTED"
)

// Venue is a restaurant tracked for potential outreach.
type Venue struct {
	ID            int64      `json:"id,omitempty"`
	PlaceID       string     `json:"placeId" validate:"required"`
	Name          string     `json:"name" validate:"required,notblank"`
	Address       string     `json:"address,omitempty"`
	Website       string     `json:"website,omitempty"`
	Email         string     `json:"email,omitempty" validate:"required,email"`
	Locale        string     `json:"locale,omitempty"`
	NeedsReview   bool       `json:"needsReview"`
	Ignore        bool       `json:"ignore"`
	ReadConfirmed bool       `json:"readConfirmed"`
	ContactedAt   *time.Time `json:"contactedAt,omitempty"`
}

// Contacted reports whether an e-mail was already sent to the venue.
func (v Venue) Contacted() bool {
	return v.ContactedAt != nil
}

// Merge returns next as it should be stored over v, the currently stored
// row. Contact state only moves forward: once v was contacted its send time
// and the contact fields it was sent with stay, and a read confirmation is
// never withdrawn.
func (v Venue) Merge(next Venue) Venue {
	next.ID = v.ID
	next.ReadConfirmed = v.ReadConfirmed || next.ReadConfirmed
	if v.Contacted() {
		next.ContactedAt = v.ContactedAt
		next.Name = v.Name
		next.Email = v.Email
		next.Locale = v.Locale
		next.NeedsReview = v.NeedsReview
	}
	return next
}

// Country returns the region part of the venue locale, if any.
func (v Venue) Country() string {
	return LocaleCountry(v.Locale)
}

// Query names the area a job searches.
type Query struct {
	Country string `json:"country" validate:"required,len=2,alpha"`
	City    string `json:"city" validate:"required,notblank"`
}

// Normalize trims the query and upper-cases the country code.
func (q Query) Normalize() Query {
	return Query{
		Country: strings.ToUpper(strings.TrimSpace(q.Country)),
		City:    strings.TrimSpace(q.City),
	}
}

// Job records one outreach run and the venues it processed so far.
type Job struct {
	ID         string     `json:"id,omitempty"`
	Country    string     `json:"country"`
	City       string     `json:"city"`
	Places     []Venue    `json:"places"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Processed is the number of venues the job has completed.
func (j Job) Processed() int {
	return len(j.Places)
}

// Finished reports whether the venue stream for the job was exhausted.
func (j Job) Finished() bool {
	return j.FinishedAt != nil
}

// WebsiteInfo is the contact data scraped from a venue website.
type WebsiteInfo struct {
	Email  string `json:"email,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// Empty reports whether nothing was found.
func (w WebsiteInfo) Empty() bool {
	return w.Email == "" && w.Locale == ""
}

// Summary aggregates outreach progress across all stored venues.
type Summary struct {
	Contacted    int `json:"contacted"`
	Reacted      int `json:"reacted"`
	NeedReview   int `json:"needReview"`
	NumCountries int `json:"numCountries"`
}
