package progress

import (
	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// Message type tags carried in the envelope.
const (
	TypeJob                = "job"
	TypeSummary            = "summary"
	TypeSearch             = "search"
	TypePlaceStatus        = "placeStatus"
	TypeSearchDone         = "searchDone"
	TypeSupportedLocales   = "supportedLocales"
	TypeSupportedCountries = "supportedCountries"
	TypeContactPlace       = "contactPlace"
	TypeJobFailed          = "jobFailed"
	TypeError              = "error"
)

// Message is one of the closed set of payloads exchanged with clients.
type Message interface {
	Type() string
	message()
}

// JobMessage carries a snapshot of a job.
type JobMessage struct {
	outreach.Job
	ProcessedCount int `json:"processed"`
}

// NewJobMessage snapshots job.
func NewJobMessage(job outreach.Job) JobMessage {
	return JobMessage{Job: job, ProcessedCount: job.Processed()}
}

// SummaryMessage carries the outreach totals.
type SummaryMessage struct {
	outreach.Summary
}

// SearchMessage asks the server to start a job.
type SearchMessage struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// Query converts the request into a normalized query.
func (m SearchMessage) Query() outreach.Query {
	return outreach.Query{Country: m.Country, City: m.City}.Normalize()
}

// PlaceStatusMessage reports the state of one venue inside a job.
type PlaceStatusMessage struct {
	JobID  string               `json:"jobId,omitempty"`
	Place  outreach.Venue       `json:"place"`
	Status outreach.PlaceStatus `json:"status"`
}

// SearchDoneMessage ends a job's event stream.
type SearchDoneMessage struct {
	JobID     string `json:"jobId,omitempty"`
	Done      bool   `json:"done"`
	Processed int    `json:"processed"`
}

// SupportedLocalesMessage lists the locales with an e-mail template.
type SupportedLocalesMessage struct {
	Locales []string `json:"locales"`
}

// SupportedCountriesMessage lists the countries that can be searched.
type SupportedCountriesMessage struct {
	Countries []string `json:"countries"`
}

// ContactPlaceMessage asks the server to contact a reviewed venue.
type ContactPlaceMessage struct {
	Place outreach.Venue `json:"place"`
}

// JobFailedMessage reports that a job's search could not run.
type JobFailedMessage struct {
	JobID   string `json:"jobId,omitempty"`
	Country string `json:"country"`
	City    string `json:"city"`
	Error   string `json:"error"`
}

// ErrorMessage answers a client request that could not be served.
type ErrorMessage struct {
	Request string `json:"request,omitempty"`
	Error   string `json:"error"`
}

func (JobMessage) Type() string                { return TypeJob }
func (SummaryMessage) Type() string            { return TypeSummary }
func (SearchMessage) Type() string             { return TypeSearch }
func (PlaceStatusMessage) Type() string        { return TypePlaceStatus }
func (SearchDoneMessage) Type() string         { return TypeSearchDone }
func (SupportedLocalesMessage) Type() string   { return TypeSupportedLocales }
func (SupportedCountriesMessage) Type() string { return TypeSupportedCountries }
func (ContactPlaceMessage) Type() string       { return TypeContactPlace }
func (JobFailedMessage) Type() string          { return TypeJobFailed }
func (ErrorMessage) Type() string              { return TypeError }

func (JobMessage) message()                {}
func (SummaryMessage) message()            {}
func (SearchMessage) message()             {}
func (PlaceStatusMessage) message()        {}
func (SearchDoneMessage) message()         {}
func (SupportedLocalesMessage) message()   {}
func (SupportedCountriesMessage) message() {}
func (ContactPlaceMessage) message()       {}
func (JobFailedMessage) message()          {}
func (ErrorMessage) message()              {}
