package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

func TestEncodeEnvelope(t *testing.T) {
	t.Parallel()

	data, err := Encode(SearchMessage{Country: "CH", City: "Zürich"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"search","payload":{"country":"CH","city":"Zürich"}}`, string(data))
}

func TestEncodeJobIncludesProcessed(t *testing.T) {
	t.Parallel()

	finished := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	job := outreach.Job{
		ID:         "j1",
		Country:    "CH",
		City:       "Bern",
		Places:     []outreach.Venue{{PlaceID: "p1", Name: "Tibits"}},
		CreatedAt:  finished.Add(-time.Minute),
		FinishedAt: &finished,
	}
	data, err := Encode(NewJobMessage(job))
	require.NoError(t, err)

	var env struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	require.Equal(t, TypeJob, env.Type)
	require.Equal(t, "j1", env.Payload["id"])
	require.InDelta(t, 1.0, env.Payload["processed"], 1e-9)
	require.Equal(t, "2024-03-01T10:00:00Z", env.Payload["finishedAt"])
}

func TestDecodeKnownTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want Message
	}{
		{
			name: "search",
			data: `{"type":"search","payload":{"country":"de","city":" Berlin "}}`,
			want: SearchMessage{Country: "de", City: " Berlin "},
		},
		{
			name: "contact place",
			data: `{"type":"contactPlace","payload":{"place":{"placeId":"p1","name":"Hiltl","email":"info@hiltl.ch","locale":"de-CH"}}}`,
			want: ContactPlaceMessage{Place: outreach.Venue{PlaceID: "p1", Name: "Hiltl", Email: "info@hiltl.ch", Locale: "de-CH"}},
		},
		{
			name: "summary",
			data: `{"type":"summary","payload":{"contacted":3,"reacted":1,"needReview":2,"numCountries":1}}`,
			want: SummaryMessage{Summary: outreach.Summary{Contacted: 3, Reacted: 1, NeedReview: 2, NumCountries: 1}},
		},
		{
			name: "place status",
			data: `{"type":"placeStatus","payload":{"place":{"placeId":"p1","name":"A"},"status":"SCRAPING"}}`,
			want: PlaceStatusMessage{Place: outreach.Venue{PlaceID: "p1", Name: "A"}, Status: outreach.PlaceStatusScraping},
		},
		{
			name: "search done",
			data: `{"type":"searchDone","payload":{"done":true}}`,
			want: SearchDoneMessage{Done: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode([]byte(tt.data))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"type":"bogus","payload":{}}`))
	require.ErrorIs(t, err, ErrUnknownMessage)

	_, err = Decode([]byte(`not json`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"type":"search"}`))
	require.ErrorContains(t, err, "payload is missing")

	_, err = Decode([]byte(`{"type":"search","payload":{"country":7}}`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnknownMessage)
}

func TestEveryTypeRoundTrips(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		NewJobMessage(outreach.Job{ID: "j", Country: "CH", City: "Basel", Places: []outreach.Venue{}}),
		SummaryMessage{},
		SearchMessage{Country: "CH", City: "Basel"},
		PlaceStatusMessage{Status: outreach.PlaceStatusContacted},
		SearchDoneMessage{JobID: "j", Done: true, Processed: 2},
		SupportedLocalesMessage{Locales: []string{"de-CH"}},
		SupportedCountriesMessage{Countries: []string{"CH", "DE"}},
		ContactPlaceMessage{},
		JobFailedMessage{JobID: "j", Error: "quota"},
		ErrorMessage{Request: TypeSearch, Error: "bad"},
	}
	seen := map[string]bool{}
	for _, msg := range msgs {
		data, err := Encode(msg)
		require.NoError(t, err)
		decoded, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, msg.Type(), decoded.Type())
		seen[msg.Type()] = true
	}
	require.Len(t, seen, len(decoders))
}

func TestSearchMessageQuery(t *testing.T) {
	t.Parallel()

	q := SearchMessage{Country: " ch", City: " Zürich "}.Query()
	require.Equal(t, outreach.Query{Country: "CH", City: "Zürich"}, q)
}
