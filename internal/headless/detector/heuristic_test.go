package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-outreach/internal/fetcher"
)

func TestHeuristicShouldPromote(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Pasta Pizza Salat ", 40)
	tests := []struct {
		name string
		resp fetcher.Response
		want bool
	}{
		{name: "empty body", resp: fetcher.Response{StatusCode: 200, Body: []byte("  ")}, want: true},
		{name: "spa marker", resp: fetcher.Response{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}, want: true},
		{
			name: "script shell",
			resp: fetcher.Response{StatusCode: 200, Body: []byte(`<html><body><script>render()</script><p>Loading</p></body></html>`)},
			want: true,
		},
		{
			name: "rendered page",
			resp: fetcher.Response{StatusCode: 200, Body: []byte(`<html><body><script>x()</script><p>` + long + `</p></body></html>`)},
			want: false,
		},
		{
			name: "static page without scripts",
			resp: fetcher.Response{StatusCode: 200, Body: []byte(`<html><body><p>Hi</p></body></html>`)},
			want: false,
		},
		{name: "non 200", resp: fetcher.Response{StatusCode: 404, Body: []byte("not found")}, want: false},
		{name: "already headless", resp: fetcher.Response{StatusCode: 200, UsedHeadless: true}, want: false},
	}

	h := NewHeuristic(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, h.ShouldPromote(tt.resp))
		})
	}
}
