package mail

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

func TestSupportedLocales(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"de-CH"}, SupportedLocales())
}

func TestForLocale(t *testing.T) {
	t.Parallel()
	r, err := NewRenderer()
	require.NoError(t, err)

	tests := []struct {
		name    string
		locale  string
		want    string
		wantErr bool
	}{
		{name: "exact", locale: "de-CH", want: "de-CH"},
		{name: "same language other region", locale: "de-DE", want: "de-CH"},
		{name: "bare language", locale: "de", want: "de-CH"},
		{name: "unsupported language", locale: "fr-CH", wantErr: true},
		{name: "garbage", locale: "not a locale", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tmpl, err := r.ForLocale(tc.locale)
			if tc.wantErr {
				require.ErrorIs(t, err, outreach.ErrUnsupportedLocale)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, tmpl.Locale)
			require.Equal(t, "Ihr Menü", tmpl.Subject)
		})
	}
}

func TestRenderEmail(t *testing.T) {
	t.Parallel()
	r, err := NewRenderer()
	require.NoError(t, err)

	subject, body, err := r.RenderEmail("de-CH", Data{
		RestaurantName:      "Zum <Löwen>",
		ReadConfirmationURL: "https://example.org/confirm/p1",
		TipsURL:             "https://example.org/tips/de-CH",
	})
	require.NoError(t, err)
	require.Equal(t, "Ihr Menü", subject)
	require.Contains(t, body, "Zum &lt;Löwen&gt;")
	require.Contains(t, body, `href="https://example.org/confirm/p1"`)
	require.Contains(t, body, `href="https://example.org/tips/de-CH"`)

	_, _, err = r.RenderEmail("it-IT", Data{})
	require.ErrorIs(t, err, outreach.ErrUnsupportedLocale)
}

func TestRenderTips(t *testing.T) {
	t.Parallel()
	r, err := NewRenderer()
	require.NoError(t, err)

	page, err := r.RenderTips("de-CH")
	require.NoError(t, err)
	require.Contains(t, string(page), "Tipps für vegane Gerichte")

	_, err = r.RenderTips("en-US")
	require.ErrorIs(t, err, outreach.ErrUnsupportedLocale)
}

func TestRenderConfirmation(t *testing.T) {
	t.Parallel()
	r, err := NewRenderer()
	require.NoError(t, err)

	page, err := r.RenderConfirmation("de-CH")
	require.NoError(t, err)
	require.Contains(t, string(page), "Besten Dank")
	require.Contains(t, string(page), `lang="de"`)

	page, err = r.RenderConfirmation("")
	require.NoError(t, err)
	require.Contains(t, string(page), "Thank you")
	require.Contains(t, string(page), `lang="en"`)
}
