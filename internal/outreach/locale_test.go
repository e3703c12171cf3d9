package outreach

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lang    string
		country string
		want    string
	}{
		{name: "language and country", lang: "de-CH", country: "CH", want: "de-CH"},
		{name: "bare language with country", lang: "de", country: "CH", want: "de-CH"},
		{name: "country overrides tag region", lang: "de-DE", country: "AT", want: "de-AT"},
		{name: "no country drops region", lang: "en-US", country: "", want: "en"},
		{name: "no language", lang: "", country: "CH", want: ""},
		{name: "garbage language", lang: "###", country: "CH", want: ""},
		{name: "macro region ignored", lang: "fr", country: "EU", want: "fr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, BuildLocale(tt.lang, tt.country))
		})
	}
}

func TestCountryFromCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "CH", CountryFromCode("ch"))
	require.Equal(t, "DE", CountryFromCode("DE"))
	require.Empty(t, CountryFromCode("com"))
	require.Empty(t, CountryFromCode("eu"))
	require.Empty(t, CountryFromCode(""))
}

func TestLocaleParts(t *testing.T) {
	t.Parallel()

	require.Equal(t, "CH", LocaleCountry("de-CH"))
	require.Empty(t, LocaleCountry("de"))
	require.Equal(t, "de", LocaleLanguage("de-CH"))
	require.Equal(t, "de-CH", CanonicalLocale("de_CH"))
	require.Empty(t, CanonicalLocale(""))

	v := Venue{Locale: "fr-CH"}
	require.Equal(t, "CH", v.Country())
}
