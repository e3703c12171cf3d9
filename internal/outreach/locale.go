package outreach

import (
	"strings"

	"golang.org/x/text/language"
)

// BuildLocale combines a page language tag with a country code. The region
// of the result is always the country, so a region present in the language
// tag is dropped when no country is known. An unparsable language yields "".
func BuildLocale(lang, country string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	if country == "" {
		return base.String()
	}
	region, err := language.ParseRegion(country)
	if err != nil || !region.IsCountry() {
		return base.String()
	}
	out, err := language.Compose(base, region)
	if err != nil {
		return base.String()
	}
	return out.String()
}

// CountryFromCode returns the upper-case ISO 3166-1 alpha-2 code when code is
// a two-letter country, or "" otherwise.
func CountryFromCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) != 2 {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return ""
	}
	return region.String()
}

// LocaleCountry extracts the region of a locale such as "de-CH".
func LocaleCountry(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	region, conf := tag.Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}

// LocaleLanguage extracts the base language of a locale such as "de-CH".
func LocaleLanguage(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// CanonicalLocale normalizes a locale string, returning "" when it cannot be parsed.
func CanonicalLocale(locale string) string {
	if strings.TrimSpace(locale) == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return ""
	}
	return tag.String()
}
