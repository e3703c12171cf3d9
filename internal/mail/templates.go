// Package mail renders outreach e-mails and pages from embedded templates
// and delivers e-mails over SMTP.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"

	"golang.org/x/text/language"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template describes one localized outreach e-mail.
type Template struct {
	Name    string
	Locale  string
	Subject string
}

func (t Template) file() string {
	return fmt.Sprintf("email.%s.%s.html", t.Name, t.Locale)
}

// catalog lists every e-mail template; the first entry per language wins
// when a locale only matches by language.
var catalog = []Template{
	{Name: "simple", Locale: "de-CH", Subject: "Ihr Menü"},
}

// Data fills the e-mail placeholders.
type Data struct {
	RestaurantName      string
	ReadConfirmationURL string
	TipsURL             string
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl    *template.Template
	matcher language.Matcher
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	tags := make([]language.Tag, 0, len(catalog))
	for _, t := range catalog {
		tags = append(tags, language.MustParse(t.Locale))
	}
	return &Renderer{tmpl: tmpl, matcher: language.NewMatcher(tags)}, nil
}

// SupportedLocales returns the locales with an e-mail template.
func SupportedLocales() []string {
	out := make([]string, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, t.Locale)
	}
	sort.Strings(out)
	return out
}

// ForLocale picks the template for locale. Locales sharing the template's
// language match; anything else is ErrUnsupportedLocale.
func (r *Renderer) ForLocale(locale string) (Template, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %q", outreach.ErrUnsupportedLocale, locale)
	}
	_, idx, conf := r.matcher.Match(tag)
	if conf == language.No {
		return Template{}, fmt.Errorf("%w: %q", outreach.ErrUnsupportedLocale, locale)
	}
	return catalog[idx], nil
}

// RenderEmail returns the subject and HTML body for locale.
func (r *Renderer) RenderEmail(locale string, data Data) (string, string, error) {
	t, err := r.ForLocale(locale)
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, t.file(), data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", t.file(), err)
	}
	return t.Subject, buf.String(), nil
}

// RenderTips returns the tips page for locale.
func (r *Renderer) RenderTips(locale string) ([]byte, error) {
	t, err := r.ForLocale(locale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "tips."+t.Locale+".html", nil); err != nil {
		return nil, fmt.Errorf("render tips %s: %w", t.Locale, err)
	}
	return buf.Bytes(), nil
}

// RenderConfirmation returns the thank-you page shown after a read confirmation.
func (r *Renderer) RenderConfirmation(locale string) ([]byte, error) {
	lang := outreach.LocaleLanguage(locale)
	title := "Thank you"
	if lang == "de" {
		title = "Besten Dank"
	}
	if lang == "" {
		lang = "en"
	}
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, "confirm.html", struct{ Lang, Title string }{lang, title})
	if err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}
	return buf.Bytes(), nil
}
