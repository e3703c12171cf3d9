package scraper

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

var emailPattern = regexp.MustCompile(`(?i)[a-z][a-z\d_.+-]*@[a-z][a-z\d_.-]*\.[a-z]{2,24}`)

// Error trackers embed addresses that are never a venue's contact.
var blacklistedDomains = map[string]struct{}{
	"sentry-next.wixpress.com":   {},
	"sentry-viewer.wixpress.com": {},
	"sentry.wixpress.com":        {},
	"sentry.io":                  {},
}

var contactWords = []string{"contact", "kontakt", "impressum"}

// FindEmail returns the best e-mail address in body: the first info@ address
// if there is one, else the first address found. Blacklisted domains are skipped.
func FindEmail(body []byte) string {
	var first string
	for _, match := range emailPattern.FindAll(body, -1) {
		candidate := strings.TrimRight(string(match), ".")
		_, domain, _ := strings.Cut(strings.ToLower(candidate), "@")
		if _, blocked := blacklistedDomains[domain]; blocked {
			continue
		}
		if strings.HasPrefix(strings.ToLower(candidate), "info@") {
			return candidate
		}
		if first == "" {
			first = candidate
		}
	}
	return first
}

// page is a parsed HTML document plus the URL it was served from.
type page struct {
	url *url.URL
	doc *goquery.Document
}

func parsePage(rawURL string, body []byte) (*page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &page{url: u, doc: doc}, nil
}

// Lang returns the lang attribute of the root element.
func (p *page) Lang() string {
	return strings.TrimSpace(p.doc.Find("html").First().AttrOr("lang", ""))
}

// ContactLink returns the absolute URL of the first link whose text names a
// contact or imprint page, falling back to links whose target does.
func (p *page) ContactLink() string {
	anchors := p.doc.Find("a[href]")
	var byText, byHref string
	anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !followable(href) {
			return true
		}
		if byText == "" && mentionsContact(a.Text()) {
			byText = href
			return false
		}
		if byHref == "" && mentionsContact(href) {
			byHref = href
		}
		return true
	})
	if byText != "" {
		return p.resolve(byText)
	}
	if byHref != "" {
		return p.resolve(byHref)
	}
	return ""
}

// MailtoAddress returns the first address in a mailto link, if any.
func (p *page) MailtoAddress() string {
	var found string
	p.doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		addr := strings.TrimPrefix(a.AttrOr("href", ""), "mailto:")
		addr, _, _ = strings.Cut(addr, "?")
		if unescaped, err := url.PathUnescape(addr); err == nil {
			addr = unescaped
		}
		found = FindEmail([]byte(addr))
		return found == ""
	})
	return found
}

// resolve makes href absolute against the scheme, host and port of the page.
// Relative paths are taken from the site root.
func (p *page) resolve(href string) string {
	if strings.HasPrefix(href, "//") {
		return p.url.Scheme + ":" + href
	}
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}
	return p.url.Scheme + "://" + p.url.Host + "/" + strings.TrimPrefix(href, "/")
}

func followable(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}

func mentionsContact(s string) bool {
	lower := strings.ToLower(s)
	for _, word := range contactWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// CountryFromURL returns the country of the site's ccTLD, or "" for generic
// top-level domains.
func CountryFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	idx := strings.LastIndexByte(host, '.')
	if idx < 0 {
		return ""
	}
	return outreach.CountryFromCode(host[idx+1:])
}
