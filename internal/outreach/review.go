package outreach

import (
	"net/url"
	"strings"
)

var genericLocalParts = map[string]struct{}{
	"info":         {},
	"contact":      {},
	"kontakt":      {},
	"hello":        {},
	"hallo":        {},
	"office":       {},
	"mail":         {},
	"reservation":  {},
	"reservations": {},
	"reservierung": {},
}

// NeedsReview decides whether a scraped address must be checked by a person
// before outreach. Only a generic alias on the website's own domain is trusted.
func NeedsReview(email, website string) bool {
	local, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok || local == "" || domain == "" {
		return true
	}
	if _, generic := genericLocalParts[local]; !generic {
		return true
	}
	host := siteHost(website)
	if host == "" {
		return true
	}
	return !sameSite(host, domain)
}

func siteHost(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "http://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// sameSite matches a host against an e-mail domain, accepting subdomains on either side.
func sameSite(host, domain string) bool {
	domain = strings.TrimPrefix(domain, "www.")
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain) || strings.HasSuffix(domain, "."+host)
}
