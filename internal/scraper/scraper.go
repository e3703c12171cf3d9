// Package scraper extracts a contact e-mail and a locale from venue websites.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/fetcher"
	"github.com/JakeFAU/venue-outreach/internal/metrics"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// Detector decides whether a fetched page must be rendered in a browser.
type Detector interface {
	ShouldPromote(resp fetcher.Response) bool
}

// HostLimiter spaces requests to the same host.
type HostLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// PathHasher maps a page URL to its archive object path.
type PathHasher interface {
	ObjectPath(prefix, pageURL string) string
}

// Config holds the archive settings.
type Config struct {
	ArchivePrefix      string
	ArchiveContentType string
}

// Scraper implements outreach.Scraper.
type Scraper struct {
	cfg      Config
	fetcher  fetcher.Fetcher
	headless fetcher.Fetcher
	detector Detector
	limiter  HostLimiter
	archive  outreach.BlobStore
	paths    PathHasher
	logger   *zap.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithHeadless re-fetches pages the detector flags using a browser.
func WithHeadless(f fetcher.Fetcher, d Detector) Option {
	return func(s *Scraper) {
		s.headless = f
		s.detector = d
	}
}

// WithHostLimiter enables per-host politeness.
func WithHostLimiter(l HostLimiter) Option {
	return func(s *Scraper) { s.limiter = l }
}

// WithArchive stores every fetched page body.
func WithArchive(store outreach.BlobStore, paths PathHasher) Option {
	return func(s *Scraper) {
		s.archive = store
		s.paths = paths
	}
}

// New builds a Scraper on top of f.
func New(cfg Config, f fetcher.Fetcher, logger *zap.Logger, opts ...Option) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ArchiveContentType == "" {
		cfg.ArchiveContentType = "text/html; charset=utf-8"
	}
	s := &Scraper{cfg: cfg, fetcher: f, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape implements outreach.Scraper. Failures are logged and yield an empty result.
func (s *Scraper) Scrape(ctx context.Context, siteURL string) outreach.WebsiteInfo {
	logger := s.logger.With(zap.String("url", siteURL))
	home, err := s.load(ctx, siteURL)
	if err != nil {
		logger.Warn("scrape failed", zap.Error(err))
		metrics.ObserveScrape("failed")
		return outreach.WebsiteInfo{}
	}

	email := home.email()
	if email == "" {
		if link := home.ContactLink(); link != "" {
			contact, err := s.load(ctx, link)
			if err != nil {
				logger.Warn("contact page failed", zap.String("contact_url", link), zap.Error(err))
			} else {
				email = contact.email()
			}
		}
	}

	info := outreach.WebsiteInfo{
		Email:  email,
		Locale: outreach.BuildLocale(home.Lang(), CountryFromURL(siteURL)),
	}
	switch {
	case info.Email != "":
		metrics.ObserveScrape("email")
	case info.Locale != "":
		metrics.ObserveScrape("locale_only")
	default:
		metrics.ObserveScrape("empty")
	}
	logger.Debug("scraped", zap.String("email", info.Email), zap.String("locale", info.Locale))
	return info
}

type loadedPage struct {
	*page
	body []byte
}

func (p loadedPage) email() string {
	if email := FindEmail(p.body); email != "" {
		return email
	}
	return p.MailtoAddress()
}

func (s *Scraper) load(ctx context.Context, pageURL string) (loadedPage, error) {
	resp, err := s.fetch(ctx, s.fetcher, pageURL)
	if err != nil {
		return loadedPage{}, err
	}
	if s.promote(resp) {
		rendered, err := s.fetch(ctx, s.headless, pageURL)
		if err != nil {
			s.logger.Warn("headless fetch failed", zap.String("url", pageURL), zap.Error(err))
		} else {
			resp = rendered
		}
	}
	s.store(ctx, pageURL, resp.Body)
	p, err := parsePage(pageURL, resp.Body)
	if err != nil {
		return loadedPage{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return loadedPage{page: p, body: resp.Body}, nil
}

func (s *Scraper) fetch(ctx context.Context, f fetcher.Fetcher, pageURL string) (fetcher.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, pageURL); err != nil {
			return fetcher.Response{}, err
		}
	}
	resp, err := f.Fetch(ctx, fetcher.Request{
		URL:     pageURL,
		Headers: http.Header{"Accept": {"text/html"}},
	})
	if err != nil {
		return fetcher.Response{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return resp, nil
}

func (s *Scraper) promote(resp fetcher.Response) bool {
	if s.headless == nil || s.detector == nil {
		return false
	}
	return FindEmail(resp.Body) == "" && s.detector.ShouldPromote(resp)
}

func (s *Scraper) store(ctx context.Context, pageURL string, body []byte) {
	if s.archive == nil || s.paths == nil {
		return
	}
	path := s.paths.ObjectPath(s.cfg.ArchivePrefix, pageURL)
	if _, err := s.archive.PutObject(ctx, path, s.cfg.ArchiveContentType, bytes.NewReader(body)); err != nil {
		s.logger.Warn("archive page failed", zap.String("url", pageURL), zap.Error(err))
	}
}
