// Package contact sends the outreach e-mail to a venue and records read
// confirmations.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/mail"
	"github.com/JakeFAU/venue-outreach/internal/metrics"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/validate"
)

// Renderer turns a locale and placeholders into an e-mail.
type Renderer interface {
	ForLocale(locale string) (mail.Template, error)
	RenderEmail(locale string, data mail.Data) (subject string, html string, err error)
}

// Service performs the contact step.
type Service struct {
	places   outreach.PlaceRepository
	renderer Renderer
	sender   mail.Sender
	clock    outreach.Clock
	baseURL  string
	logger   *zap.Logger
	locks    keyedMutex
}

// NewService wires the contact step. baseURL prefixes the confirmation and tips links.
func NewService(
	places outreach.PlaceRepository,
	renderer Renderer,
	sender mail.Sender,
	clock outreach.Clock,
	baseURL string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		places:   places,
		renderer: renderer,
		sender:   sender,
		clock:    clock,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		locks:    keyedMutex{held: make(map[string]*lockEntry)},
	}
}

// Contact e-mails the venue described by req and returns the stored record.
// Name, e-mail and locale from req replace the stored values. A venue that
// was already contacted yields outreach.ErrAlreadyContacted.
func (s *Service) Contact(ctx context.Context, req outreach.Venue) (outreach.Venue, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		metrics.ObserveContact("invalid")
		return outreach.Venue{}, fmt.Errorf("%w: %w", outreach.ErrInvalidVenue, err)
	}

	unlock := s.locks.lock(req.PlaceID)
	defer unlock()

	venue, err := s.places.FindByExternalID(ctx, req.PlaceID)
	if err != nil {
		metrics.ObserveContact("not_found")
		return outreach.Venue{}, fmt.Errorf("find place %s: %w", req.PlaceID, err)
	}
	if venue.Contacted() {
		metrics.ObserveContact("already_contacted")
		return venue, fmt.Errorf("place %s: %w", req.PlaceID, outreach.ErrAlreadyContacted)
	}

	locale := outreach.CanonicalLocale(req.Locale)
	if locale == "" {
		locale = venue.Locale
	}
	if _, err := s.renderer.ForLocale(locale); err != nil {
		metrics.ObserveContact("unsupported_locale")
		return outreach.Venue{}, err
	}

	venue.Name = req.Name
	venue.Email = req.Email
	venue.Locale = locale
	venue.NeedsReview = false
	venue, err = s.places.Save(ctx, venue)
	if err != nil {
		metrics.ObserveContact("persist_failed")
		return outreach.Venue{}, fmt.Errorf("save place %s: %w", req.PlaceID, err)
	}

	subject, body, err := s.renderer.RenderEmail(venue.Locale, mail.Data{
		RestaurantName:      venue.Name,
		ReadConfirmationURL: s.baseURL + "/confirm/" + url.PathEscape(venue.PlaceID),
		TipsURL:             s.baseURL + "/tips/" + url.PathEscape(venue.Locale),
	})
	if err != nil {
		metrics.ObserveContact("render_failed")
		return outreach.Venue{}, err
	}
	if err := s.sender.Send(ctx, mail.Message{To: venue.Email, Subject: subject, HTML: body}); err != nil {
		metrics.ObserveContact("send_failed")
		return outreach.Venue{}, fmt.Errorf("send to place %s: %w", venue.PlaceID, err)
	}

	now := s.clock.Now()
	venue.ContactedAt = &now
	saved, err := s.places.Save(ctx, venue)
	if err != nil {
		metrics.ObserveUnrecordedSend()
		s.logger.Error("e-mail sent but contact time not recorded",
			zap.String("place_id", venue.PlaceID),
			zap.String("email", venue.Email),
			zap.Error(err),
		)
		return outreach.Venue{}, fmt.Errorf("record contact for place %s: %w", venue.PlaceID, err)
	}

	metrics.ObserveContact("sent")
	s.logger.Info("venue contacted",
		zap.String("place_id", saved.PlaceID),
		zap.String("locale", saved.Locale),
	)
	return saved, nil
}

// ConfirmRead marks the outreach e-mail of placeID as read.
func (s *Service) ConfirmRead(ctx context.Context, placeID string) (outreach.Venue, error) {
	if strings.TrimSpace(placeID) == "" {
		return outreach.Venue{}, errors.Join(outreach.ErrInvalidVenue, errors.New("place id is required"))
	}
	unlock := s.locks.lock(placeID)
	defer unlock()

	venue, err := s.places.FindByExternalID(ctx, placeID)
	if err != nil {
		return outreach.Venue{}, fmt.Errorf("find place %s: %w", placeID, err)
	}
	if venue.ReadConfirmed {
		return venue, nil
	}
	venue.ReadConfirmed = true
	venue, err = s.places.Save(ctx, venue)
	if err != nil {
		return outreach.Venue{}, fmt.Errorf("save place %s: %w", placeID, err)
	}
	s.logger.Info("read confirmed", zap.String("place_id", placeID))
	return venue, nil
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per place id and forgets idle keys.
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.held[key]
	if !ok {
		e = &lockEntry{}
		k.held[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.held, key)
		}
		k.mu.Unlock()
	}
}
