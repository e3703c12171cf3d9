package places

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/venue-outreach/internal/metrics"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// DefaultPageInterval is the minimum spacing between directory page requests.
const DefaultPageInterval = 3 * time.Second

// Config tunes a Source.
type Config struct {
	PageInterval      time.Duration
	DetailConcurrency int
}

// Source runs directory searches and streams the resolved venues.
type Source struct {
	dir      Directory
	resolver *Resolver
	cfg      Config
	logger   *zap.Logger
}

// NewSource wires a Source.
func NewSource(dir Directory, resolver *Resolver, cfg Config, logger *zap.Logger) *Source {
	if cfg.PageInterval <= 0 {
		cfg.PageInterval = DefaultPageInterval
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{dir: dir, resolver: resolver, cfg: cfg, logger: logger}
}

// Fetch runs the initial search for city in country. Its failure is returned
// directly; every later page is requested lazily while the stream is read.
func (s *Source) Fetch(ctx context.Context, country, city string) (outreach.VenueStream, error) {
	pace := newPacer(s.cfg.PageInterval)
	if err := pace.wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for directory: %w", err)
	}
	page, err := s.dir.TextSearch(ctx, country, city)
	pace.done(time.Now())
	if err != nil {
		return nil, fmt.Errorf("search %s/%s: %w", country, city, err)
	}
	metrics.ObserveDirectoryPage()
	s.logger.Debug("directory search",
		zap.String("country", country),
		zap.String("city", city),
		zap.Int("results", len(page.PlaceIDs)),
		zap.Bool("more", page.NextToken != ""))
	return &Stream{source: s, pace: pace, first: page}, nil
}

// Stream yields venues in directory order. It can be ranged over once.
type Stream struct {
	source *Source
	pace   *pacer
	first  Page
	err    error
}

// ElementError is yielded for a single venue that could not be resolved.
// The stream continues after it.
type ElementError struct {
	PlaceID string
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("resolve place %s: %v", e.PlaceID, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// All yields each venue, or an *ElementError for venues that failed to
// resolve. A failed page request ends the sequence and is reported by Err.
func (st *Stream) All(ctx context.Context) iter.Seq2[outreach.Venue, error] {
	return func(yield func(outreach.Venue, error) bool) {
		page := st.first
		for {
			for _, r := range st.source.resolvePage(ctx, page.PlaceIDs) {
				if !yield(r.venue, r.err) {
					return
				}
			}
			if page.NextToken == "" {
				return
			}
			if err := st.pace.wait(ctx); err != nil {
				st.err = fmt.Errorf("wait for next page: %w", err)
				return
			}
			next, err := st.source.dir.NextPage(ctx, page.NextToken)
			st.pace.done(time.Now())
			if err != nil {
				st.err = fmt.Errorf("next page: %w", err)
				return
			}
			metrics.ObserveDirectoryPage()
			page = next
		}
	}
}

// Err returns the error that ended the stream early, if any.
func (st *Stream) Err() error {
	return st.err
}

// pacer spaces directory requests. The interval counts from the moment the
// previous request returned, not from when it was sent.
type pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *pacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// done restarts the interval at t with no token left.
func (p *pacer) done(t time.Time) {
	p.limiter = rate.NewLimiter(rate.Every(p.interval), 1)
	p.limiter.ReserveN(t, 1)
}

type resolved struct {
	venue outreach.Venue
	err   error
}

func (s *Source) resolvePage(ctx context.Context, ids []string) []resolved {
	out := make([]resolved, len(ids))
	var g errgroup.Group
	g.SetLimit(s.cfg.DetailConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			venue, err := s.resolver.Resolve(ctx, id)
			if err != nil {
				s.logger.Warn("resolve place failed", zap.String("place_id", id), zap.Error(err))
				out[i] = resolved{venue: outreach.Venue{PlaceID: id}, err: &ElementError{PlaceID: id, Err: err}}
				return nil
			}
			out[i] = resolved{venue: venue}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
