package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/metrics"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/progress"
	"github.com/JakeFAU/venue-outreach/internal/validate"
)

// Submitter starts outreach jobs.
type Submitter interface {
	Submit(ctx context.Context, q outreach.Query, listener progress.Listener) (outreach.Job, error)
}

// Contacter performs the contact step and read confirmations.
type Contacter interface {
	Contact(ctx context.Context, req outreach.Venue) (outreach.Venue, error)
	ConfirmRead(ctx context.Context, placeID string) (outreach.Venue, error)
}

// Pages renders the HTML pages linked from outreach e-mails.
type Pages interface {
	RenderTips(locale string) ([]byte, error)
	RenderConfirmation(locale string) ([]byte, error)
}

// Config tunes the HTTP layer.
type Config struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	WriteTimeout   time.Duration
	Countries      []string
	Locales        []string
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Places   outreach.PlaceRepository
	Jobs     outreach.JobRepository
	Submit   Submitter
	Contact  Contacter
	Pages    Pages
	Scraper  outreach.Scraper
	Registry *progress.Registry
	// Ready reports whether downstreams are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server wires HTTP handlers to the outreach services.
type Server struct {
	router chi.Router
	cfg    Config
	deps   Deps
	logger *zap.Logger

	socketsMu sync.Mutex
	sockets   map[string]*wsConn
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		sockets: make(map[string]*wsConn),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", s.websocket)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(cfg.RequestTimeout))
		r.Get("/scrape", s.scrape)
		r.Get("/confirm/{placeId}", s.confirm)
		r.Get("/tips/{locale}", s.tips)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/summary", s.summary)
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", s.listJobs)
				r.Post("/", s.submitJob)
			})
			r.Route("/places", func(r chi.Router) {
				r.Get("/review", s.listReview)
				r.Post("/{placeId}/contact", s.contactPlace)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// CloseSockets closes every open websocket. http.Server.Shutdown does not
// track hijacked connections.
func (s *Server) CloseSockets() {
	s.socketsMu.Lock()
	conns := make([]*wsConn, 0, len(s.sockets))
	for _, c := range s.sockets {
		conns = append(conns, c)
	}
	s.socketsMu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("url query parameter is required"))
		return
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	s.writeJSON(w, http.StatusOK, s.deps.Scraper.Scrape(r.Context(), target))
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	venue, err := s.deps.Contact.ConfirmRead(r.Context(), chi.URLParam(r, "placeId"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	page, err := s.deps.Pages.RenderConfirmation(venue.Locale)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeHTML(w, page)
}

func (s *Server) tips(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Pages.RenderTips(chi.URLParam(r, "locale"))
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, outreach.ErrUnsupportedLocale) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeHTML(w, page)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Places.Summary(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.FindAll(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	out := make([]progress.JobMessage, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, progress.NewJobMessage(j))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req progress.SearchMessage
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	job, err := s.deps.Submit.Submit(r.Context(), req.Query(), progress.Discard)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, progress.NewJobMessage(job))
}

func (s *Server) listReview(w http.ResponseWriter, r *http.Request) {
	venues, err := s.deps.Places.FindAllNeedingReview(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if venues == nil {
		venues = []outreach.Venue{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"places": venues})
}

func (s *Server) contactPlace(w http.ResponseWriter, r *http.Request) {
	var req outreach.Venue
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	req.PlaceID = chi.URLParam(r, "placeId")
	venue, err := s.deps.Contact.Contact(r.Context(), req)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, venue)
}

func decodeBody(body io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON")
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, outreach.ErrInvalidVenue), errors.Is(err, outreach.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, outreach.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, outreach.ErrAlreadyContacted):
		return http.StatusConflict
	case errors.Is(err, outreach.ErrUnsupportedLocale):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var fields validate.FieldErrors
	if errors.As(err, &fields) {
		body.Fields = fields
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		s.logger.Error("write HTML failed", zap.Error(err))
	}
}
