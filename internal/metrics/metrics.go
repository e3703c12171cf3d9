// Package metrics exposes Prometheus collectors for the outreach service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal               *prometheus.CounterVec
	directoryPagesTotal        prometheus.Counter
	jobsTotal                  *prometheus.CounterVec
	placesProcessedTotal       *prometheus.CounterVec
	contactsTotal              *prometheus.CounterVec
	unrecordedSendsTotal       prometheus.Counter
	eventsTotal                *prometheus.CounterVec
	hostWaitSeconds            prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_scrapes_total",
				Help: "Website scrapes, labeled by result (email, locale_only, empty).",
			},
			[]string{"result"},
		)
		directoryPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_directory_pages_total",
			Help: "Places directory result pages requested.",
		})
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_jobs_total",
				Help: "Job submissions, labeled by outcome (submitted, rejected).",
			},
			[]string{"status"},
		)
		placesProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_places_processed_total",
				Help: "Venues handled by the orchestrator, labeled by status (SCRAPED, CONTACTED, failed).",
			},
			[]string{"status"},
		)
		contactsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_contacts_total",
				Help: "Contact attempts, labeled by result.",
			},
			[]string{"result"},
		)
		unrecordedSendsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_unrecorded_sends_total",
			Help: "E-mails sent whose contacted timestamp could not be persisted.",
		})
		eventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_events_total",
				Help: "Progress events emitted, labeled by message type.",
			},
			[]string{"type"},
		)
		hostWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_host_wait_seconds",
			Help:    "Time spent waiting on per-host politeness limits.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		})
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveScrape counts one scrape outcome.
func ObserveScrape(result string) {
	Init()
	scrapesTotal.WithLabelValues(result).Inc()
}

// ObserveDirectoryPage counts one directory page request.
func ObserveDirectoryPage() {
	Init()
	directoryPagesTotal.Inc()
}

// ObserveJob counts a job submission outcome.
func ObserveJob(status string) {
	Init()
	jobsTotal.WithLabelValues(status).Inc()
}

// ObservePlace counts a venue completed by a job.
func ObservePlace(status string) {
	Init()
	placesProcessedTotal.WithLabelValues(status).Inc()
}

// ObserveContact counts a contact attempt outcome.
func ObserveContact(result string) {
	Init()
	contactsTotal.WithLabelValues(result).Inc()
}

// ObserveUnrecordedSend counts a delivered e-mail whose contacted flag failed to persist.
func ObserveUnrecordedSend() {
	Init()
	unrecordedSendsTotal.Inc()
}

// ObserveEvent counts an emitted progress event.
func ObserveEvent(msgType string) {
	Init()
	eventsTotal.WithLabelValues(msgType).Inc()
}

// ObserveHostWait records time spent in the per-host limiter.
func ObserveHostWait(d time.Duration) {
	Init()
	hostWaitSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
