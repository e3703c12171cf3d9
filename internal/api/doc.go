// Package api hosts the HTTP server, middleware, and handlers. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /ws for the browser client; messages use the progress envelope.
//   - GET /confirm/{placeId} and /tips/{locale}, linked from outreach e-mails.
//   - GET /scrape?url= for debugging the scraper.
//   - /v1/jobs, /v1/places and /v1/summary for REST access.
package api
