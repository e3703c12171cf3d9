// Package progress defines the messages exchanged with outreach clients, the
// envelope codec, the registry of connected clients, and a non-blocking hub
// that batches job events out to export sinks such as logs, Prometheus, or
// Pub/Sub.
package progress
