// Package sinks implements progress exporters: structured logs, Prometheus
// job collectors, and a publisher that forwards envelopes to a message topic.
package sinks
