package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/venue-outreach/internal/progress"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PublisherSink forwards every event envelope to a message topic so other
// services can follow jobs.
type PublisherSink struct {
	publisher Publisher
	topic     string
}

// NewPublisherSink wires publisher to topic.
func NewPublisherSink(publisher Publisher, topic string) *PublisherSink {
	return &PublisherSink{publisher: publisher, topic: topic}
}

type exportedEvent struct {
	JobID    string          `json:"jobId,omitempty"`
	TS       string          `json:"ts"`
	Envelope json.RawMessage `json:"message"`
}

// Consume publishes each event. Every event is attempted; the errors are joined.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	var errs []error
	for _, evt := range batch {
		env, err := progress.Encode(evt.Msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		payload := exportedEvent{JobID: evt.JobID, TS: evt.TS.UTC().Format(time.RFC3339Nano), Envelope: env}
		if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", evt.Msg.Type(), err))
		}
	}
	return errors.Join(errs...)
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
