// Package memory keeps exported progress events in process. The scan command
// uses it to report what a job emitted without a Pub/Sub project.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Record is one exported event as it would have reached the topic.
type Record struct {
	Topic string
	JobID string
	// Type is the message type from the event envelope, empty when the
	// payload is not a progress event.
	Type string
	Data json.RawMessage
}

// Publisher records published events in order.
type Publisher struct {
	mu      sync.RWMutex
	records []Record
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

type exported struct {
	JobID   string `json:"jobId"`
	Message struct {
		Type string `json:"type"`
	} `json:"message"`
}

// Publish encodes payload the same way the Pub/Sub publisher does and
// records it. The returned id is sequential.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	var evt exported
	_ = json.Unmarshal(data, &evt)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, Record{Topic: topic, JobID: evt.JobID, Type: evt.Message.Type, Data: data})
	return fmt.Sprintf("memory-%d", len(p.records)), nil
}

// Records returns a copy of everything published so far.
func (p *Publisher) Records() []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Record(nil), p.records...)
}

// Job returns the records of one job in publish order.
func (p *Publisher) Job(jobID string) []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Record
	for _, r := range p.records {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out
}

// CountByType tallies the records per message type.
func (p *Publisher) CountByType() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range p.records {
		counts[r.Type]++
	}
	return counts
}
