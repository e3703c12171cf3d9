package progress

import (
	"errors"
	"fmt"
	"time"
)

// Event is a message stamped for export to sinks.
type Event struct {
	// JobID scopes the event to a job; it is empty for global messages.
	JobID string
	TS    time.Time
	Msg   Message
}

// NewEvent stamps msg with ts.
func NewEvent(jobID string, ts time.Time, msg Message) Event {
	return Event{JobID: jobID, TS: ts, Msg: msg}
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Msg == nil {
		return errors.New("message is required")
	}
	if !Known(e.Msg.Type()) {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, e.Msg.Type())
	}
	return nil
}
