package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/progress"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("job_id", evt.JobID),
			zap.String("type", evt.Msg.Type()),
			zap.Time("ts", evt.TS),
		}
		switch msg := evt.Msg.(type) {
		case progress.PlaceStatusMessage:
			fields = append(fields,
				zap.String("place_id", msg.Place.PlaceID),
				zap.String("status", string(msg.Status)))
		case progress.SearchDoneMessage:
			fields = append(fields, zap.Int("processed", msg.Processed))
		case progress.JobFailedMessage:
			fields = append(fields, zap.String("error", msg.Error))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
