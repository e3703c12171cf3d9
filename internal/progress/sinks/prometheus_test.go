package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/progress"
)

func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	start := time.Now()
	job := outreach.Job{ID: "j1", Country: "CH", City: "Zürich"}
	batch := []progress.Event{
		progress.NewEvent("j1", start, progress.NewJobMessage(job)),
		progress.NewEvent("j1", start.Add(time.Second), progress.NewJobMessage(job)),
		progress.NewEvent("j1", start.Add(2*time.Second), progress.PlaceStatusMessage{Status: outreach.PlaceStatusScraping}),
		progress.NewEvent("j1", start.Add(3*time.Second), progress.PlaceStatusMessage{Status: outreach.PlaceStatusScraped}),
		progress.NewEvent("j1", start.Add(10*time.Second), progress.SearchDoneMessage{JobID: "j1", Done: true}),
		progress.NewEvent("j2", start, progress.JobFailedMessage{JobID: "j2", Error: "quota"}),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.InDelta(t, 1.0, testutil.ToFloat64(sink.jobsStarted), 1e-9)
	require.InDelta(t, 0.0, testutil.ToFloat64(sink.jobsRunning), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(sink.jobsCompleted.WithLabelValues("success")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(sink.jobsCompleted.WithLabelValues("error")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(sink.placeStatuses.WithLabelValues("SCRAPED")), 1e-9)
	require.Equal(t, 1, testutil.CollectAndCount(sink.jobRuntime, "outreach_job_runtime_seconds"))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
