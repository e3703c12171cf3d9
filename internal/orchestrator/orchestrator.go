// Package orchestrator runs outreach jobs: it streams venues for a city,
// scrapes the ones without an e-mail, and reports progress per venue.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/venue-outreach/internal/metrics"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/progress"
	"github.com/JakeFAU/venue-outreach/internal/queue/memory"
	"github.com/JakeFAU/venue-outreach/internal/validate"
)

// DefaultConcurrency is the ceiling of venues processed at once per job.
const DefaultConcurrency = 60

// Config sizes the orchestrator.
type Config struct {
	Concurrency int
	QueueDepth  int
	Workers     int
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Places  outreach.PlaceRepository
	Jobs    outreach.JobRepository
	Source  outreach.PlaceSource
	Scraper outreach.Scraper
	Clock   outreach.Clock
	// Broadcast receives every job snapshot; nil disables it.
	Broadcast progress.Listener
	// Emitter exports job events; nil disables it.
	Emitter progress.Emitter
}

// Orchestrator owns the job queue and its workers.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	queue  *memory.Queue[run]
	logger *zap.Logger
}

type run struct {
	job      outreach.Job
	stream   outreach.VenueStream
	listener progress.Listener
}

// New wires an Orchestrator.
func New(cfg Config, deps Deps, logger *zap.Logger) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if deps.Broadcast == nil {
		deps.Broadcast = progress.Discard
	}
	if deps.Emitter == nil {
		deps.Emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		queue:  memory.NewQueue[run](cfg.QueueDepth),
		logger: logger,
	}
}

// Submit creates a job for q and queues it. The directory's initial search
// runs before Submit returns; its failure is returned and reported to
// listener as jobFailed.
func (o *Orchestrator) Submit(ctx context.Context, q outreach.Query, listener progress.Listener) (outreach.Job, error) {
	r, err := o.prepare(ctx, q, listener)
	if err != nil {
		return r.job, err
	}
	if err := o.queue.Enqueue(ctx, r); err != nil {
		o.fail(ctx, r, err)
		return r.job, fmt.Errorf("queue job %s: %w", r.job.ID, err)
	}
	metrics.ObserveJob("submitted")
	o.logger.Info("job queued", zap.String("job_id", r.job.ID), zap.String("country", q.Country), zap.String("city", q.City))
	return r.job, nil
}

// Execute runs a job for q to completion on the calling goroutine.
func (o *Orchestrator) Execute(ctx context.Context, q outreach.Query, listener progress.Listener) (outreach.Job, error) {
	r, err := o.prepare(ctx, q, listener)
	if err != nil {
		return r.job, err
	}
	metrics.ObserveJob("submitted")
	return o.process(ctx, r)
}

// Run consumes queued jobs with the configured number of workers until ctx
// ends or the queue is closed.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for range o.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.consume(ctx)
		}()
	}
	wg.Wait()
}

// Close stops accepting jobs.
func (o *Orchestrator) Close() {
	o.queue.Close()
}

func (o *Orchestrator) consume(ctx context.Context) {
	for {
		r, err := o.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, memory.ErrClosed) {
				return
			}
			o.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		if _, err := o.process(ctx, r); err != nil {
			o.logger.Warn("job ended early", zap.String("job_id", r.job.ID), zap.Error(err))
		}
	}
}

func (o *Orchestrator) prepare(ctx context.Context, q outreach.Query, listener progress.Listener) (run, error) {
	q = q.Normalize()
	if err := validate.Struct(q); err != nil {
		return run{}, fmt.Errorf("%w: %w", outreach.ErrInvalidQuery, err)
	}
	if listener == nil {
		listener = progress.Discard
	}
	job, err := o.deps.Jobs.Save(ctx, outreach.Job{
		Country:   q.Country,
		City:      q.City,
		Places:    []outreach.Venue{},
		CreatedAt: o.deps.Clock.Now(),
	})
	if err != nil {
		return run{}, fmt.Errorf("create job: %w", err)
	}
	r := run{job: job, listener: listener}
	o.publishJob(ctx, job)

	stream, err := o.deps.Source.Fetch(ctx, q.Country, q.City)
	if err != nil {
		o.fail(ctx, r, err)
		return r, fmt.Errorf("search places: %w", err)
	}
	r.stream = stream
	return r, nil
}

func (o *Orchestrator) process(ctx context.Context, r run) (outreach.Job, error) {
	logger := o.logger.With(zap.String("job_id", r.job.ID))
	var (
		mu  sync.Mutex
		job = r.job
		g   errgroup.Group
	)
	g.SetLimit(o.cfg.Concurrency)

	for venue, err := range r.stream.All(ctx) {
		if err != nil {
			logger.Warn("skipping venue", zap.Error(err))
			metrics.ObservePlace("failed")
			continue
		}
		if venue.Contacted() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may have waited for a free slot past cancellation.
			if ctx.Err() != nil {
				return nil
			}
			done, err := o.processVenue(ctx, r, venue)
			if err != nil {
				logger.Warn("venue failed", zap.String("place_id", venue.PlaceID), zap.Error(err))
				metrics.ObservePlace("failed")
				return nil
			}
			status := outreach.PlaceStatusScraped
			if done.Contacted() {
				status = outreach.PlaceStatusContacted
			}

			mu.Lock()
			defer mu.Unlock()
			job.Places = append(job.Places, done)
			saved, err := o.deps.Jobs.Save(ctx, job)
			if err != nil {
				job.Places = job.Places[:len(job.Places)-1]
				logger.Warn("persist job failed", zap.String("place_id", done.PlaceID), zap.Error(err))
				metrics.ObservePlace("failed")
				return nil
			}
			job = saved
			metrics.ObservePlace(string(status))
			o.publishJob(ctx, job)
			o.send(ctx, r.listener, job.ID, progress.PlaceStatusMessage{JobID: job.ID, Place: done, Status: status})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return job, fmt.Errorf("job %s canceled: %w", job.ID, err)
	}
	if err := r.stream.Err(); err != nil {
		o.fail(ctx, run{job: job, listener: r.listener}, err)
		return job, fmt.Errorf("stream places: %w", err)
	}

	finished := o.deps.Clock.Now()
	job.FinishedAt = &finished
	saved, err := o.deps.Jobs.Save(ctx, job)
	if err != nil {
		return job, fmt.Errorf("finish job %s: %w", job.ID, err)
	}
	o.publishJob(ctx, saved)
	o.send(ctx, r.listener, saved.ID, progress.SearchDoneMessage{JobID: saved.ID, Done: true, Processed: saved.Processed()})
	logger.Info("job finished", zap.Int("processed", saved.Processed()))
	return saved, nil
}

// processVenue scrapes a venue's website when it has no e-mail yet. The
// scrape result is applied to the venue as stored after the scrape, since a
// contact may have been recorded meanwhile; a contacted venue is left as is.
func (o *Orchestrator) processVenue(ctx context.Context, r run, venue outreach.Venue) (outreach.Venue, error) {
	if venue.Email != "" || venue.Website == "" {
		return venue, nil
	}
	o.send(ctx, r.listener, r.job.ID, progress.PlaceStatusMessage{JobID: r.job.ID, Place: venue, Status: outreach.PlaceStatusScraping})

	info := o.deps.Scraper.Scrape(ctx, venue.Website)
	current, err := o.deps.Places.FindByExternalID(ctx, venue.PlaceID)
	if err != nil {
		return venue, fmt.Errorf("reload venue %s: %w", venue.PlaceID, err)
	}
	if current.Contacted() {
		return current, nil
	}
	current.Email = info.Email
	if info.Locale != "" {
		current.Locale = info.Locale
	}
	current.NeedsReview = outreach.NeedsReview(current.Email, current.Website)
	saved, err := o.deps.Places.Save(ctx, current)
	if err != nil {
		return venue, fmt.Errorf("save venue %s: %w", venue.PlaceID, err)
	}
	return saved, nil
}

func (o *Orchestrator) fail(ctx context.Context, r run, cause error) {
	metrics.ObserveJob("rejected")
	o.send(ctx, r.listener, r.job.ID, progress.JobFailedMessage{
		JobID:   r.job.ID,
		Country: r.job.Country,
		City:    r.job.City,
		Error:   cause.Error(),
	})
}

func (o *Orchestrator) publishJob(ctx context.Context, job outreach.Job) {
	msg := progress.NewJobMessage(job)
	o.deps.Emitter.Emit(progress.NewEvent(job.ID, o.deps.Clock.Now(), msg))
	if err := o.deps.Broadcast.Send(ctx, msg); err != nil {
		o.logger.Debug("broadcast job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// send delivers msg to the job's listener and the export hub. Listener
// failures are logged and never retried.
func (o *Orchestrator) send(ctx context.Context, listener progress.Listener, jobID string, msg progress.Message) {
	o.deps.Emitter.Emit(progress.NewEvent(jobID, o.deps.Clock.Now(), msg))
	if err := listener.Send(ctx, msg); err != nil {
		o.logger.Debug("listener send failed", zap.String("job_id", jobID), zap.String("type", msg.Type()), zap.Error(err))
	}
}
