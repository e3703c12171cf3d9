// Package server builds the application from configuration and runs it.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/api"
	"github.com/JakeFAU/venue-outreach/internal/clock/system"
	"github.com/JakeFAU/venue-outreach/internal/config"
	"github.com/JakeFAU/venue-outreach/internal/contact"
	collyfetcher "github.com/JakeFAU/venue-outreach/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/venue-outreach/internal/fetcher/headless"
	"github.com/JakeFAU/venue-outreach/internal/hash/sha256"
	"github.com/JakeFAU/venue-outreach/internal/headless/detector"
	"github.com/JakeFAU/venue-outreach/internal/id/uuid"
	"github.com/JakeFAU/venue-outreach/internal/logging"
	"github.com/JakeFAU/venue-outreach/internal/mail"
	"github.com/JakeFAU/venue-outreach/internal/metrics"
	"github.com/JakeFAU/venue-outreach/internal/orchestrator"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/places"
	"github.com/JakeFAU/venue-outreach/internal/policy/ratelimit"
	"github.com/JakeFAU/venue-outreach/internal/progress"
	progresssinks "github.com/JakeFAU/venue-outreach/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/venue-outreach/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/venue-outreach/internal/publisher/pubsub"
	"github.com/JakeFAU/venue-outreach/internal/scraper"
	gcsstorage "github.com/JakeFAU/venue-outreach/internal/storage/gcs"
	localstorage "github.com/JakeFAU/venue-outreach/internal/storage/local"
	memorystore "github.com/JakeFAU/venue-outreach/internal/storage/memory"
	pgstore "github.com/JakeFAU/venue-outreach/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/venue-outreach/internal/storage/sqlite"
)

const serviceName = "venue-outreach"

// App contains the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Places       outreach.PlaceRepository
	Jobs         outreach.JobRepository
	Scraper      *scraper.Scraper
	Orchestrator *orchestrator.Orchestrator
	Contact      *contact.Service
	Registry     *progress.Registry

	apiServer   *api.Server
	progressHub *progress.Hub
	headless    *headlessfetcher.Fetcher
	pgPool      *pgxpool.Pool
	sqliteDB    *sql.DB
	gcsClient   *storage.Client
	pubsub      *gcppublisher.Publisher
	recorder    *memorypublisher.Publisher
	registerer  prometheus.Registerer
	ready       func(ctx context.Context) error
}

// Option customizes Build.
type Option func(*App)

// WithEventRecorder exports progress events to an in-memory publisher
// instead of Pub/Sub. The scan command uses it to report what was emitted.
func WithEventRecorder(p *memorypublisher.Publisher) Option {
	return func(a *App) { a.recorder = p }
}

// WithRegisterer registers the progress collectors against reg instead of
// the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) { a.registerer = reg }
}

// WithLogger overrides the logger built from configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// Handler exposes the HTTP routes.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		logger, err := logging.New(cfg.Logging.Development, serviceName)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		app.logger = logger
	}
	metrics.Init()
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("archive_backend", cfg.Archive.Backend),
	)

	ok := false
	defer func() {
		if !ok {
			app.closeInfrastructure(context.Background())
		}
	}()

	if err := setupRepositories(ctx, app); err != nil {
		return nil, err
	}
	blobStore, err := setupArchive(ctx, app)
	if err != nil {
		return nil, err
	}
	if err := setupScraper(app, blobStore); err != nil {
		return nil, err
	}
	if err := setupProgress(ctx, app); err != nil {
		return nil, err
	}
	source, err := setupSource(app)
	if err != nil {
		return nil, err
	}
	clock := system.New()
	app.Registry = progress.NewRegistry(5*time.Second, app.logger.Named("registry"))
	app.Orchestrator = orchestrator.New(orchestrator.Config{
		Concurrency: cfg.Jobs.Concurrency,
		QueueDepth:  cfg.Jobs.QueueDepth,
		Workers:     cfg.Jobs.Workers,
	}, orchestrator.Deps{
		Places:    app.Places,
		Jobs:      app.Jobs,
		Source:    source,
		Scraper:   app.Scraper,
		Clock:     clock,
		Broadcast: app.Registry,
		Emitter:   app.progressHub,
	}, app.logger.Named("orchestrator"))

	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}
	sender, err := setupSender(app)
	if err != nil {
		return nil, err
	}
	app.Contact = contact.NewService(app.Places, renderer, sender, clock, cfg.Server.BaseURL, app.logger.Named("contact"))

	app.apiServer = api.NewServer(api.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Countries:      cfg.Countries,
		Locales:        mail.SupportedLocales(),
	}, api.Deps{
		Places:   app.Places,
		Jobs:     app.Jobs,
		Submit:   app.Orchestrator,
		Contact:  app.Contact,
		Pages:    renderer,
		Scraper:  app.Scraper,
		Registry: app.Registry,
		Ready:    app.ready,
	}, app.logger.Named("api"))

	ok = true
	return app, nil
}

// Run serves HTTP and processes queued jobs until ctx is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.logger.Info("orchestrator started", zap.Int("workers", a.cfg.Jobs.Workers))
		a.Orchestrator.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.apiServer.CloseSockets()
	a.Orchestrator.Close()
	<-done

	return a.Close(shutdownCtx)
}

// Scan runs one job for q on the calling goroutine, logging every event.
func (a *App) Scan(ctx context.Context, q outreach.Query) (outreach.Job, error) {
	logger := a.logger.Named("scan")
	listener := progress.ListenerFunc(func(_ context.Context, msg progress.Message) error {
		switch m := msg.(type) {
		case progress.PlaceStatusMessage:
			logger.Info("place", zap.String("status", string(m.Status)),
				zap.String("place_id", m.Place.PlaceID),
				zap.String("name", m.Place.Name),
				zap.String("email", m.Place.Email),
				zap.Bool("needs_review", m.Place.NeedsReview),
			)
		case progress.SearchDoneMessage:
			logger.Info("search done", zap.Int("processed", m.Processed))
		case progress.JobFailedMessage:
			logger.Error("job failed", zap.String("error", m.Error))
		}
		return nil
	})
	return a.Orchestrator.Execute(ctx, q, listener)
}

// Close releases infrastructure clients.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.sqliteDB != nil {
		if err := a.sqliteDB.Close(); err != nil {
			a.logger.Warn("sqlite close failed", zap.Error(err))
		}
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
}

func setupRepositories(ctx context.Context, app *App) error {
	ids := uuid.New()
	switch app.cfg.Storage.Driver {
	case "postgres":
		pool, err := pgstore.Open(ctx, pgstore.Config{
			DSN:             app.cfg.Storage.DSN,
			MaxConns:        app.cfg.Storage.MaxConns,
			MinConns:        app.cfg.Storage.MinConns,
			MaxConnLifetime: app.cfg.Storage.MaxConnLifetime,
		})
		if err != nil {
			return err
		}
		app.pgPool = pool
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		if app.Places, err = pgstore.NewPlaceStore(pool); err != nil {
			return err
		}
		if app.Jobs, err = pgstore.NewJobStore(pool, ids); err != nil {
			return err
		}
		app.ready = pool.Ping
		app.logger.Info("using postgres repositories")
	case "sqlite":
		db, err := sqlitestore.Open(ctx, app.cfg.Storage.DSN)
		if err != nil {
			return err
		}
		app.sqliteDB = db
		app.Places = sqlitestore.NewPlaceStore(db)
		app.Jobs = sqlitestore.NewJobStore(db, ids)
		app.ready = db.PingContext
		app.logger.Info("using sqlite repositories")
	default:
		app.Places = memorystore.NewPlaceStore()
		app.Jobs = memorystore.NewJobStore(ids)
		app.logger.Warn("using in-memory repositories; state is lost on exit")
	}
	return nil
}

func setupArchive(ctx context.Context, app *App) (outreach.BlobStore, error) {
	switch app.cfg.Archive.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.gcsClient = client
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: app.cfg.Archive.Bucket,
			Gzip:   app.cfg.Archive.Gzip,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.logger.Info("archiving pages to GCS", zap.String("bucket", app.cfg.Archive.Bucket))
		return store, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Info("archiving pages locally", zap.String("path", app.cfg.Archive.BaseDir))
		return store, nil
	case "memory":
		app.logger.Info("archiving pages in memory")
		return memorystore.NewBlobStore(), nil
	default:
		return nil, nil
	}
}

func setupScraper(app *App, archive outreach.BlobStore) error {
	cfg := app.cfg
	opts := []scraper.Option{
		scraper.WithHostLimiter(ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Scraper.HostRPS,
			DefaultBurst: cfg.Scraper.HostBurst,
		})),
	}
	if archive != nil {
		opts = append(opts, scraper.WithArchive(archive, sha256.New()))
	}
	if cfg.Headless.Enabled {
		h, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
			Settle:            cfg.Headless.Settle,
		})
		if err != nil {
			return fmt.Errorf("headless fetcher init failed: %w", err)
		}
		app.headless = h
		opts = append(opts, scraper.WithHeadless(h, detector.NewHeuristic(cfg.Headless.PromotionThresh)))
		app.logger.Info("headless fallback enabled", zap.Int("max_parallel", cfg.Headless.MaxParallel))
	}
	app.Scraper = scraper.New(scraper.Config{
		ArchivePrefix:      cfg.Archive.Prefix,
		ArchiveContentType: cfg.Archive.ContentType,
	}, collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Scraper.UserAgent,
		Timeout:     cfg.Scraper.Timeout,
		MaxBodySize: cfg.Scraper.MaxBodyBytes,
	}), app.logger.Named("scraper"), opts...)
	return nil
}

func setupProgress(ctx context.Context, app *App) error {
	sinkList := []progress.Sink{progresssinks.NewLogSink(app.logger.Named("progress_log"))}

	promSink, err := progresssinks.NewPrometheusSink(app.registerer)
	if err != nil {
		return fmt.Errorf("prometheus sink init failed: %w", err)
	}
	sinkList = append(sinkList, promSink)

	switch {
	case app.recorder != nil:
		sinkList = append(sinkList, progresssinks.NewPublisherSink(app.recorder, "progress"))
	case app.cfg.PubSub.ProjectID != "":
		pub, err := gcppublisher.New(ctx, app.cfg.PubSub.ProjectID, app.cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		app.pubsub = pub
		sinkList = append(sinkList, progresssinks.NewPublisherSink(pub, app.cfg.PubSub.TopicName))
		app.logger.Info("exporting progress to Pub/Sub",
			zap.String("project", app.cfg.PubSub.ProjectID),
			zap.String("topic", app.cfg.PubSub.TopicName),
		)
	}

	app.progressHub = progress.NewHub(progress.Config{Logger: app.logger.Named("progress_hub")}, sinkList...)
	return nil
}

func setupSource(app *App) (*places.Source, error) {
	var dir places.Directory = places.Unavailable{}
	if app.cfg.Places.APIKey != "" {
		g, err := places.NewGoogleDirectory(app.cfg.Places.APIKey)
		if err != nil {
			return nil, err
		}
		dir = g
	} else {
		app.logger.Warn("no places api key configured; searches will fail")
	}
	resolver := places.NewResolver(app.Places, dir, app.cfg.Places.DefaultLocale)
	return places.NewSource(dir, resolver, places.Config{
		PageInterval:      app.cfg.Places.PageInterval,
		DetailConcurrency: app.cfg.Places.DetailConcurrency,
	}, app.logger.Named("places")), nil
}

func setupSender(app *App) (mail.Sender, error) {
	smtp := app.cfg.SMTP
	if smtp.Host == "" {
		app.logger.Warn("no smtp host configured; outreach e-mails are only logged")
		return mail.NewLogSender(app.logger.Named("mail")), nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     smtp.Host,
		Port:     smtp.Port,
		SSL:      smtp.SSL,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     smtp.From,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp sender init failed: %w", err)
	}
	app.logger.Info("smtp delivery enabled", zap.String("host", smtp.Host), zap.Int("port", smtp.Port))
	return sender, nil
}

// Scrape runs the website scraper once.
func (a *App) Scrape(ctx context.Context, url string) outreach.WebsiteInfo {
	return a.Scraper.Scrape(ctx, url)
}
