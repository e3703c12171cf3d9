package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/config"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/server"
)

type fakeApp struct {
	ran     bool
	closed  bool
	query   outreach.Query
	scraped string
	scanErr error
}

func (f *fakeApp) Run(context.Context) error { f.ran = true; return nil }

func (f *fakeApp) Scan(_ context.Context, q outreach.Query) (outreach.Job, error) {
	f.query = q
	if f.scanErr != nil {
		return outreach.Job{}, f.scanErr
	}
	return outreach.Job{ID: "job-1", Country: q.Country, City: q.City, Places: []outreach.Venue{{PlaceID: "p1"}}}, nil
}

func (f *fakeApp) Scrape(_ context.Context, url string) outreach.WebsiteInfo {
	f.scraped = url
	return outreach.WebsiteInfo{Email: "info@loewen.ch", Locale: "de-CH"}
}

func (f *fakeApp) Close(context.Context) error { f.closed = true; return nil }

func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

// withFakeApp swaps the factory; tests using it must not run in parallel.
func withFakeApp(t *testing.T, app *fakeApp) *int {
	t.Helper()
	t.Setenv("OUTREACH_STORAGE_DRIVER", "memory")
	optCount := new(int)
	orig := newApp
	newApp = func(_ context.Context, _ *config.Config, opts ...server.Option) (App, error) {
		*optCount = len(opts)
		return app, nil
	}
	t.Cleanup(func() { newApp = orig })
	return optCount
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServeRunsApp(t *testing.T) {
	app := &fakeApp{}
	opts := withFakeApp(t, app)

	_, err := execute(t, "serve")
	require.NoError(t, err)
	require.True(t, app.ran)
	require.True(t, app.closed)
	require.Zero(t, *opts)
}

func TestScanPrintsJob(t *testing.T) {
	app := &fakeApp{}
	opts := withFakeApp(t, app)

	out, err := execute(t, "scan", "--country", "DE", "--city", "Berlin")
	require.NoError(t, err)
	require.Equal(t, outreach.Query{Country: "DE", City: "Berlin"}, app.query)
	require.Contains(t, out, `"processed": 1`)
	require.Equal(t, 1, *opts)
}

func TestScanRequiresCity(t *testing.T) {
	withFakeApp(t, &fakeApp{})

	_, err := execute(t, "scan")
	require.Error(t, err)
}

func TestScanSurfacesFailure(t *testing.T) {
	app := &fakeApp{scanErr: errors.New("directory down")}
	withFakeApp(t, app)

	_, err := execute(t, "scan", "--city", "Bern")
	require.ErrorContains(t, err, "directory down")
}

func TestScrapeAddsScheme(t *testing.T) {
	app := &fakeApp{}
	withFakeApp(t, app)

	out, err := execute(t, "scrape", "loewen.ch")
	require.NoError(t, err)
	require.Equal(t, "https://loewen.ch", app.scraped)
	require.Contains(t, out, "info@loewen.ch")
}

func TestResolveAppWithoutApp(t *testing.T) {
	t.Parallel()
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
