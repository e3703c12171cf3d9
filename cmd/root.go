// Package cmd defines the CLI commands for the outreach executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/config"
	"github.com/JakeFAU/venue-outreach/internal/outreach"
	memorypublisher "github.com/JakeFAU/venue-outreach/internal/publisher/memory"
	"github.com/JakeFAU/venue-outreach/internal/server"
)

// annotationRecordEvents marks commands that export progress events to memory.
const annotationRecordEvents = "record-events"

type appKeyType string

const (
	appKey      appKeyType = "app"
	recorderKey appKeyType = "recorder"
)

// App is what the commands need from the application. Tests inject a fake.
type App interface {
	Run(ctx context.Context) error
	Scan(ctx context.Context, q outreach.Query) (outreach.Job, error)
	Scrape(ctx context.Context, url string) outreach.WebsiteInfo
	Close(ctx context.Context) error
	Logger() *zap.Logger
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg *config.Config, opts ...server.Option) (App, error) {
	return server.Build(ctx, cfg, opts...)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "outreach",
		Short: "Finds restaurants, scrapes their contact data and sends outreach e-mails.",
		Long: `outreach searches a places directory for restaurants in a city, scrapes
each website for a contact e-mail and locale, and lets an operator send a
localized outreach e-mail exactly once per venue.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			var opts []server.Option
			ctx := cmd.Context()
			if cmd.Annotations[annotationRecordEvents] != "" {
				recorder := memorypublisher.New()
				opts = append(opts, server.WithEventRecorder(recorder))
				ctx = context.WithValue(ctx, recorderKey, recorder)
			}
			appInstance, err := newApp(ctx, &cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(ctx, appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			appInstance, ok := cmd.Context().Value(appKey).(App)
			if !ok || appInstance == nil {
				return
			}
			if err := appInstance.Close(context.Background()); err != nil {
				appInstance.Logger().Warn("close failed", zap.Error(err))
			}
			if recorder, ok := cmd.Context().Value(recorderKey).(*memorypublisher.Publisher); ok {
				appInstance.Logger().Info("progress events recorded",
					zap.Int("count", len(recorder.Records())),
					zap.Any("by_type", recorder.CountByType()),
				)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables use the OUTREACH_ prefix")

	cmd.AddCommand(newServeCmd(), newScanCmd(), newScrapeCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
