package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
	"github.com/JakeFAU/venue-outreach/internal/progress"
)

func newScanCmd() *cobra.Command {
	var q outreach.Query
	cmd := &cobra.Command{
		Use:         "scan",
		Short:       "Runs one outreach job for a city and prints the result",
		Annotations: map[string]string{annotationRecordEvents: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			job, err := appInstance.Scan(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("scan %s/%s: %w", q.Country, q.City, err)
			}
			appInstance.Logger().Info("scan finished",
				zap.String("job_id", job.ID),
				zap.Int("processed", job.Processed()),
			)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(progress.NewJobMessage(job))
		},
	}
	cmd.Flags().StringVar(&q.Country, "country", "CH", "ISO 3166-1 alpha-2 country code")
	cmd.Flags().StringVar(&q.City, "city", "", "city to search")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}
