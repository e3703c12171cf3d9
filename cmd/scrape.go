package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrapes one website for a contact e-mail and locale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			target := args[0]
			if !strings.Contains(target, "://") {
				target = "https://" + target
			}
			info := appInstance.Scrape(cmd.Context(), target)
			return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
		},
	}
}
