package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newAlertCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List recently dispatched alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := apiClient.Alerts().ListRecent(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(alerts)
			}

			table := NewTable("TIME", "SEVERITY", "SOURCE", "TITLE", "CHANNELS")
			for _, a := range alerts {
				channels := make([]string, 0, len(a.ChannelResults))
				for name, res := range a.ChannelResults {
					if res.Delivered {
						channels = append(channels, name)
					} else {
						channels = append(channels, name+"(failed)")
					}
				}
				table.AddRow(
					a.CreatedAt.Format(time.RFC3339),
					formatSeverity(a.Severity),
					a.SourceKind,
					truncate(a.Title, 50),
					strings.Join(channels, ","),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum alerts to list")
	return cmd
}
