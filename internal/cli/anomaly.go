package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newAnomalyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "List recent cost anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			anomalies, err := apiClient.Anomalies().Recent(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(anomalies)
			}

			table := NewTable("DETECTED", "IMPACT", "SERVICE", "REGION", "STATUS", "ROOT CAUSES")
			for _, a := range anomalies {
				table.AddRow(
					a.DetectedAt.Format(time.RFC3339),
					fmt.Sprintf("$%.2f", a.ImpactAmount),
					truncate(a.Service, 25),
					a.Region,
					a.Status,
					truncate(strings.Join(a.RootCauses, "; "), 50),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum anomalies to list")
	return cmd
}
