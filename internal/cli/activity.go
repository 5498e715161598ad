package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Inspect flagged activity events",
	}

	var limit int
	flagged := &cobra.Command{
		Use:   "flagged",
		Short: "List recently flagged events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := apiClient.Activity().RecentFlagged(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(events)
			}

			table := NewTable("TIME", "EVENT", "ACTOR", "SOURCE IP", "ERROR")
			for _, e := range events {
				actor := e.Actor.UserName
				if actor == "" {
					actor = e.Actor.ARN
				}
				table.AddRow(
					e.Timestamp.Format(time.RFC3339),
					e.EventName,
					truncate(actor, 30),
					e.SourceIP,
					e.ErrorCode,
				)
			}
			table.Render()
			return nil
		},
	}
	flagged.Flags().IntVar(&limit, "limit", 20, "maximum events to list")

	cmd.AddCommand(flagged)
	return cmd
}
