package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show monitoring summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			states, err := apiClient.Agents().List(ctx)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(states)
			}

			fmt.Println("awstrack Monitoring")
			fmt.Println(strings.Repeat("=", 40))

			names := make([]string, 0, len(states))
			for name := range states {
				names = append(names, name)
			}
			sort.Strings(names)

			running := 0
			for _, name := range names {
				state := states[name]
				if state.Running {
					running++
				}
				line := fmt.Sprintf("  %-22s %s", name, formatRunning(state.Running))
				if !state.LastCheckTime.IsZero() {
					line += "  last check " + state.LastCheckTime.Format("15:04:05")
				}
				if state.LastError != "" {
					line += "  error: " + truncate(state.LastError, 40)
				}
				fmt.Println(line)
			}
			fmt.Printf("\n  %d/%d agents running\n", running, len(states))

			if summary, err := apiClient.Analytics().Summary(ctx); err == nil {
				if users, ok := summary["users_tracked"]; ok {
					fmt.Printf("  Users tracked: %v\n", users)
				}
			}
			return nil
		},
	}
}
