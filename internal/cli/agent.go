package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and control monitoring agents",
	}

	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentStartCmd())
	cmd.AddCommand(newAgentStopCmd())
	cmd.AddCommand(newAgentRunCmd())

	return cmd
}

func newAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents and their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := apiClient.Agents().List(context.Background())
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(states)
			}

			names := make([]string, 0, len(states))
			for name := range states {
				names = append(names, name)
			}
			sort.Strings(names)

			table := NewTable("NAME", "STATE", "INTERVAL", "LAST CHECK", "LAST ERROR")
			for _, name := range names {
				s := states[name]
				lastCheck := "-"
				if !s.LastCheckTime.IsZero() {
					lastCheck = s.LastCheckTime.Format(time.RFC3339)
				}
				table.AddRow(name, formatRunning(s.Running), s.Interval.String(), lastCheck, truncate(s.LastError, 40))
			}
			table.Render()
			return nil
		},
	}
}

func newAgentStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <name>",
		Short: "Start a stopped agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := apiClient.Agents().Start(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", state.Name, formatRunning(state.Running))
			return nil
		},
	}
}

func newAgentStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a running agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := apiClient.Agents().Stop(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", state.Name, formatRunning(state.Running))
			return nil
		},
	}
}

func newAgentRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Trigger a single out-of-schedule cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := apiClient.Agents().RunOnce(context.Background(), args[0])
			if err != nil {
				return err
			}
			if state.LastError != "" {
				fmt.Printf("%s: cycle failed: %s\n", state.Name, state.LastError)
				return nil
			}
			fmt.Printf("%s: cycle completed at %s\n", state.Name, state.LastCheckTime.Format(time.RFC3339))
			return nil
		},
	}
}
