package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Per-user usage and cost analytics",
	}

	cmd.AddCommand(newUserTopCmd())
	cmd.AddCommand(newUserCostCmd())
	cmd.AddCommand(newUserInactiveCmd())
	cmd.AddCommand(newUserShowCmd())

	return cmd
}

func newUserTopCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Users ranked by activity score",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := apiClient.Analytics().TopByUsage(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(users)
			}

			table := NewTable("USER", "SCORE", "CATEGORY", "EVENTS", "WRITES", "HIGH RISK", "ERRORS", "LAST SEEN")
			for _, u := range users {
				table.AddRow(
					truncate(u.UserID, 30),
					fmt.Sprintf("%.1f", u.ActivityScore),
					u.UsageCategory,
					fmt.Sprintf("%d", u.TotalEvents),
					fmt.Sprintf("%d", u.WriteEvents),
					fmt.Sprintf("%d", u.HighRiskEvents),
					fmt.Sprintf("%d", u.ErrorCount),
					u.LastSeen.Format(time.RFC3339),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum users to list")
	return cmd
}

func newUserCostCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Users ranked by attributed spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			costs, err := apiClient.Analytics().TopByCost(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(costs)
			}

			table := NewTable("USER", "TOTAL COST", "RESOURCES", "COST/RESOURCE", "TOP SERVICES")
			for _, c := range costs {
				services := make([]string, 0, len(c.CostByService))
				for svc := range c.CostByService {
					services = append(services, svc)
				}
				table.AddRow(
					truncate(c.UserID, 30),
					fmt.Sprintf("$%.2f", c.TotalCost),
					fmt.Sprintf("%d", c.ResourceCount),
					fmt.Sprintf("$%.2f", c.CostPerResource),
					truncate(strings.Join(services, ","), 40),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum users to list")
	return cmd
}

func newUserInactiveCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "inactive",
		Short: "Users with no recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := apiClient.Analytics().Inactive(context.Background(), days)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(users)
			}

			table := NewTable("USER", "CATEGORY", "EVENTS", "LAST SEEN")
			for _, u := range users {
				lastSeen := "never"
				if !u.LastSeen.IsZero() {
					lastSeen = u.LastSeen.Format(time.RFC3339)
				}
				table.AddRow(
					truncate(u.UserID, 30),
					u.UsageCategory,
					fmt.Sprintf("%d", u.TotalEvents),
					lastSeen,
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "inactivity window in days")
	return cmd
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show one user's combined usage and cost profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := apiClient.Analytics().User(context.Background(), args[0])
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(detail)
			}

			if m := detail.Metrics; m != nil {
				fmt.Printf("User:            %s\n", m.UserID)
				if m.UserARN != "" {
					fmt.Printf("ARN:             %s\n", m.UserARN)
				}
				fmt.Printf("Activity score:  %.1f (%s)\n", m.ActivityScore, m.UsageCategory)
				fmt.Printf("Events:          %d total, %d read, %d write, %d high-risk, %d errors\n",
					m.TotalEvents, m.ReadEvents, m.WriteEvents, m.HighRiskEvents, m.ErrorCount)
				fmt.Printf("Services:        %s\n", strings.Join(m.ServicesUsed, ", "))
				fmt.Printf("Regions:         %s\n", strings.Join(m.RegionsUsed, ", "))
				fmt.Printf("First seen:      %s\n", m.FirstSeen.Format(time.RFC3339))
				fmt.Printf("Last seen:       %s\n", m.LastSeen.Format(time.RFC3339))
			}
			if c := detail.Costs; c != nil {
				fmt.Printf("Total cost:      $%.2f across %d resources\n", c.TotalCost, c.ResourceCount)
				for svc, amount := range c.CostByService {
					fmt.Printf("  %-20s $%.2f\n", svc, amount)
				}
			}
			return nil
		},
	}
}
