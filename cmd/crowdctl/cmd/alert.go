package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/crowdwatch/internal/storage"
)

var (
	alertEventID string
	alertID      string
	alertUser    string
	alertAll     bool
	alertLimit   int
)

// alertCmd represents the alert command group
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert record commands",
	Long: `Commands for inspecting and working alert records.

Examples:
  # List open alerts
  crowdctl alert list

  # List all alerts for one event
  crowdctl alert list --event <event-id> --all

  # Acknowledge an alert
  crowdctl alert ack --id <alert-id> --user alice

  # Resolve an alert
  crowdctl alert resolve --id <alert-id>`,
}

// alertListCmd lists alert records
var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		filter := storage.AlertFilter{
			EventID: alertEventID,
			Limit:   alertLimit,
		}
		if !alertAll {
			resolved := false
			filter.Resolved = &resolved
		}

		alerts, err := store.Alerts().List(context.Background(), filter)
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}

		if len(alerts) == 0 {
			fmt.Println("No alerts found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-8s  %-40s  %-8s  %s\n",
			"ID", "TYPE", "MESSAGE", "STATE", "CREATED")
		fmt.Println(strings.Repeat("-", 115))

		for _, a := range alerts {
			state := "open"
			if a.Resolved {
				state = "resolved"
			} else if a.AcknowledgedBy != "" {
				state = "acked"
			}
			fmt.Printf("%-36s  %-8s  %-40s  %-8s  %s\n",
				a.ID,
				a.Type,
				truncate(a.Message, 40),
				state,
				a.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d alert(s)\n", len(alerts))

		return nil
	},
}

// alertAckCmd acknowledges an alert
var alertAckCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge an alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertID == "" {
			return fmt.Errorf("--id is required")
		}
		if alertUser == "" {
			return fmt.Errorf("--user is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		alert, err := store.Alerts().GetByID(ctx, alertID)
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
		}
		if alert == nil {
			return fmt.Errorf("alert not found: %s", alertID)
		}

		if err := store.Alerts().Acknowledge(ctx, alertID, alertUser); err != nil {
			return fmt.Errorf("acknowledge alert: %w", err)
		}

		fmt.Printf("Alert acknowledged by %s.\n", alertUser)
		return nil
	},
}

// alertResolveCmd resolves an alert
var alertResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		alert, err := store.Alerts().GetByID(ctx, alertID)
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
		}
		if alert == nil {
			return fmt.Errorf("alert not found: %s", alertID)
		}

		if err := store.Alerts().Resolve(ctx, alertID); err != nil {
			return fmt.Errorf("resolve alert: %w", err)
		}

		fmt.Println("Alert resolved.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertListCmd)
	alertCmd.AddCommand(alertAckCmd)
	alertCmd.AddCommand(alertResolveCmd)

	alertListCmd.Flags().StringVar(&alertEventID, "event", "", "filter by event ID")
	alertListCmd.Flags().BoolVar(&alertAll, "all", false, "include resolved alerts")
	alertListCmd.Flags().IntVar(&alertLimit, "limit", 50, "maximum alerts to list")

	alertAckCmd.Flags().StringVar(&alertID, "id", "", "alert ID (required)")
	alertAckCmd.Flags().StringVar(&alertUser, "user", "", "acknowledging user (required)")
	alertAckCmd.MarkFlagRequired("id")
	alertAckCmd.MarkFlagRequired("user")

	alertResolveCmd.Flags().StringVar(&alertID, "id", "", "alert ID (required)")
	alertResolveCmd.MarkFlagRequired("id")
}
