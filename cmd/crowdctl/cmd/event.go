package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/crowdwatch/internal/crowd"
	"github.com/good-yellow-bee/crowdwatch/internal/hub"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
	"github.com/good-yellow-bee/crowdwatch/internal/predictor"
)

var (
	eventName      string
	eventID        string
	eventDate      string
	eventSafe      int
	eventCrowded   int
	eventHeadcount int
	eventSource    string
)

// eventCmd represents the event command group
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long: `Commands for managing monitored events.

Events carry the crowd thresholds that classification and alerting
run against. These commands operate directly on the database file.

Examples:
  # List all events
  crowdctl event list

  # Create a new event
  crowdctl event create --name "Summer Festival" --safe 400 --crowded 600

  # Record a headcount observation
  crowdctl event report --id <event-id> --headcount 450

  # Show current crowd status
  crowdctl event status --id <event-id>`,
}

// eventListCmd lists all events
var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all events",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		events, err := store.Events().List(ctx)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No events found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-24s  %-6s  %-8s  %-10s  %s\n",
			"ID", "NAME", "SAFE", "CROWDED", "DATE", "LAST VALIDATED")
		fmt.Println(strings.Repeat("-", 110))

		for _, e := range events {
			date := "-"
			if e.Date != nil {
				date = e.Date.Format("2006-01-02")
			}
			validated := "never"
			if e.LastValidatedAt != nil {
				validated = e.LastValidatedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%-36s  %-24s  %-6d  %-8d  %-10s  %s\n",
				e.ID,
				truncate(e.Name, 24),
				e.SafeThreshold,
				e.CrowdedThreshold,
				date,
				validated,
			)
		}
		fmt.Printf("\nTotal: %d event(s)\n", len(events))

		return nil
	},
}

// eventCreateCmd creates a new event
var eventCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new event",
	Long: `Create a new monitored event.

The safe threshold is the green/yellow boundary; the crowded threshold
is the yellow/red boundary and the capacity alert trigger.

Example:
  crowdctl event create --name "Summer Festival" --safe 400 --crowded 600 --date 2026-07-18`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventName == "" {
			return fmt.Errorf("--name is required")
		}

		event := models.NewEvent(strings.TrimSpace(eventName), eventSafe, eventCrowded)
		event.ID = uuid.New().String()
		if eventDate != "" {
			date, err := time.Parse("2006-01-02", eventDate)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD")
			}
			event.Date = &date
		}
		if err := event.Validate(); err != nil {
			return err
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Events().Create(context.Background(), event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}

		fmt.Printf("\nEvent created successfully:\n")
		fmt.Printf("  ID:       %s\n", event.ID)
		fmt.Printf("  Name:     %s\n", event.Name)
		fmt.Printf("  Safe:     %d\n", event.SafeThreshold)
		fmt.Printf("  Crowded:  %d\n", event.CrowdedThreshold)
		fmt.Printf("  QR token: %s\n", event.QRToken)

		return nil
	},
}

// eventReportCmd records a headcount observation
var eventReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Record a headcount observation",
	Long: `Record a headcount observation for an event.

The observation runs through the full ingestion pipeline: it is
durably recorded, classified, and evaluated for alerts, exactly as a
submission through the API would be.

Example:
  crowdctl event report --id <event-id> --headcount 450 --source admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		coordinator := crowd.NewCoordinator(store, hub.New(hub.DefaultOptions()),
			crowd.NewPolicyHolder(crowd.DefaultPolicy()))

		result, err := coordinator.Ingest(context.Background(), eventID, eventHeadcount,
			models.Source(eventSource), nil)
		if err != nil {
			return fmt.Errorf("record observation: %w", err)
		}

		fmt.Printf("\nObservation recorded:\n")
		fmt.Printf("  Headcount: %d\n", result.Snapshot.Headcount)
		fmt.Printf("  Status:    %s\n", result.Status)
		if result.Alert != nil {
			fmt.Printf("  Alert:     [%s] %s\n", result.Alert.Type, result.Alert.Message)
		}

		return nil
	},
}

// eventStatusCmd shows the current crowd status
var eventStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current crowd status for an event",
	Long: `Show the current crowd status for an event.

When the latest observation is older than the status fallback age, the
heuristic estimator answers instead.

Example:
  crowdctl event status --id <event-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		event, err := store.Events().GetByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if event == nil {
			return fmt.Errorf("event not found: %s", eventID)
		}

		latest, err := store.Snapshots().Latest(ctx, eventID)
		if err != nil {
			return fmt.Errorf("latest snapshot: %w", err)
		}

		policy := crowd.DefaultPolicy()
		now := time.Now()

		fmt.Printf("\nEvent: %s\n", event.Name)
		if latest != nil && now.Sub(latest.Timestamp) <= policy.StatusFallbackAge {
			fmt.Printf("  Headcount: %d (live, as of %s)\n",
				latest.Headcount, latest.Timestamp.Format("15:04:05"))
			fmt.Printf("  Status:    %s\n", crowd.ClassifyEvent(event, latest.Headcount))
			return nil
		}

		estimate, err := predictor.HeuristicModel{}.Estimate(eventID, now)
		if err != nil {
			return fmt.Errorf("estimate: %w", err)
		}
		fmt.Printf("  Headcount: %d (predicted; last observation ", estimate)
		if latest == nil {
			fmt.Printf("never)\n")
		} else {
			fmt.Printf("%s)\n", latest.Timestamp.Format("2006-01-02 15:04"))
		}
		fmt.Printf("  Status:    %s\n", crowd.ClassifyEvent(event, estimate))

		return nil
	},
}

// eventDeleteCmd deletes an event
var eventDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an event and its history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		event, err := store.Events().GetByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if event == nil {
			return fmt.Errorf("event not found: %s", eventID)
		}

		if err := store.Events().Delete(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}

		fmt.Printf("Event '%s' deleted.\n", event.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(eventListCmd)
	eventCmd.AddCommand(eventCreateCmd)
	eventCmd.AddCommand(eventReportCmd)
	eventCmd.AddCommand(eventStatusCmd)
	eventCmd.AddCommand(eventDeleteCmd)

	eventCreateCmd.Flags().StringVar(&eventName, "name", "", "event name (required)")
	eventCreateCmd.Flags().StringVar(&eventDate, "date", "", "event date (YYYY-MM-DD)")
	eventCreateCmd.Flags().IntVar(&eventSafe, "safe", 0, "safe threshold (green/yellow boundary)")
	eventCreateCmd.Flags().IntVar(&eventCrowded, "crowded", 0, "crowded threshold (yellow/red boundary)")
	eventCreateCmd.MarkFlagRequired("name")

	eventReportCmd.Flags().StringVar(&eventID, "id", "", "event ID (required)")
	eventReportCmd.Flags().IntVar(&eventHeadcount, "headcount", 0, "observed headcount")
	eventReportCmd.Flags().StringVar(&eventSource, "source", "admin", "observation source (admin, qr, ml, sensor)")
	eventReportCmd.MarkFlagRequired("id")

	eventStatusCmd.Flags().StringVar(&eventID, "id", "", "event ID (required)")
	eventStatusCmd.MarkFlagRequired("id")

	eventDeleteCmd.Flags().StringVar(&eventID, "id", "", "event ID (required)")
	eventDeleteCmd.MarkFlagRequired("id")
}
