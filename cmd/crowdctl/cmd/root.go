// Package cmd contains the CLI commands for crowdctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/crowdwatch/internal/storage"
)

var (
	// Used for flags
	verbose bool
	output  string
	dbPath  string
)

// defaultDBPath can be overridden via CROWDWATCH_DB_PATH env var.
var defaultDBPath = "data/crowdwatch.db"

func init() {
	if envPath := os.Getenv("CROWDWATCH_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crowdctl",
	Short: "CrowdWatch - event crowd monitoring administration",
	Long: `crowdctl administers a CrowdWatch deployment. It operates
directly on the server's database file, so run it on the host that
holds the database (or point --db at a copy).

Examples:
  # List monitored events
  crowdctl event list

  # Create an event with thresholds
  crowdctl event create --name "Summer Festival" --safe 400 --crowded 600

  # Record a headcount observation
  crowdctl event report --id <event-id> --headcount 450

  # Show current crowd status
  crowdctl event status --id <event-id>

  # Create an admin user
  crowdctl user create --username alice --email alice@example.com --role admin`,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// openDatabase opens the SQLite database.
func openDatabase() (*storage.SQLiteStorage, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", dbPath)
	}

	store := storage.NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return store, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-2] + ".."
}
