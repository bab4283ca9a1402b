package cmd

import (
	"fmt"
	"strings"

	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the database schema of the Meeting Recorder API.

Schema changes are applied with GORM auto-migration, which only adds
tables, columns and indexes. Nothing is dropped.

Available subcommands:
  up      - Create or update every table
  status  - Show which tables are missing`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update every table",
	Long: `Create missing tables and add missing columns and indexes.

The serve and worker commands run the same migration on startup.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

Lists every table the service owns that does not exist yet.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func openDatabase() (*database.DB, error) {
	db, err := database.Initialize(appConfig.Database)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return db, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		return printMissing(cmd, db)
	}

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(database.AllModels()))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Database Migration Status")
	fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("=", 50))
	return printMissing(cmd, db)
}

func printMissing(cmd *cobra.Command, db *database.DB) error {
	missing, err := db.MissingTables()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(missing) == 0 {
		fmt.Fprintln(out, "Schema is up to date")
		return nil
	}
	fmt.Fprintln(out, "Missing tables:")
	for _, t := range missing {
		fmt.Fprintf(out, "  %s\n", t)
	}
	return nil
}
