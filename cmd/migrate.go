package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/killallgit/speech-coach/internal/database"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the Speech Coach database schema.

The schema is maintained with GORM AutoMigrate, which creates missing
tables, columns and indexes without dropping existing data.

Available subcommands:
  up      - Create or update all tables
  status  - Show which tables exist`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the schema",
	Long:  "Create or update all tables and indexes to match the current models.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(appConfig.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s\n", appConfig.Database.Path)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema status",
	Long:  "Display the current status of every table managed by the application.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Initialize(appConfig.Database.Path, database.Options{
			BusyTimeoutMS: appConfig.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		printTableStatus(cmd.OutOrStdout(), db.TableStatus(models.All()...))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func printTableStatus(out io.Writer, status map[string]bool) {
	tables := make([]string, 0, len(status))
	for table := range status {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	fmt.Fprintln(out, "Database Schema Status")
	fmt.Fprintln(out, strings.Repeat("-", 40))
	for _, table := range tables {
		state := "missing"
		if status[table] {
			state = "present"
		}
		fmt.Fprintf(out, "%-20s %s\n", table, state)
	}
	fmt.Fprintln(out, strings.Repeat("-", 40))
}
