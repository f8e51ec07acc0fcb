package cmd

import (
	"fmt"
	"strings"

	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the database schema of the Route Planner API.

The schema is derived from the models with GORM AutoMigrate: tables and
columns are added, nothing is dropped.

Available subcommands:
  up      - Create or update all tables
  status  - Show which tables exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update all tables",
	Long: `Create missing tables, columns and indexes for every model.

Running it against an up to date database is a no-op.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

Every model table is listed with whether it exists and how many rows it
holds.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, model := range models.AllModels() {
			fmt.Fprintf(out, "  would migrate %s\n", tableName(model))
		}
		return nil
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return err
	}

	fmt.Fprintf(out, "Migrated %d tables in %s\n", len(models.AllModels()), cfg.Database.Path)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "Database: %s\n\n", cfg.Database.Path)

	pending := 0
	migrator := db.Migrator()
	for _, model := range models.AllModels() {
		name := tableName(model)
		if !migrator.HasTable(model) {
			pending++
			fmt.Fprintf(out, "  %-20s missing\n", name)
			continue
		}
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			return fmt.Errorf("counting %s: %w", name, err)
		}
		fmt.Fprintf(out, "  %-20s ok (%d rows)\n", name, count)
	}

	if pending > 0 {
		fmt.Fprintf(out, "\n%d table(s) missing, run 'migrate up'\n", pending)
	} else {
		fmt.Fprintln(out, "\nSchema is up to date")
	}
	return nil
}
