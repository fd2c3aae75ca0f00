package cmd

import (
	"fmt"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/internal/iostore"
	"github.com/huangsam/sensorium/internal/outwriter"
	"github.com/huangsam/sensorium/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for store operations.
// This is used by commands that need store access without full shared setup.
func storeSetup() error {
	if err := storeMigrateSetup(); err != nil {
		return err
	}

	output := schema.OutputMode(viper.GetString("output"))
	if _, ok := schema.ValidOutputModes[output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", output)
	}
	cfg.Output = output
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Precision = viper.GetInt("precision")

	if err := iostore.InitStore(cfg.Backend, cfg.DBConnect); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// storeMigrateSetup loads the backend settings only. It does NOT open the store or
// create tables, allowing migrations to run on a fresh database.
func storeMigrateSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend, err := contract.ValidateBackend(viper.GetString("db-backend"), viper.GetString("db-connect"))
	if err != nil {
		return err
	}
	cfg.Backend = backend
	cfg.DBConnect = viper.GetString("db-connect")
	return nil
}

// storeMigrateSetupWrapper wraps storeMigrateSetup to provide PreRunE for migrate command.
func storeMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeMigrateSetup()
}

// storeCmd focused on sensor store management.
//
// Note: Store subcommands use minimal initialization instead of the full sharedSetup.
// This avoids pipeline tuning and query validation for simple store operations.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the sensor store schema and data",
	Long: `Manage the 24 sensor tables: raw readings plus minute, hour and day aggregates
for each of the six sensor kinds.

Supported backends: SQLite (default), MySQL, PostgreSQL

Subcommands:
  migrate - Run database schema migrations
  status  - Show row counts and the newest reading per kind
  export  - Export aggregates to Parquet for analytics
  clear   - Remove all sensor data`,
}

// storeMigrateCmd runs database migrations for the sensor store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the sensor store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  sensorium store migrate

  # Rollback to initial state
  sensorium store migrate --target-version 0`,
	PreRunE: storeMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iostore.MigrateStore(cfg.Backend, cfg.DBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display row counts per table and the newest reading per kind",
	Long: `Show the backend, connection state, row count of every table and the
timestamp of the newest raw reading of each sensor kind.

Examples:
  sensorium store status
  sensorium store status --output json`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetSensorStore().GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		if err := outwriter.NewOutWriter().WriteStatus(status, cfg); err != nil {
			contract.LogFatal("Failed to write store status", err)
		}
	},
}

// storeClearCmd clears the sensor data.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all sensor readings and aggregates",
	Long: `Delete every sensor table. For SQLite the database file is removed.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  sensorium store export --output-file backup
  sensorium store clear`,
	PreRunE: storeMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := ""
		if cfg.Backend == schema.SQLiteBackend {
			dbFilePath = iostore.ResolveSQLitePath(cfg.DBConnect)
		}
		if err := iostore.ClearStore(cfg.Backend, dbFilePath, cfg.DBConnect); err != nil {
			contract.LogFatal("Failed to clear sensor data", err)
		}
		fmt.Println("Sensor data cleared successfully.")
	},
}

// storeExportCmd exports aggregates to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export minute, hour and day aggregates to Parquet",
	Long: `Write every minute, hour and day aggregate to Parquet files named
<output-file>.minutes.parquet, <output-file>.hours.parquet and <output-file>.days.parquet.

Requires: --output-file parameter

Examples:
  sensorium store export --output-file sensors
  duckdb -c "SELECT kind, avg(avg_value) FROM read_parquet('sensors.hours.parquet') GROUP BY kind"`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteStoreExport(rootCtx, iostore.Manager.GetSensorStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export sensor data", err)
		}
	},
}
