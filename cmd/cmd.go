// Package cmd defines the command-line interface for sensorium.
package cmd

import (
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the sweep subcommands to the parent sweep command
	sweepCmd.AddCommand(sweepHoursCmd)
	sweepCmd.AddCommand(sweepDaysCmd)
	sweepCmd.AddCommand(sweepRecoverCmd)

	// Add the query subcommands to the parent query command
	queryCmd.AddCommand(queryRawCmd)
	queryCmd.AddCommand(queryMinutesCmd)
	queryCmd.AddCommand(queryHoursCmd)
	queryCmd.AddCommand(queryDaysCmd)
	queryCmd.AddCommand(queryLatestCmd)
	queryCmd.AddCommand(queryStatsCmd)
	queryCmd.AddCommand(queryVariationsCmd)
	queryCmd.AddCommand(queryCompareCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeExportCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("db-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent aggregation workers")
	rootCmd.PersistentFlags().Int("queue-size", 0, "Pending task capacity (0 = 64 per worker)")
	rootCmd.PersistentFlags().String("timezone", "UTC", "IANA zone hour and day buckets are cut in")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.LogFormatText, "Log format: text or json")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	ingestCmd.Flags().String("spool-dir", "", "Directory holding the temp, processed and errors areas (default ~/.sensorium/spool)")
	if err := viper.BindPFlags(ingestCmd.Flags()); err != nil {
		contract.LogFatal("Error binding ingest flags", err)
	}

	// Bind all persistent flags of sweepCmd to Viper
	sweepCmd.PersistentFlags().String("since", "", "Sweep from this time instead of the lookback (ISO8601 or time ago)")
	if err := viper.BindPFlags(sweepCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding sweep flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListenAddr, "HTTP listen address for the query API")
	serveCmd.Flags().String("sweep-interval", "5 minutes", "Time between recovery sweeps")
	serveCmd.Flags().String("events-brokers", "", "Comma-separated Kafka brokers to mirror bucket events to")
	serveCmd.Flags().String("events-topic", contract.DefaultEventsTopic, "Kafka topic for bucket events")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all persistent flags of queryCmd to Viper
	queryCmd.PersistentFlags().String("start", "", "Inclusive start in ISO8601 or time ago")
	queryCmd.PersistentFlags().String("end", "", "Exclusive end in ISO8601 or time ago")
	queryCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of rows to display")
	queryCmd.PersistentFlags().Int("offset", 0, "Number of rows to skip")
	queryCmd.PersistentFlags().String("order", string(schema.Descending), "Sort order by time: asc or desc")
	if err := viper.BindPFlags(queryCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding query flags", err)
	}

	// Bind all flags of queryVariationsCmd to Viper
	queryVariationsCmd.Flags().Float64("min-range", 0, "Range floor; 0 matches any variation (default: the kind's minute alert limit)")
	queryVariationsCmd.Flags().Float64("min-std-dev", 0, "Std dev floor; 0 matches any variation (default: the kind's minute alert limit)")
	if err := viper.BindPFlags(queryVariationsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding variations flags", err)
	}

	// Bind all flags of queryCompareCmd to Viper
	queryCompareCmd.Flags().String("at", "", "Any instant inside the minute to compare")
	if err := viper.BindPFlags(queryCompareCmd.Flags()); err != nil {
		contract.LogFatal("Error binding compare flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
