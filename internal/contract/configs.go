package contract

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/sensorium/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit    = 100
	MaxResultLimit        = 1000
	DefaultPrecision      = 2
	DefaultHourLookback   = 24 // hours
	DefaultDayLookback    = 7  // days
	DefaultMaxAttempts    = 3
	DefaultMinuteTimeout  = 300 * time.Second
	DefaultHourTimeout    = 300 * time.Second
	DefaultDayTimeout     = 600 * time.Second
	DefaultSweepInterval  = 5 * time.Minute
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultEventsTopic    = "sensorium.buckets"
	DefaultQueuePerWorker = 64
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// LimitRawInput holds one threshold override from the YAML config file.
// Use float64 pointers so that unset fields keep their defaults.
type LimitRawInput struct {
	MaxRange          *float64 `mapstructure:"max_range"`
	MaxStdDev         *float64 `mapstructure:"max_std_dev"`
	MaxPeakValleyDiff *float64 `mapstructure:"max_peak_valley_diff"`
}

// ThresholdsRawInput holds alert threshold overrides keyed by sensor kind.
type ThresholdsRawInput struct {
	Minute map[string]LimitRawInput `mapstructure:"minute"`
	Hour   map[string]LimitRawInput `mapstructure:"hour"`
	Day    map[string]LimitRawInput `mapstructure:"day"`
}

// Config holds the runtime configuration for the pipeline.
// This struct remains the "final, validated" config.
type Config struct {
	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	Workers   int
	QueueSize int
	Location  *time.Location

	HourLookback  time.Duration
	DayLookback   time.Duration
	Since         time.Time // Overrides the lookbacks when set
	SweepInterval time.Duration

	MinuteTimeout time.Duration
	HourTimeout   time.Duration
	DayTimeout    time.Duration
	MaxAttempts   int

	SpoolDir      string
	Listen        string
	EventsBrokers []string
	EventsTopic   string

	LogLevel  slog.Level
	LogFormat string

	Output     schema.OutputMode
	OutputFile string
	Precision  int

	// Query surface
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
	Order  schema.SortOrder

	Thresholds schema.ThresholdTable
	Bands      map[schema.SensorKind]schema.Band
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	DBBackend  string `mapstructure:"db-backend"`
	DBConnect  string `mapstructure:"db-connect"`
	Workers    int    `mapstructure:"workers"`
	QueueSize  int    `mapstructure:"queue-size"`
	Timezone   string `mapstructure:"timezone"`
	LogLevel   string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`

	// --- Pipeline tuning (config file or env) ---
	HourLookback  int    `mapstructure:"hour-lookback"`
	DayLookback   int    `mapstructure:"day-lookback"`
	MinuteTimeout string `mapstructure:"minute-timeout"`
	HourTimeout   string `mapstructure:"hour-timeout"`
	DayTimeout    string `mapstructure:"day-timeout"`
	MaxAttempts   int    `mapstructure:"max-attempts"`
	SpoolDir      string `mapstructure:"spool-dir"`

	// --- Fields from sweepCmd.Flags() ---
	Since string `mapstructure:"since"`

	// --- Fields from serveCmd.Flags() ---
	Listen        string `mapstructure:"listen"`
	SweepInterval string `mapstructure:"sweep-interval"`
	EventsBrokers string `mapstructure:"events-brokers"`
	EventsTopic   string `mapstructure:"events-topic"`

	// --- Fields from queryCmd.PersistentFlags() ---
	Start  string `mapstructure:"start"`
	End    string `mapstructure:"end"`
	Limit  int    `mapstructure:"limit"`
	Offset int    `mapstructure:"offset"`
	Order  string `mapstructure:"order"`

	// --- Alert thresholds from config file ---
	Thresholds ThresholdsRawInput `mapstructure:"thresholds"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processPipelineTuning(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := processServeMode(cfg, input); err != nil {
		return err
	}
	if err := processThresholds(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ValidateBackend parses and checks a backend name together with its connection string.
func ValidateBackend(backend, connStr string) (schema.DatabaseBackend, error) {
	b := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(backend)))
	if b == "" {
		b = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[b]; !ok {
		return "", fmt.Errorf("invalid db backend '%s'. must be sqlite, mysql, postgresql", backend)
	}
	if err := ValidateDatabaseConnectionString(b, connStr); err != nil {
		return "", err
	}
	return b, nil
}

// validateSimpleInputs processes and validates the flat fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.SpoolDir = input.SpoolDir
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = GetSpoolDir()
	}
	cfg.Offset = input.Offset

	// --- 1. Limit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.Limit = input.Limit
	if input.Offset < 0 {
		return fmt.Errorf("offset cannot be negative (received %d)", input.Offset)
	}

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers
	cfg.QueueSize = input.QueueSize
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * DefaultQueuePerWorker
	}

	// --- 3. Precision and Output Validation ---
	if input.Precision < 0 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 0 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}

	cfg.Order = schema.SortOrder(strings.ToLower(input.Order))
	if cfg.Order == "" {
		cfg.Order = schema.Descending
	}
	if cfg.Order != schema.Ascending && cfg.Order != schema.Descending {
		return fmt.Errorf("invalid order '%s'. must be asc, desc", input.Order)
	}

	// --- 4. Logging ---
	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = LogFormatText
	}
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid log format '%s'. must be text, json", input.LogFormat)
	}

	// --- 5. Backend Validation ---
	backend, err := ValidateBackend(input.DBBackend, input.DBConnect)
	if err != nil {
		return err
	}
	cfg.Backend = backend
	cfg.DBConnect = input.DBConnect

	// --- 6. Timezone ---
	loc, err := LoadLocation(input.Timezone)
	if err != nil {
		return err
	}
	cfg.Location = loc

	return nil
}

// LoadLocation resolves a timezone name; empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", name, err)
	}
	return loc, nil
}

// processPipelineTuning handles lookbacks, timeouts and retry limits.
func processPipelineTuning(cfg *Config, input *ConfigRawInput) error {
	if input.HourLookback <= 0 {
		return fmt.Errorf("hour-lookback must be greater than 0 (received %d)", input.HourLookback)
	}
	if input.DayLookback <= 0 {
		return fmt.Errorf("day-lookback must be greater than 0 (received %d)", input.DayLookback)
	}
	cfg.HourLookback = time.Duration(input.HourLookback) * time.Hour
	cfg.DayLookback = time.Duration(input.DayLookback) * 24 * time.Hour

	if input.MaxAttempts <= 0 {
		return fmt.Errorf("max-attempts must be greater than 0 (received %d)", input.MaxAttempts)
	}
	cfg.MaxAttempts = input.MaxAttempts

	var err error
	if cfg.MinuteTimeout, err = parseTimeout("minute-timeout", input.MinuteTimeout, DefaultMinuteTimeout); err != nil {
		return err
	}
	if cfg.HourTimeout, err = parseTimeout("hour-timeout", input.HourTimeout, DefaultHourTimeout); err != nil {
		return err
	}
	if cfg.DayTimeout, err = parseTimeout("day-timeout", input.DayTimeout, DefaultDayTimeout); err != nil {
		return err
	}
	return nil
}

func parseTimeout(name, raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (received %s)", name, raw)
	}
	return d, nil
}

// processTimeRange handles the query range and the sweep --since override.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	var err error
	if cfg.Start, err = ParseTimeArg(input.Start, now, cfg.Location); err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	if cfg.End, err = ParseTimeArg(input.End, now, cfg.Location); err != nil {
		return fmt.Errorf("invalid end: %w", err)
	}
	if !cfg.Start.IsZero() && !cfg.End.IsZero() && cfg.Start.After(cfg.End) {
		return fmt.Errorf("start time (%s) cannot be after end time (%s)", cfg.Start.Format(time.RFC3339), cfg.End.Format(time.RFC3339))
	}
	if cfg.Since, err = ParseTimeArg(input.Since, now, cfg.Location); err != nil {
		return fmt.Errorf("invalid since: %w", err)
	}
	if cfg.Since.After(now) {
		return fmt.Errorf("since (%s) cannot be in the future", cfg.Since.Format(time.RFC3339))
	}
	return nil
}

// processServeMode handles the long-running service settings.
func processServeMode(cfg *Config, input *ConfigRawInput) error {
	cfg.Listen = strings.TrimSpace(input.Listen)
	if cfg.Listen == "" {
		cfg.Listen = DefaultListenAddr
	}

	cfg.SweepInterval = DefaultSweepInterval
	if input.SweepInterval != "" {
		d, err := ParseLookbackDuration(input.SweepInterval)
		if err != nil {
			return fmt.Errorf("invalid sweep-interval: %w", err)
		}
		cfg.SweepInterval = d
	}

	cfg.EventsBrokers = nil
	for b := range strings.SplitSeq(input.EventsBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.EventsBrokers = append(cfg.EventsBrokers, b)
		}
	}
	cfg.EventsTopic = strings.TrimSpace(input.EventsTopic)
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = DefaultEventsTopic
	}
	return nil
}

// processThresholds merges config file overrides into the default alert table.
func processThresholds(cfg *Config, input *ConfigRawInput) error {
	table, err := ApplyThresholdOverrides(DefaultThresholds(), input.Thresholds)
	if err != nil {
		return err
	}
	cfg.Thresholds = table
	cfg.Bands = DefaultBands()
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
