package contract

import (
	"log/slog"
	"testing"
	"time"

	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput mirrors the viper defaults set in cmd.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		DBBackend:    string(schema.SQLiteBackend),
		Workers:      4,
		Output:       "text",
		Precision:    DefaultPrecision,
		Limit:        DefaultResultLimit,
		HourLookback: DefaultHourLookback,
		DayLookback:  DefaultDayLookback,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config"},
		{
			name:        "limit above maximum",
			mutate:      func(in *ConfigRawInput) { in.Limit = 1001 },
			expectError: "limit must be greater than 0 and cannot exceed 1000 (received 1001)",
		},
		{
			name:        "zero limit",
			mutate:      func(in *ConfigRawInput) { in.Limit = 0 },
			expectError: "limit must be greater than 0",
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: "workers must be greater than 0",
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: "invalid output format",
		},
		{
			name:        "invalid backend",
			mutate:      func(in *ConfigRawInput) { in.DBBackend = "oracle" },
			expectError: "invalid db backend 'oracle'",
		},
		{
			name: "mysql without connection string",
			mutate: func(in *ConfigRawInput) {
				in.DBBackend = "mysql"
			},
			expectError: "db-connect is required",
		},
		{
			name:        "invalid timezone",
			mutate:      func(in *ConfigRawInput) { in.Timezone = "Mars/Olympus" },
			expectError: "invalid timezone",
		},
		{
			name:        "invalid timeout",
			mutate:      func(in *ConfigRawInput) { in.DayTimeout = "ten minutes" },
			expectError: "invalid day-timeout",
		},
		{
			name:        "negative lookback",
			mutate:      func(in *ConfigRawInput) { in.HourLookback = -1 },
			expectError: "hour-lookback must be greater than 0",
		},
		{
			name:        "invalid order",
			mutate:      func(in *ConfigRawInput) { in.Order = "sideways" },
			expectError: "invalid order",
		},
		{
			name: "start after end",
			mutate: func(in *ConfigRawInput) {
				in.Start = "2025-06-02"
				in.End = "2025-06-01"
			},
			expectError: "cannot be after end time",
		},
		{
			name:        "invalid log level",
			mutate:      func(in *ConfigRawInput) { in.LogLevel = "loud" },
			expectError: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, schema.SQLiteBackend, cfg.Backend)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 24*time.Hour, cfg.HourLookback)
	assert.Equal(t, 7*24*time.Hour, cfg.DayLookback)
	assert.Equal(t, 300*time.Second, cfg.MinuteTimeout)
	assert.Equal(t, 300*time.Second, cfg.HourTimeout)
	assert.Equal(t, 600*time.Second, cfg.DayTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 4*DefaultQueuePerWorker, cfg.QueueSize)
	assert.Equal(t, schema.Descending, cfg.Order)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, DefaultListenAddr, cfg.Listen)
	assert.Equal(t, DefaultSweepInterval, cfg.SweepInterval)
	assert.Equal(t, DefaultEventsTopic, cfg.EventsTopic)
	assert.Empty(t, cfg.EventsBrokers)
	assert.NotEmpty(t, cfg.SpoolDir)
	assert.True(t, cfg.Since.IsZero())

	limit, ok := cfg.Thresholds.Lookup(schema.DayResolution, schema.ECO2)
	require.True(t, ok)
	assert.Equal(t, 150.0, limit.MaxPeakValleyDiff)
	assert.Len(t, cfg.Bands, len(schema.AllSensorKinds))
}

func TestProcessAndValidateServeAndTuning(t *testing.T) {
	input := validInput()
	input.Timezone = "Europe/Berlin"
	input.MinuteTimeout = "90s"
	input.EventsBrokers = "kafka-1:9092, kafka-2:9092,"
	input.SweepInterval = "15 minutes"
	input.Since = "3 days ago"

	cfg := &Config{}
	err := ProcessAndValidate(cfg, input)
	if err != nil && cfg.Location == nil {
		t.Skip("tzdata not available")
	}
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, 90*time.Second, cfg.MinuteTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.EventsBrokers)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.False(t, cfg.Since.IsZero())
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -3), cfg.Since, time.Minute)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite needs nothing", schema.SQLiteBackend, "", false},
		{"mysql ok", schema.MySQLBackend, "root:pw@tcp(localhost:3306)/sensorium", false},
		{"mysql missing tcp", schema.MySQLBackend, "root:pw@localhost/sensorium", true},
		{"mysql missing db", schema.MySQLBackend, "root:pw@tcp(localhost:3306)", true},
		{"postgres ok", schema.PostgreSQLBackend, "host=localhost port=5432 user=postgres dbname=sensorium", false},
		{"postgres missing host", schema.PostgreSQLBackend, "port=5432 dbname=sensorium", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	require.NoError(t, ProcessProfilingConfig(profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(profile, "sweep"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "sweep", profile.Prefix)
}
