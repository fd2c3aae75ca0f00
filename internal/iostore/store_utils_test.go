package iostore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/sensorium/schema"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableName(t *testing.T) {
	assert.Equal(t, "s_temperature", TableName(schema.Temperature, schema.RawResolution))
	assert.Equal(t, "m_eco2", TableName(schema.ECO2, schema.MinuteResolution))
	assert.Equal(t, "h_noise", TableName(schema.Noise, schema.HourResolution))
	assert.Equal(t, "d_pressure", TableName(schema.Pressure, schema.DayResolution))

	tables := AllTables()
	assert.Len(t, tables, 24)
	for _, table := range tables {
		assert.NoError(t, validateTableName(table))
	}
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName("m_tvoc"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("m_tvoc; DROP TABLE x"))
	assert.Error(t, validateTableName("1table"))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`h_noise`", quoteTableName("h_noise", schema.MySQLBackend))
	assert.Equal(t, `"h_noise"`, quoteTableName("h_noise", schema.PostgreSQLBackend))
	assert.Equal(t, `"h_noise"`, quoteTableName("h_noise", schema.SQLiteBackend))
}

func TestRebind(t *testing.T) {
	query := "SELECT 1 FROM t WHERE a >= ? AND b < ? LIMIT ? OFFSET ?"
	assert.Equal(t, query, rebind(query, schema.SQLiteBackend))
	assert.Equal(t, query, rebind(query, schema.MySQLBackend))
	assert.Equal(t, "SELECT 1 FROM t WHERE a >= $1 AND b < $2 LIMIT $3 OFFSET $4", rebind(query, schema.PostgreSQLBackend))
}

func TestFormatTime(t *testing.T) {
	local := time.Date(2026, 3, 2, 11, 0, 0, 500_000_000, time.FixedZone("CET", 3600))
	assert.Equal(t, "2026-03-02 10:00:00.500000", formatTime(local, schema.SQLiteBackend))
	assert.Equal(t, local.UTC(), formatTime(local, schema.PostgreSQLBackend))
}

func TestSQLTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 2, 10, 0, 0, 500_000_000, time.UTC)
	tests := []struct {
		name string
		src  any
	}{
		{"sqlite text", "2026-03-02 10:00:00.500000"},
		{"bytes", []byte("2026-03-02 10:00:00.500000")},
		{"rfc3339", "2026-03-02T11:00:00.5+01:00"},
		{"native", want.In(time.FixedZone("X", -7200))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts sqlTime
			require.NoError(t, ts.Scan(tt.src))
			assert.True(t, ts.Valid)
			assert.True(t, want.Equal(ts.Time))
			assert.Equal(t, time.UTC, ts.Time.Location())
		})
	}

	var ts sqlTime
	require.NoError(t, ts.Scan(nil))
	assert.False(t, ts.Valid)
	assert.Error(t, ts.Scan("yesterday"))
	assert.Error(t, ts.Scan(42))
}

func TestSQLDateScan(t *testing.T) {
	var d sqlDate
	require.NoError(t, d.Scan(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, sqlDate("2026-03-02"), d)
	require.NoError(t, d.Scan("2026-03-02T00:00:00Z"))
	assert.Equal(t, sqlDate("2026-03-02"), d)
	require.NoError(t, d.Scan([]byte("2026-03-03")))
	assert.Equal(t, sqlDate("2026-03-03"), d)
	assert.Error(t, d.Scan(nil))
}

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, err := normalizeMySQLDSN("user:pass@tcp(localhost:3306)/sensors", true)
	require.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.MultiStatements)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "sensors", cfg.DBName)

	_, err = normalizeMySQLDSN("user:pass@tcp(localhost:3306", false)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isUniqueViolation(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
}

func TestDriverName(t *testing.T) {
	name, err := driverName(schema.PostgreSQLBackend)
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)
	_, err = driverName(schema.DatabaseBackend("oracle"))
	assert.Error(t, err)
}
