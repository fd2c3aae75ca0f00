package iostore

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/sensorium/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// sqliteTimeLayout stores UTC instants as fixed-width text so that string order is time order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// tablePrefixes maps a resolution to its per-kind table prefix.
var tablePrefixes = map[schema.Resolution]string{
	schema.RawResolution:    "s_",
	schema.MinuteResolution: "m_",
	schema.HourResolution:   "h_",
	schema.DayResolution:    "d_",
}

// bucketColumns maps an aggregate resolution to its unique bucket column.
var bucketColumns = map[schema.Resolution]string{
	schema.MinuteResolution: "minute_timestamp",
	schema.HourResolution:   "hour_timestamp",
	schema.DayResolution:    "day_date",
}

// TableName returns the table holding rows of kind at res.
func TableName(kind schema.SensorKind, res schema.Resolution) string {
	return tablePrefixes[res] + string(kind)
}

// AllTables lists every sensor table, raw tables first.
func AllTables() []string {
	tables := make([]string, 0, len(schema.AllSensorKinds)*len(tablePrefixes))
	for _, res := range []schema.Resolution{schema.RawResolution, schema.MinuteResolution, schema.HourResolution, schema.DayResolution} {
		for _, kind := range schema.AllSensorKinds {
			tables = append(tables, TableName(kind, res))
		}
	}
	return tables
}

// validateTableName validates that a table name is safe for use in SQL queries.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(sqliteTimeLayout)
	default:
		return t.UTC()
	}
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func rebind(query string, backend schema.DatabaseBackend) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// driverName returns the database/sql driver for the backend.
func driverName(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}
}

// normalizeMySQLDSN forces UTC time handling so DATETIME columns round-trip as instants.
func normalizeMySQLDSN(connStr string, multiStatements bool) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL connection string: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = multiStatements
	return cfg.FormatDSN(), nil
}

// openDB opens and pings a connection for the backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	name, err := driverName(backend)
	if err != nil {
		return nil, err
	}

	dsn := connStr
	switch backend {
	case schema.SQLiteBackend:
		dsn = ResolveSQLitePath(connStr)
	case schema.MySQLBackend:
		if dsn, err = normalizeMySQLDSN(connStr, false); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Check that the directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// sqlTime scans instants stored as native timestamps or as text.
type sqlTime struct {
	Time  time.Time
	Valid bool
}

var sqlTimeLayouts = []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", schema.DateLayout}

// Scan implements sql.Scanner.
func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = sqlTime{}
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqlTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// sqlDate scans a calendar date into its YYYY-MM-DD form.
type sqlDate string

// Scan implements sql.Scanner.
func (d *sqlDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = sqlDate(v.Format(schema.DateLayout))
	case string:
		*d = sqlDate(truncateDate(v))
	case []byte:
		*d = sqlDate(truncateDate(string(v)))
	default:
		return fmt.Errorf("cannot scan %T into a date", src)
	}
	return nil
}

func truncateDate(s string) string {
	if len(s) > len(schema.DateLayout) {
		return s[:len(schema.DateLayout)]
	}
	return s
}
