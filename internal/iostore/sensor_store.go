package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// SensorStoreImpl implements the SensorStore interface on database/sql.
type SensorStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.SensorStore = &SensorStoreImpl{} // Compile-time check

// NewSensorStore creates a new SensorStore with the specified backend and ensures its tables exist.
func NewSensorStore(backend schema.DatabaseBackend, connStr string) (contract.SensorStore, error) {
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	// Create the table schemas
	if err := createSensorTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sensor tables: %w", err)
	}

	return &SensorStoreImpl{db: db, backend: backend}, nil
}

// createSensorTables runs the initial migration statement by statement.
// Each statement is idempotent so this is safe against an already migrated database.
func createSensorTables(db *sql.DB, backend schema.DatabaseBackend) error {
	data, err := migrationsFS.ReadFile(migrationDir(backend) + "/000001_create_sensor_tables.up.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	for stmt := range strings.SplitSeq(string(data), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// table returns the quoted table for kind at res after validating its name.
func (s *SensorStoreImpl) table(kind schema.SensorKind, res schema.Resolution) (string, error) {
	if _, ok := schema.ValidSensorKinds[kind]; !ok {
		return "", fmt.Errorf("%w: %q", schema.ErrUnknownSensorKind, kind)
	}
	name := TableName(kind, res)
	if err := validateTableName(name); err != nil {
		return "", err
	}
	return quoteTableName(name, s.backend), nil
}

func (s *SensorStoreImpl) q(query string) string {
	return rebind(query, s.backend)
}

// InsertReadings appends raw readings in one transaction, one prepared statement per kind.
func (s *SensorStoreImpl) InsertReadings(ctx context.Context, readings []schema.RawReading) error {
	if len(readings) == 0 {
		return nil
	}

	byKind := make(map[schema.SensorKind][]schema.RawReading, len(schema.AllSensorKinds))
	order := make([]schema.SensorKind, 0, len(schema.AllSensorKinds))
	for _, r := range readings {
		if _, seen := byKind[r.Kind]; !seen {
			order = append(order, r.Kind)
		}
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, kind := range order {
		table, err := s.table(kind, schema.RawResolution)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, s.q(fmt.Sprintf("INSERT INTO %s (value, recorded_at) VALUES (?, ?)", table)))
		if err != nil {
			return fmt.Errorf("failed to prepare insert for %s: %w", kind, err)
		}
		for _, r := range byKind[kind] {
			if _, err := stmt.ExecContext(ctx, r.Value, formatTime(r.Timestamp, s.backend)); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("failed to insert %s reading: %w", kind, err)
			}
		}
		_ = stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit readings: %w", err)
	}
	return nil
}

// ListReadings returns the readings of kind in [start, end) in time order.
func (s *SensorStoreImpl) ListReadings(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.RawReading, error) {
	table, err := s.table(kind, schema.RawResolution)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT value, recorded_at FROM %s WHERE recorded_at >= ? AND recorded_at < ? ORDER BY recorded_at ASC, id ASC", table)
	rows, err := s.db.QueryContext(ctx, s.q(query), formatTime(start, s.backend), formatTime(end, s.backend))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s readings: %w", kind, err)
	}
	return scanReadings(rows, kind)
}

// ListMinutes returns the minute aggregates of kind in [start, end) in time order.
func (s *SensorStoreImpl) ListMinutes(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.MinuteAggregate, error) {
	table, err := s.table(kind, schema.MinuteResolution)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE minute_timestamp >= ? AND minute_timestamp < ? ORDER BY minute_timestamp ASC", minuteColumns, table)
	rows, err := s.db.QueryContext(ctx, s.q(query), formatTime(start, s.backend), formatTime(end, s.backend))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s minutes: %w", kind, err)
	}
	return scanMinutes(rows, kind)
}

// ListHours returns the hour aggregates of kind in [start, end) in time order.
func (s *SensorStoreImpl) ListHours(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.HourAggregate, error) {
	table, err := s.table(kind, schema.HourResolution)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE hour_timestamp >= ? AND hour_timestamp < ? ORDER BY hour_timestamp ASC", hourColumns, table)
	rows, err := s.db.QueryContext(ctx, s.q(query), formatTime(start, s.backend), formatTime(end, s.backend))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s hours: %w", kind, err)
	}
	return scanHours(rows, kind)
}

// bucketValue is the unique-key value identifying b in its table.
func (s *SensorStoreImpl) bucketValue(b schema.Bucket) any {
	if b.Resolution == schema.DayResolution {
		return b.Start.Format(schema.DateLayout)
	}
	return formatTime(b.Start, s.backend)
}

// HasAggregate reports whether an aggregate row already exists for the bucket.
func (s *SensorStoreImpl) HasAggregate(ctx context.Context, b schema.Bucket) (bool, error) {
	return s.hasAggregate(ctx, s.db, b)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SensorStoreImpl) hasAggregate(ctx context.Context, db queryer, b schema.Bucket) (bool, error) {
	column, ok := bucketColumns[b.Resolution]
	if !ok {
		return false, fmt.Errorf("resolution %q has no aggregate table", b.Resolution)
	}
	table, err := s.table(b.Kind, b.Resolution)
	if err != nil {
		return false, err
	}
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, column)
	if err := db.QueryRowContext(ctx, s.q(query), s.bucketValue(b)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", b.Key(), err)
	}
	return count > 0, nil
}

// insertGuarded writes one aggregate row inside a transaction unless the bucket already has one.
// It returns false without error when the row exists, including when a concurrent writer wins the race.
func (s *SensorStoreImpl) insertGuarded(ctx context.Context, b schema.Bucket, columns string, args ...any) (bool, error) {
	table, err := s.table(b.Kind, b.Resolution)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := s.hasAggregate(ctx, tx, b)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, placeholders)
	if _, err := tx.ExecContext(ctx, s.q(query), args...); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert %s: %w", b.Key(), err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to commit %s: %w", b.Key(), err)
	}
	return true, nil
}

// InsertMinute stores a minute aggregate unless its minute already has one.
func (s *SensorStoreImpl) InsertMinute(ctx context.Context, agg schema.MinuteAggregate) (bool, error) {
	b := schema.Bucket{Kind: agg.Kind, Resolution: schema.MinuteResolution, Start: agg.BucketStart}
	return s.insertGuarded(ctx, b, minuteColumns,
		agg.Avg, agg.Min, agg.Max, agg.StdDev, agg.ReadingCount, agg.Range,
		formatTime(agg.BucketStart, s.backend))
}

// InsertHour stores an hour aggregate unless its hour already has one.
func (s *SensorStoreImpl) InsertHour(ctx context.Context, agg schema.HourAggregate) (bool, error) {
	b := schema.Bucket{Kind: agg.Kind, Resolution: schema.HourResolution, Start: agg.BucketStart}
	return s.insertGuarded(ctx, b, hourColumns,
		agg.Avg, agg.Min, agg.Max, agg.StdDev, agg.MinuteCount, agg.Range, nullFloat(agg.Trend),
		formatTime(agg.BucketStart, s.backend))
}

// InsertDay stores a day aggregate unless its date already has one.
func (s *SensorStoreImpl) InsertDay(ctx context.Context, agg schema.DayAggregate) (bool, error) {
	start, err := time.ParseInLocation(schema.DateLayout, agg.Date, time.UTC)
	if err != nil {
		return false, fmt.Errorf("invalid day date %q: %w", agg.Date, err)
	}
	b := schema.Bucket{Kind: agg.Kind, Resolution: schema.DayResolution, Start: start}
	return s.insertGuarded(ctx, b, dayColumns,
		agg.Avg, agg.Min, agg.Max, agg.StdDev, agg.HourCount, agg.Range, nullFloat(agg.Trend),
		agg.PeakValue, agg.ValleyValue, agg.PeakHour, agg.ValleyHour, agg.Date)
}

// Close closes the database connection.
func (s *SensorStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
