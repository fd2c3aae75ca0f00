package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
)

// Column lists shared by inserts and selects, in scan order.
const (
	minuteColumns = "avg_value, min_value, max_value, std_dev, reading_count, variation_range, minute_timestamp"
	hourColumns   = "avg_value, min_value, max_value, std_dev, minute_count, variation_range, hourly_trend, hour_timestamp"
	dayColumns    = "avg_value, min_value, max_value, std_dev, hour_count, variation_range, daily_trend, " +
		"peak_hour_avg, valley_hour_avg, peak_hour, valley_hour, day_date"
)

// listClause renders the WHERE, ORDER BY and LIMIT parts of a listing on column.
// Day tables compare dates while the others compare instants.
func (s *SensorStoreImpl) listClause(column string, res schema.Resolution, q schema.ListQuery, extra string, extraArgs ...any) (string, []any) {
	var where []string
	var args []any
	bound := func(t time.Time) any {
		if res == schema.DayResolution {
			return t.Format(schema.DateLayout)
		}
		return formatTime(t, s.backend)
	}
	if !q.Start.IsZero() {
		where = append(where, column+" >= ?")
		args = append(args, bound(q.Start))
	}
	if !q.End.IsZero() {
		where = append(where, column+" < ?")
		args = append(args, bound(q.End))
	}
	if extra != "" {
		where = append(where, extra)
		args = append(args, extraArgs...)
	}

	var b strings.Builder
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	direction := "DESC"
	if q.Order == schema.Ascending {
		direction = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s", column, direction)

	limit := q.Limit
	if limit <= 0 {
		limit = contract.DefaultResultLimit
	}
	offset := max(q.Offset, 0)
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, offset)
	return b.String(), args
}

// QueryReadings lists raw readings of one kind.
func (s *SensorStoreImpl) QueryReadings(ctx context.Context, q schema.ListQuery) ([]schema.RawReading, error) {
	table, err := s.table(q.Kind, schema.RawResolution)
	if err != nil {
		return nil, err
	}
	clause, args := s.listClause("recorded_at", schema.RawResolution, q, "")
	rows, err := s.db.QueryContext(ctx, s.q("SELECT value, recorded_at FROM "+table+clause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s readings: %w", q.Kind, err)
	}
	return scanReadings(rows, q.Kind)
}

// QueryMinutes lists minute aggregates of one kind.
func (s *SensorStoreImpl) QueryMinutes(ctx context.Context, q schema.ListQuery) ([]schema.MinuteAggregate, error) {
	table, err := s.table(q.Kind, schema.MinuteResolution)
	if err != nil {
		return nil, err
	}
	clause, args := s.listClause("minute_timestamp", schema.MinuteResolution, q, "")
	rows, err := s.db.QueryContext(ctx, s.q("SELECT "+minuteColumns+" FROM "+table+clause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s minutes: %w", q.Kind, err)
	}
	return scanMinutes(rows, q.Kind)
}

// QueryHours lists hour aggregates of one kind.
func (s *SensorStoreImpl) QueryHours(ctx context.Context, q schema.ListQuery) ([]schema.HourAggregate, error) {
	table, err := s.table(q.Kind, schema.HourResolution)
	if err != nil {
		return nil, err
	}
	clause, args := s.listClause("hour_timestamp", schema.HourResolution, q, "")
	rows, err := s.db.QueryContext(ctx, s.q("SELECT "+hourColumns+" FROM "+table+clause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s hours: %w", q.Kind, err)
	}
	return scanHours(rows, q.Kind)
}

// QueryDays lists day aggregates of one kind.
func (s *SensorStoreImpl) QueryDays(ctx context.Context, q schema.ListQuery) ([]schema.DayAggregate, error) {
	table, err := s.table(q.Kind, schema.DayResolution)
	if err != nil {
		return nil, err
	}
	clause, args := s.listClause("day_date", schema.DayResolution, q, "")
	rows, err := s.db.QueryContext(ctx, s.q("SELECT "+dayColumns+" FROM "+table+clause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s days: %w", q.Kind, err)
	}
	return scanDays(rows, q.Kind)
}

// MinuteVariations lists minutes whose range or standard deviation exceeds the query floors.
func (s *SensorStoreImpl) MinuteVariations(ctx context.Context, q schema.VariationQuery) ([]schema.MinuteAggregate, error) {
	table, err := s.table(q.Kind, schema.MinuteResolution)
	if err != nil {
		return nil, err
	}
	clause, args := s.listClause("minute_timestamp", schema.MinuteResolution, q.ListQuery,
		"(variation_range > ? OR std_dev > ?)", floorValue(q.MinRange), floorValue(q.MinStdDev))
	rows, err := s.db.QueryContext(ctx, s.q("SELECT "+minuteColumns+" FROM "+table+clause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s variations: %w", q.Kind, err)
	}
	return scanMinutes(rows, q.Kind)
}

// floorValue treats an unset floor as zero.
func floorValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// LatestReading returns the most recent reading of kind, if any.
func (s *SensorStoreImpl) LatestReading(ctx context.Context, kind schema.SensorKind) (schema.RawReading, bool, error) {
	readings, err := s.QueryReadings(ctx, schema.ListQuery{Kind: kind, Limit: 1, Order: schema.Descending})
	if err != nil {
		return schema.RawReading{}, false, err
	}
	if len(readings) == 0 {
		return schema.RawReading{}, false, nil
	}
	return readings[0], true, nil
}

// ReadingStats summarizes the readings of kind in [start, end).
// Statistics stay nil when no reading falls in the range; the deviation needs two readings.
func (s *SensorStoreImpl) ReadingStats(ctx context.Context, kind schema.SensorKind, start, end time.Time) (schema.ReadingStats, error) {
	stats := schema.ReadingStats{Kind: kind, Start: start, End: end}
	table, err := s.table(kind, schema.RawResolution)
	if err != nil {
		return stats, err
	}

	var where []string
	var args []any
	if !start.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, formatTime(start, s.backend))
	}
	if !end.IsZero() {
		where = append(where, "recorded_at < ?")
		args = append(args, formatTime(end, s.backend))
	}
	query := "SELECT COUNT(*), AVG(value), MIN(value), MAX(value), SUM(value * value) FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var avg, minV, maxV, sumSq sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(&stats.Count, &avg, &minV, &maxV, &sumSq); err != nil {
		return stats, fmt.Errorf("failed to compute %s stats: %w", kind, err)
	}
	stats.Avg, stats.Min, stats.Max = floatPtr(avg), floatPtr(minV), floatPtr(maxV)

	if stats.Count > 1 && avg.Valid && sumSq.Valid {
		n := float64(stats.Count)
		variance := (sumSq.Float64 - n*avg.Float64*avg.Float64) / (n - 1)
		std := math.Sqrt(math.Max(variance, 0))
		stats.StdDev = &std
	}
	return stats, nil
}

func scanReadings(rows *sql.Rows, kind schema.SensorKind) ([]schema.RawReading, error) {
	defer func() { _ = rows.Close() }()
	readings := make([]schema.RawReading, 0)
	for rows.Next() {
		var r schema.RawReading
		var ts sqlTime
		if err := rows.Scan(&r.Value, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan %s reading: %w", kind, err)
		}
		r.Kind, r.Timestamp = kind, ts.Time
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func scanMinutes(rows *sql.Rows, kind schema.SensorKind) ([]schema.MinuteAggregate, error) {
	defer func() { _ = rows.Close() }()
	out := make([]schema.MinuteAggregate, 0)
	for rows.Next() {
		var m schema.MinuteAggregate
		var std sql.NullFloat64
		var ts sqlTime
		if err := rows.Scan(&m.Avg, &m.Min, &m.Max, &std, &m.ReadingCount, &m.Range, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan %s minute: %w", kind, err)
		}
		m.Kind, m.StdDev, m.BucketStart = kind, std.Float64, ts.Time
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanHours(rows *sql.Rows, kind schema.SensorKind) ([]schema.HourAggregate, error) {
	defer func() { _ = rows.Close() }()
	out := make([]schema.HourAggregate, 0)
	for rows.Next() {
		var h schema.HourAggregate
		var std, trend sql.NullFloat64
		var ts sqlTime
		if err := rows.Scan(&h.Avg, &h.Min, &h.Max, &std, &h.MinuteCount, &h.Range, &trend, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan %s hour: %w", kind, err)
		}
		h.Kind, h.StdDev, h.Trend, h.BucketStart = kind, std.Float64, floatPtr(trend), ts.Time
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanDays(rows *sql.Rows, kind schema.SensorKind) ([]schema.DayAggregate, error) {
	defer func() { _ = rows.Close() }()
	out := make([]schema.DayAggregate, 0)
	for rows.Next() {
		var d schema.DayAggregate
		var std, trend, peak, valley sql.NullFloat64
		var peakHour, valleyHour sql.NullString
		var date sqlDate
		if err := rows.Scan(&d.Avg, &d.Min, &d.Max, &std, &d.HourCount, &d.Range, &trend,
			&peak, &valley, &peakHour, &valleyHour, &date); err != nil {
			return nil, fmt.Errorf("failed to scan %s day: %w", kind, err)
		}
		d.Kind, d.StdDev, d.Trend = kind, std.Float64, floatPtr(trend)
		d.PeakValue, d.ValleyValue = peak.Float64, valley.Float64
		d.PeakHour, d.ValleyHour = peakHour.String, valleyHour.String
		d.Date = string(date)
		out = append(out, d)
	}
	return out, rows.Err()
}
