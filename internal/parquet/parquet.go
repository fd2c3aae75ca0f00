// Package parquet provides data structures and functions for exporting sensor
// aggregates to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/sensorium/schema"
	"github.com/parquet-go/parquet-go"
)

// MinuteRow represents one minute aggregate of a sensor kind.
// This struct maps to the m_<kind> database tables.
type MinuteRow struct {
	// Kind is the sensor channel the row belongs to
	Kind string `parquet:"kind,snappy,dict"`

	// MinuteTimestamp is the first instant of the minute in UTC
	MinuteTimestamp time.Time `parquet:"minute_timestamp,snappy"`

	AvgValue       float64 `parquet:"avg_value,snappy"`
	MinValue       float64 `parquet:"min_value,snappy"`
	MaxValue       float64 `parquet:"max_value,snappy"`
	StdDev         float64 `parquet:"std_dev,snappy"`
	VariationRange float64 `parquet:"variation_range,snappy"`

	// ReadingCount is the number of raw readings aggregated
	ReadingCount int32 `parquet:"reading_count,snappy"`
}

// HourRow represents one hour aggregate of a sensor kind.
// This struct maps to the h_<kind> database tables.
type HourRow struct {
	Kind           string    `parquet:"kind,snappy,dict"`
	HourTimestamp  time.Time `parquet:"hour_timestamp,snappy"`
	AvgValue       float64   `parquet:"avg_value,snappy"`
	MinValue       float64   `parquet:"min_value,snappy"`
	MaxValue       float64   `parquet:"max_value,snappy"`
	StdDev         float64   `parquet:"std_dev,snappy"`
	VariationRange float64   `parquet:"variation_range,snappy"`

	// HourlyTrend is the least-squares slope per minute (nullable)
	HourlyTrend *float64 `parquet:"hourly_trend,optional,snappy"`

	MinuteCount int32 `parquet:"minute_count,snappy"`
}

// DayRow represents one day aggregate of a sensor kind.
// This struct maps to the d_<kind> database tables.
type DayRow struct {
	Kind string `parquet:"kind,snappy,dict"`

	// DayDate is the calendar date in the bucketing location (YYYY-MM-DD)
	DayDate string `parquet:"day_date,snappy"`

	AvgValue       float64 `parquet:"avg_value,snappy"`
	MinValue       float64 `parquet:"min_value,snappy"`
	MaxValue       float64 `parquet:"max_value,snappy"`
	StdDev         float64 `parquet:"std_dev,snappy"`
	VariationRange float64 `parquet:"variation_range,snappy"`

	// DailyTrend is the least-squares slope per hour (nullable)
	DailyTrend *float64 `parquet:"daily_trend,optional,snappy"`

	HourCount     int32   `parquet:"hour_count,snappy"`
	PeakHourAvg   float64 `parquet:"peak_hour_avg,snappy"`
	ValleyHourAvg float64 `parquet:"valley_hour_avg,snappy"`
	PeakHour      string  `parquet:"peak_hour,snappy"`
	ValleyHour    string  `parquet:"valley_hour,snappy"`
}

// writeRows writes a slice of rows to a Parquet file.
// The schema is derived from the struct tags of T.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteMinutesParquet writes minute rows to a Parquet file.
func WriteMinutesParquet(data []MinuteRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteHoursParquet writes hour rows to a Parquet file.
func WriteHoursParquet(data []HourRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteDaysParquet writes day rows to a Parquet file.
func WriteDaysParquet(data []DayRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertMinutes converts minute aggregates to MinuteRow for Parquet export.
func ConvertMinutes(records []schema.MinuteAggregate) []MinuteRow {
	result := make([]MinuteRow, len(records))
	for i, r := range records {
		result[i] = MinuteRow{
			Kind:            string(r.Kind),
			MinuteTimestamp: r.BucketStart.UTC(),
			AvgValue:        r.Avg,
			MinValue:        r.Min,
			MaxValue:        r.Max,
			StdDev:          r.StdDev,
			VariationRange:  r.Range,
			ReadingCount:    int32(r.ReadingCount),
		}
	}
	return result
}

// ConvertHours converts hour aggregates to HourRow for Parquet export.
func ConvertHours(records []schema.HourAggregate) []HourRow {
	result := make([]HourRow, len(records))
	for i, r := range records {
		result[i] = HourRow{
			Kind:           string(r.Kind),
			HourTimestamp:  r.BucketStart.UTC(),
			AvgValue:       r.Avg,
			MinValue:       r.Min,
			MaxValue:       r.Max,
			StdDev:         r.StdDev,
			VariationRange: r.Range,
			HourlyTrend:    r.Trend,
			MinuteCount:    int32(r.MinuteCount),
		}
	}
	return result
}

// ConvertDays converts day aggregates to DayRow for Parquet export.
func ConvertDays(records []schema.DayAggregate) []DayRow {
	result := make([]DayRow, len(records))
	for i, r := range records {
		result[i] = DayRow{
			Kind:           string(r.Kind),
			DayDate:        r.Date,
			AvgValue:       r.Avg,
			MinValue:       r.Min,
			MaxValue:       r.Max,
			StdDev:         r.StdDev,
			VariationRange: r.Range,
			DailyTrend:     r.Trend,
			HourCount:      int32(r.HourCount),
			PeakHourAvg:    r.PeakValue,
			ValleyHourAvg:  r.ValleyValue,
			PeakHour:       r.PeakHour,
			ValleyHour:     r.ValleyHour,
		}
	}
	return result
}
