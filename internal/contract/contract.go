// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/sensorium/schema"
)

// SensorStore defines the persistence operations of the aggregation pipeline.
// This allows the pipeline to be tested without a real database.
type SensorStore interface {
	// --- Raw readings ---

	// InsertReadings appends raw readings. Readings are never updated.
	InsertReadings(ctx context.Context, readings []schema.RawReading) error

	// ListReadings returns the readings of kind in [start, end) ordered by timestamp.
	ListReadings(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.RawReading, error)

	// --- Aggregate inputs ---

	// ListMinutes returns the minute rows of kind in [start, end) ordered by bucket start.
	ListMinutes(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.MinuteAggregate, error)

	// ListHours returns the hour rows of kind in [start, end) ordered by bucket start.
	ListHours(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.HourAggregate, error)

	// HasAggregate reports whether the bucket already has a row.
	HasAggregate(ctx context.Context, b schema.Bucket) (bool, error)

	// --- Guarded writes ---
	// Each insert runs the existence check and the insert in one transaction.
	// It returns false without error when the bucket already had a row.

	InsertMinute(ctx context.Context, m schema.MinuteAggregate) (bool, error)
	InsertHour(ctx context.Context, h schema.HourAggregate) (bool, error)
	InsertDay(ctx context.Context, d schema.DayAggregate) (bool, error)

	// --- Read-only query surface ---

	QueryReadings(ctx context.Context, q schema.ListQuery) ([]schema.RawReading, error)
	QueryMinutes(ctx context.Context, q schema.ListQuery) ([]schema.MinuteAggregate, error)
	QueryHours(ctx context.Context, q schema.ListQuery) ([]schema.HourAggregate, error)
	QueryDays(ctx context.Context, q schema.ListQuery) ([]schema.DayAggregate, error)
	LatestReading(ctx context.Context, kind schema.SensorKind) (schema.RawReading, bool, error)
	ReadingStats(ctx context.Context, kind schema.SensorKind, start, end time.Time) (schema.ReadingStats, error)
	MinuteVariations(ctx context.Context, q schema.VariationQuery) ([]schema.MinuteAggregate, error)

	// GetStatus returns row counts and freshness per table.
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}

// StoreManager defines the interface for managing the sensor store.
// This allows the store layer to be mocked for testing.
type StoreManager interface {
	GetSensorStore() SensorStore
}

// Publisher receives completed-bucket events.
type Publisher interface {
	Publish(ctx context.Context, ev schema.BucketCompleted) error
	Close() error
}

// Recorder observes pipeline outcomes for metrics.
type Recorder interface {
	ObserveOutcome(o schema.Outcome, elapsed time.Duration)
	ObserveIngest(readings int, failed bool)
}

// BatchSpool stages ingestion batches while they are processed.
type BatchSpool interface {
	// Stage writes the batch into the temp area and returns its spool name.
	Stage(id string, data []byte) (string, error)
	// MarkProcessed moves a staged batch to the processed area.
	MarkProcessed(name string) error
	// MarkFailed moves a staged batch to the errors area.
	MarkFailed(name string) error
}
