package iostore

import (
	"context"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/mock"
)

// MockSensorStore is a mock implementation of SensorStore for testing.
type MockSensorStore struct {
	mock.Mock
}

var _ contract.SensorStore = &MockSensorStore{} // Compile-time check

// InsertReadings implements the SensorStore interface.
func (m *MockSensorStore) InsertReadings(ctx context.Context, readings []schema.RawReading) error {
	args := m.Called(ctx, readings)
	return args.Error(0)
}

// ListReadings implements the SensorStore interface.
func (m *MockSensorStore) ListReadings(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.RawReading, error) {
	args := m.Called(ctx, kind, start, end)
	readings, _ := args.Get(0).([]schema.RawReading)
	return readings, args.Error(1)
}

// ListMinutes implements the SensorStore interface.
func (m *MockSensorStore) ListMinutes(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.MinuteAggregate, error) {
	args := m.Called(ctx, kind, start, end)
	minutes, _ := args.Get(0).([]schema.MinuteAggregate)
	return minutes, args.Error(1)
}

// ListHours implements the SensorStore interface.
func (m *MockSensorStore) ListHours(ctx context.Context, kind schema.SensorKind, start, end time.Time) ([]schema.HourAggregate, error) {
	args := m.Called(ctx, kind, start, end)
	hours, _ := args.Get(0).([]schema.HourAggregate)
	return hours, args.Error(1)
}

// HasAggregate implements the SensorStore interface.
func (m *MockSensorStore) HasAggregate(ctx context.Context, b schema.Bucket) (bool, error) {
	args := m.Called(ctx, b)
	return args.Bool(0), args.Error(1)
}

// InsertMinute implements the SensorStore interface.
func (m *MockSensorStore) InsertMinute(ctx context.Context, agg schema.MinuteAggregate) (bool, error) {
	args := m.Called(ctx, agg)
	return args.Bool(0), args.Error(1)
}

// InsertHour implements the SensorStore interface.
func (m *MockSensorStore) InsertHour(ctx context.Context, agg schema.HourAggregate) (bool, error) {
	args := m.Called(ctx, agg)
	return args.Bool(0), args.Error(1)
}

// InsertDay implements the SensorStore interface.
func (m *MockSensorStore) InsertDay(ctx context.Context, agg schema.DayAggregate) (bool, error) {
	args := m.Called(ctx, agg)
	return args.Bool(0), args.Error(1)
}

// QueryReadings implements the SensorStore interface.
func (m *MockSensorStore) QueryReadings(ctx context.Context, q schema.ListQuery) ([]schema.RawReading, error) {
	args := m.Called(ctx, q)
	readings, _ := args.Get(0).([]schema.RawReading)
	return readings, args.Error(1)
}

// QueryMinutes implements the SensorStore interface.
func (m *MockSensorStore) QueryMinutes(ctx context.Context, q schema.ListQuery) ([]schema.MinuteAggregate, error) {
	args := m.Called(ctx, q)
	minutes, _ := args.Get(0).([]schema.MinuteAggregate)
	return minutes, args.Error(1)
}

// QueryHours implements the SensorStore interface.
func (m *MockSensorStore) QueryHours(ctx context.Context, q schema.ListQuery) ([]schema.HourAggregate, error) {
	args := m.Called(ctx, q)
	hours, _ := args.Get(0).([]schema.HourAggregate)
	return hours, args.Error(1)
}

// QueryDays implements the SensorStore interface.
func (m *MockSensorStore) QueryDays(ctx context.Context, q schema.ListQuery) ([]schema.DayAggregate, error) {
	args := m.Called(ctx, q)
	days, _ := args.Get(0).([]schema.DayAggregate)
	return days, args.Error(1)
}

// LatestReading implements the SensorStore interface.
func (m *MockSensorStore) LatestReading(ctx context.Context, kind schema.SensorKind) (schema.RawReading, bool, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(schema.RawReading), args.Bool(1), args.Error(2)
}

// ReadingStats implements the SensorStore interface.
func (m *MockSensorStore) ReadingStats(ctx context.Context, kind schema.SensorKind, start, end time.Time) (schema.ReadingStats, error) {
	args := m.Called(ctx, kind, start, end)
	return args.Get(0).(schema.ReadingStats), args.Error(1)
}

// MinuteVariations implements the SensorStore interface.
func (m *MockSensorStore) MinuteVariations(ctx context.Context, q schema.VariationQuery) ([]schema.MinuteAggregate, error) {
	args := m.Called(ctx, q)
	minutes, _ := args.Get(0).([]schema.MinuteAggregate)
	return minutes, args.Error(1)
}

// GetStatus implements the SensorStore interface.
func (m *MockSensorStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the SensorStore interface.
func (m *MockSensorStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
