package iostore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newMemoryStore(t *testing.T) contract.SensorStore {
	t.Helper()
	store, err := NewSensorStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func readingsEvery(kind schema.SensorKind, start time.Time, step time.Duration, values ...float64) []schema.RawReading {
	out := make([]schema.RawReading, len(values))
	for i, v := range values {
		out[i] = schema.RawReading{Kind: kind, Value: v, Timestamp: start.Add(time.Duration(i) * step)}
	}
	return out
}

func TestSensorStore_InsertAndListReadings(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	readings := readingsEvery(schema.Temperature, base, 5*time.Second, 21.0, 21.2, 21.4, 21.6)
	readings = append(readings, readingsEvery(schema.Humidity, base, 5*time.Second, 40, 41)...)
	require.NoError(t, store.InsertReadings(ctx, readings))

	got, err := store.ListReadings(ctx, schema.Temperature, base, base.Add(15*time.Second))
	require.NoError(t, err)
	require.Len(t, got, 3, "end bound is exclusive")
	assert.Equal(t, schema.Temperature, got[0].Kind)
	assert.InDelta(t, 21.0, got[0].Value, 1e-9)
	assert.True(t, base.Equal(got[0].Timestamp))
	assert.True(t, base.Add(10*time.Second).Equal(got[2].Timestamp))

	humidity, err := store.ListReadings(ctx, schema.Humidity, base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, humidity, 2)

	assert.NoError(t, store.InsertReadings(ctx, nil))
}

func TestSensorStore_UnknownKind(t *testing.T) {
	store := newMemoryStore(t)
	_, err := store.ListReadings(context.Background(), schema.SensorKind("radon"), base, base.Add(time.Minute))
	assert.ErrorIs(t, err, schema.ErrUnknownSensorKind)
}

func TestSensorStore_InsertMinuteIsGuarded(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	minute := schema.MinuteAggregate{
		Kind: schema.Noise, BucketStart: base, Avg: 41.5, Min: 40, Max: 43, StdDev: 0.9, Range: 3, ReadingCount: 12,
	}
	bucket := schema.Bucket{Kind: schema.Noise, Resolution: schema.MinuteResolution, Start: base}

	exists, err := store.HasAggregate(ctx, bucket)
	require.NoError(t, err)
	assert.False(t, exists)

	written, err := store.InsertMinute(ctx, minute)
	require.NoError(t, err)
	assert.True(t, written)

	minute.Avg = 99
	written, err = store.InsertMinute(ctx, minute)
	require.NoError(t, err)
	assert.False(t, written, "second write for the same minute is a no-op")

	exists, err = store.HasAggregate(ctx, bucket)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.ListMinutes(ctx, schema.Noise, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 41.5, got[0].Avg, 1e-9)
	assert.Equal(t, 12, got[0].ReadingCount)
	assert.True(t, base.Equal(got[0].BucketStart))
}

func TestSensorStore_RawUniqueViolationIsDetected(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	impl := store.(*SensorStoreImpl)

	_, err := store.InsertMinute(ctx, schema.MinuteAggregate{Kind: schema.TVOC, BucketStart: base, ReadingCount: 12})
	require.NoError(t, err)

	_, err = impl.db.Exec(`INSERT INTO "m_tvoc" (`+minuteColumns+`) VALUES (1, 1, 1, 0, 12, 0, ?)`,
		formatTime(base, schema.SQLiteBackend))
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestSensorStore_HourTrendRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	trend := 0.0125
	_, err := store.InsertHour(ctx, schema.HourAggregate{Kind: schema.Pressure, BucketStart: base, Avg: 1013.2, MinuteCount: 58, Trend: &trend})
	require.NoError(t, err)
	_, err = store.InsertHour(ctx, schema.HourAggregate{Kind: schema.Pressure, BucketStart: base.Add(time.Hour), Avg: 1013.4, MinuteCount: 50})
	require.NoError(t, err)

	hours, err := store.ListHours(ctx, schema.Pressure, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, hours, 2)
	require.NotNil(t, hours[0].Trend)
	assert.InDelta(t, trend, *hours[0].Trend, 1e-9)
	assert.Nil(t, hours[1].Trend)
	assert.Equal(t, 50, hours[1].MinuteCount)
}

func TestSensorStore_InsertDay(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	trend := -0.05
	day := schema.DayAggregate{
		Kind: schema.Temperature, Date: "2026-03-02", Avg: 21.3, Min: 17.1, Max: 26.9, StdDev: 2.1, Range: 9.8,
		Trend: &trend, HourCount: 22, PeakValue: 26.75, ValleyValue: 17.25, PeakHour: "14:00", ValleyHour: "04:00",
	}
	written, err := store.InsertDay(ctx, day)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = store.InsertDay(ctx, day)
	require.NoError(t, err)
	assert.False(t, written)

	exists, err := store.HasAggregate(ctx, schema.Bucket{
		Kind: schema.Temperature, Resolution: schema.DayResolution,
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, exists)

	days, err := store.QueryDays(ctx, schema.ListQuery{Kind: schema.Temperature})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, day, days[0])

	_, err = store.InsertDay(ctx, schema.DayAggregate{Kind: schema.Temperature, Date: "03/02/2026"})
	assert.Error(t, err)
}

func TestSensorStore_QueryMinutesPaging(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	for i := range 5 {
		_, err := store.InsertMinute(ctx, schema.MinuteAggregate{
			Kind: schema.ECO2, BucketStart: base.Add(time.Duration(i) * time.Minute), Avg: float64(400 + i), ReadingCount: 12,
		})
		require.NoError(t, err)
	}

	desc, err := store.QueryMinutes(ctx, schema.ListQuery{Kind: schema.ECO2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.InDelta(t, 404, desc[0].Avg, 1e-9)
	assert.InDelta(t, 403, desc[1].Avg, 1e-9)

	asc, err := store.QueryMinutes(ctx, schema.ListQuery{Kind: schema.ECO2, Limit: 2, Offset: 1, Order: schema.Ascending})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.InDelta(t, 401, asc[0].Avg, 1e-9)

	ranged, err := store.QueryMinutes(ctx, schema.ListQuery{
		Kind: schema.ECO2, Start: base.Add(time.Minute), End: base.Add(3 * time.Minute), Order: schema.Ascending,
	})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.InDelta(t, 401, ranged[0].Avg, 1e-9)
	assert.InDelta(t, 402, ranged[1].Avg, 1e-9)
}

func TestSensorStore_MinuteVariations(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	minutes := []schema.MinuteAggregate{
		{Kind: schema.Temperature, BucketStart: base, Range: 1.0, StdDev: 0.4, ReadingCount: 12},
		{Kind: schema.Temperature, BucketStart: base.Add(time.Minute), Range: 3.5, StdDev: 0.9, ReadingCount: 12},
		{Kind: schema.Temperature, BucketStart: base.Add(2 * time.Minute), Range: 2.0, StdDev: 1.6, ReadingCount: 12},
		{Kind: schema.Temperature, BucketStart: base.Add(3 * time.Minute), Range: 3.0, StdDev: 1.5, ReadingCount: 12},
	}
	for _, m := range minutes {
		_, err := store.InsertMinute(ctx, m)
		require.NoError(t, err)
	}

	minRange, minStdDev := 3.0, 1.5
	got, err := store.MinuteVariations(ctx, schema.VariationQuery{
		ListQuery: schema.ListQuery{Kind: schema.Temperature, Order: schema.Ascending},
		MinRange:  &minRange,
		MinStdDev: &minStdDev,
	})
	require.NoError(t, err)
	require.Len(t, got, 2, "floors are exclusive and either condition qualifies")
	assert.True(t, base.Add(time.Minute).Equal(got[0].BucketStart))
	assert.True(t, base.Add(2*time.Minute).Equal(got[1].BucketStart))

	zero := 0.0
	got, err = store.MinuteVariations(ctx, schema.VariationQuery{
		ListQuery: schema.ListQuery{Kind: schema.Temperature, Order: schema.Ascending},
		MinRange:  &zero,
		MinStdDev: &zero,
	})
	require.NoError(t, err)
	assert.Len(t, got, 4, "zero floors match any variation")
}

func TestSensorStore_LatestAndStats(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	_, ok, err := store.LatestReading(ctx, schema.Humidity)
	require.NoError(t, err)
	assert.False(t, ok)

	empty, err := store.ReadingStats(ctx, schema.Humidity, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Count)
	assert.Nil(t, empty.Avg)
	assert.Nil(t, empty.StdDev)

	require.NoError(t, store.InsertReadings(ctx, readingsEvery(schema.Humidity, base, time.Minute, 1, 2, 3, 4)))

	latest, ok, err := store.LatestReading(ctx, schema.Humidity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 4, latest.Value, 1e-9)
	assert.True(t, base.Add(3*time.Minute).Equal(latest.Timestamp))

	stats, err := store.ReadingStats(ctx, schema.Humidity, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Count)
	require.NotNil(t, stats.Avg)
	require.NotNil(t, stats.StdDev)
	assert.InDelta(t, 2.5, *stats.Avg, 1e-9)
	assert.InDelta(t, 1, *stats.Min, 1e-9)
	assert.InDelta(t, 4, *stats.Max, 1e-9)
	assert.InDelta(t, math.Sqrt(5.0/3.0), *stats.StdDev, 1e-9)

	single, err := store.ReadingStats(ctx, schema.Humidity, base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), single.Count)
	assert.Nil(t, single.StdDev)
}

func TestSensorStore_GetStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	require.NoError(t, store.InsertReadings(ctx, readingsEvery(schema.TVOC, base, time.Second, 100, 110)))
	_, err := store.InsertMinute(ctx, schema.MinuteAggregate{Kind: schema.TVOC, BucketStart: base, ReadingCount: 12})
	require.NoError(t, err)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Len(t, status.TableSizes, 24)
	assert.Equal(t, int64(2), status.TableSizes["s_tvoc"])
	assert.Equal(t, int64(1), status.TableSizes["m_tvoc"])
	assert.Equal(t, int64(3), status.TotalRows())
	assert.True(t, base.Add(time.Second).Equal(status.LatestReading[schema.TVOC]))
	_, ok := status.LatestReading[schema.Noise]
	assert.False(t, ok)
}

func TestExecuteStoreExport(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	assert.Error(t, ExecuteStoreExport(ctx, store, ""))
	assert.Error(t, ExecuteStoreExport(ctx, store, filepath.Join(t.TempDir(), "empty")), "empty store has nothing to export")

	_, err := store.InsertMinute(ctx, schema.MinuteAggregate{Kind: schema.Noise, BucketStart: base, ReadingCount: 12})
	require.NoError(t, err)
	_, err = store.InsertDay(ctx, schema.DayAggregate{Kind: schema.Noise, Date: "2026-03-02", HourCount: 20})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "sensors")
	require.NoError(t, ExecuteStoreExport(ctx, store, out))
	for _, suffix := range []string{".minutes.parquet", ".hours.parquet", ".days.parquet"} {
		_, err := os.Stat(out + suffix)
		assert.NoError(t, err, suffix)
	}
}

func TestMigrateStore_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")

	require.NoError(t, MigrateStore(schema.SQLiteBackend, dbPath, -1))
	require.NoError(t, MigrateStore(schema.SQLiteBackend, dbPath, -1), "second run is a no-op")

	store, err := NewSensorStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	status, err := store.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Len(t, status.TableSizes, 24)
	require.NoError(t, store.Close())

	require.NoError(t, MigrateStore(schema.SQLiteBackend, dbPath, 0))
}

func TestMigrateStore_UnsupportedBackend(t *testing.T) {
	assert.Error(t, MigrateStore(schema.DatabaseBackend("oracle"), "", -1))
}

func TestClearStore_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "clear.db")
	store, err := NewSensorStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearStore(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ClearStore(schema.SQLiteBackend, dbPath, ""), "missing file is fine")
	assert.Error(t, ClearStore(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearStore(schema.DatabaseBackend("oracle"), "", ""))
}
