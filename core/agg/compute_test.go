package agg

import (
	"testing"
	"time"

	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingsAt(kind schema.SensorKind, start time.Time, values ...float64) []schema.RawReading {
	out := make([]schema.RawReading, len(values))
	for i, v := range values {
		out[i] = schema.RawReading{Kind: kind, Value: v, Timestamp: start.Add(time.Duration(i*5) * time.Second)}
	}
	return out
}

func TestComputeMinute(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)
	b := schema.Bucket{Kind: schema.Temperature, Resolution: schema.MinuteResolution, Start: start}

	t.Run("uniform readings", func(t *testing.T) {
		values := make([]float64, 12)
		for i := range values {
			values[i] = 25.0
		}
		m, gate := ComputeMinute(b, readingsAt(schema.Temperature, start, values...))
		require.True(t, gate.Eligible)
		assert.Equal(t, schema.MinuteAggregate{
			Kind:         schema.Temperature,
			BucketStart:  start,
			Avg:          25.0,
			Min:          25.0,
			Max:          25.0,
			StdDev:       0.0,
			Range:        0.0,
			ReadingCount: 12,
		}, m)
	})

	t.Run("arithmetic progression is rounded", func(t *testing.T) {
		values := make([]float64, 12)
		for i := range values {
			values[i] = 20.0 + float64(i)
		}
		m, gate := ComputeMinute(b, readingsAt(schema.Temperature, start, values...))
		require.True(t, gate.Eligible)
		assert.Equal(t, 25.5, m.Avg)
		assert.Equal(t, 20.0, m.Min)
		assert.Equal(t, 31.0, m.Max)
		assert.Equal(t, 3.6056, m.StdDev)
		assert.Equal(t, 11.0, m.Range)
	})

	t.Run("eleven readings", func(t *testing.T) {
		_, gate := ComputeMinute(b, readingsAt(schema.Temperature, start, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11))
		assert.False(t, gate.Eligible)
		assert.Equal(t, "11 < 12", gate.Detail)
	})
}

func minuteRows(kind schema.SensorKind, hour time.Time, avg func(i int) float64, offsets ...int) []schema.MinuteAggregate {
	out := make([]schema.MinuteAggregate, len(offsets))
	for i, o := range offsets {
		a := avg(o)
		out[i] = schema.MinuteAggregate{
			Kind:         kind,
			BucketStart:  hour.Add(time.Duration(o) * time.Minute),
			Avg:          a,
			Min:          a - 0.5,
			Max:          a + 0.5,
			ReadingCount: 12,
		}
	}
	return out
}

func TestComputeHour(t *testing.T) {
	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	b := schema.Bucket{Kind: schema.Humidity, Resolution: schema.HourResolution, Start: hour}

	t.Run("increasing minutes", func(t *testing.T) {
		rows := minuteRows(schema.Humidity, hour, func(i int) float64 { return 40 + float64(i)*0.1 }, rangeInts(0, 59)...)
		h, gate := ComputeHour(b, rows)
		require.True(t, gate.Eligible)
		assert.Equal(t, 60, h.MinuteCount)
		assert.Equal(t, hour, h.BucketStart)
		assert.Equal(t, 42.95, h.Avg)
		assert.Equal(t, 39.5, h.Min)
		assert.Equal(t, 46.4, h.Max)
		assert.Equal(t, 6.9, h.Range)
		require.NotNil(t, h.Trend)
		assert.Equal(t, 0.1, *h.Trend)
	})

	t.Run("order of input does not matter", func(t *testing.T) {
		rows := minuteRows(schema.Humidity, hour, func(i int) float64 { return 60 - float64(i) }, rangeInts(0, 54)...)
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
		h, gate := ComputeHour(b, rows)
		require.True(t, gate.Eligible)
		require.NotNil(t, h.Trend)
		assert.Equal(t, -1.0, *h.Trend)
	})

	t.Run("48 minutes", func(t *testing.T) {
		rows := minuteRows(schema.Humidity, hour, func(int) float64 { return 40 }, rangeInts(0, 47)...)
		_, gate := ComputeHour(b, rows)
		assert.False(t, gate.Eligible)
		assert.Equal(t, "48 < 50", gate.Detail)
	})
}

func TestComputeDay(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := schema.Bucket{Kind: schema.Temperature, Resolution: schema.DayResolution, Start: day}

	// A warm afternoon: coolest at 04:00, warmest at 15:00.
	profile := map[int]float64{}
	for h := range 24 {
		profile[h] = 20
	}
	profile[4] = 17.25
	profile[15] = 26.75

	rows := make([]schema.HourAggregate, 0, 24)
	for h := range 24 {
		rows = append(rows, schema.HourAggregate{
			Kind:        schema.Temperature,
			BucketStart: day.Add(time.Duration(h) * time.Hour),
			Avg:         profile[h],
			Min:         profile[h] - 1,
			Max:         profile[h] + 1,
			MinuteCount: 60,
		})
	}

	d, gate := ComputeDay(b, rows, time.UTC)
	require.True(t, gate.Eligible)
	assert.Equal(t, "2025-06-01", d.Date)
	assert.Equal(t, 24, d.HourCount)
	assert.Equal(t, 26.75, d.PeakValue)
	assert.Equal(t, "15:00", d.PeakHour)
	assert.Equal(t, 17.25, d.ValleyValue)
	assert.Equal(t, "04:00", d.ValleyHour)
	assert.Equal(t, 16.25, d.Min)
	assert.Equal(t, 27.75, d.Max)
	assert.Equal(t, 9.5, d.PeakValleyDiff())
	require.NotNil(t, d.Trend)

	t.Run("19 hours is not enough", func(t *testing.T) {
		_, gate := ComputeDay(b, rows[:19], time.UTC)
		assert.False(t, gate.Eligible)
		assert.Equal(t, "19 < 20", gate.Detail)
	})

	t.Run("peak hour rendered in bucketing location", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*3600)
		local := schema.Bucket{Kind: schema.Temperature, Resolution: schema.DayResolution, Start: time.Date(2025, 6, 1, 0, 0, 0, 0, loc)}
		shifted := make([]schema.HourAggregate, len(rows))
		for i, r := range rows {
			r.BucketStart = r.BucketStart.Add(-2 * time.Hour) // same wall clock in UTC+2
			shifted[i] = r
		}
		d, gate := ComputeDay(local, shifted, loc)
		require.True(t, gate.Eligible)
		assert.Equal(t, "15:00", d.PeakHour)
	})
}

func TestPeakValleyTiesPickEarliest(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	hours := []schema.HourAggregate{
		{BucketStart: base, Avg: 5},
		{BucketStart: base.Add(time.Hour), Avg: 9},
		{BucketStart: base.Add(2 * time.Hour), Avg: 9},
		{BucketStart: base.Add(3 * time.Hour), Avg: 5},
	}
	peak, valley := PeakValley(hours)
	assert.Equal(t, base.Add(time.Hour), peak.BucketStart)
	assert.Equal(t, base, valley.BucketStart)
}
