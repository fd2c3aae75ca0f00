package agg

import (
	"math"
	"testing"
	"time"

	"github.com/huangsam/sensorium/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testThresholds = schema.ThresholdTable{
	schema.MinuteResolution: {
		schema.Temperature: {MaxRange: 3.0, MaxStdDev: 1.5},
	},
	schema.HourResolution: {
		schema.Temperature: {MaxRange: 5.0, MaxStdDev: 2.0},
	},
	schema.DayResolution: {
		schema.Temperature: {MaxRange: 8.0, MaxStdDev: 3.0, MaxPeakValleyDiff: 6.0},
	},
}

func TestEvaluateMinute(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)

	calm := schema.MinuteAggregate{Kind: schema.Temperature, BucketStart: ts, Range: 3.0, StdDev: 1.5}
	assert.Empty(t, EvaluateMinute(calm, testThresholds), "limits are exclusive")

	noisy := schema.MinuteAggregate{Kind: schema.Temperature, BucketStart: ts, Range: 3.2, StdDev: 1.6}
	alerts := EvaluateMinute(noisy, testThresholds)
	require.Len(t, alerts, 2)
	assert.Equal(t, "range", alerts[0].Metric)
	assert.Equal(t, 3.0, alerts[0].Threshold)
	assert.Equal(t, "std_dev", alerts[1].Metric)
	assert.Equal(t, schema.AlertWarn, alerts[1].Level)

	unknown := schema.MinuteAggregate{Kind: schema.TVOC, BucketStart: ts, Range: 1000}
	assert.Empty(t, EvaluateMinute(unknown, testThresholds))
}

func TestEvaluateHour(t *testing.T) {
	h := schema.HourAggregate{Kind: schema.Temperature, Range: 5.5, StdDev: 1.0}
	alerts := EvaluateHour(h, testThresholds)
	require.Len(t, alerts, 1)
	assert.Equal(t, schema.HourResolution, alerts[0].Bucket.Resolution)
}

func TestEvaluateDay(t *testing.T) {
	b := schema.Bucket{Kind: schema.Temperature, Resolution: schema.DayResolution, Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	d := schema.DayAggregate{Kind: schema.Temperature, Range: 7, StdDev: 2, PeakValue: 26.75, ValleyValue: 17.25}
	alerts := EvaluateDay(b, d, testThresholds)
	require.Len(t, alerts, 1)
	assert.Equal(t, "peak_valley_diff", alerts[0].Metric)
	assert.Equal(t, 9.5, alerts[0].Value)
}

func TestEvaluateReading(t *testing.T) {
	bands := map[schema.SensorKind]schema.Band{
		schema.Temperature: {Low: 18, High: 24, Unit: "°C", Level: schema.AlertWarn},
		schema.ECO2:        schema.Above(1000, "ppm"),
		schema.Pressure:    {Low: 963, High: 1063, Unit: "hPa", Level: schema.AlertInfo},
	}
	ts := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)

	_, ok := EvaluateReading(schema.RawReading{Kind: schema.Temperature, Value: 21, Timestamp: ts}, bands)
	assert.False(t, ok)

	alert, ok := EvaluateReading(schema.RawReading{Kind: schema.Temperature, Value: 16.5, Timestamp: ts}, bands)
	require.True(t, ok)
	assert.Equal(t, 18.0, alert.Threshold)

	alert, ok = EvaluateReading(schema.RawReading{Kind: schema.ECO2, Value: 1200, Timestamp: ts}, bands)
	require.True(t, ok)
	assert.Equal(t, 1000.0, alert.Threshold)
	assert.True(t, math.IsInf(bands[schema.ECO2].Low, -1))

	alert, ok = EvaluateReading(schema.RawReading{Kind: schema.Pressure, Value: 1070, Timestamp: ts}, bands)
	require.True(t, ok)
	assert.Equal(t, schema.AlertInfo, alert.Level)

	_, ok = EvaluateReading(schema.RawReading{Kind: schema.Noise, Value: 99, Timestamp: ts}, bands)
	assert.False(t, ok, "kinds without a band never alert")
}
