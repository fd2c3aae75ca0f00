package agg

import "github.com/huangsam/sensorium/schema"

// EvaluateMinute compares a minute row against its variation limits.
func EvaluateMinute(m schema.MinuteAggregate, table schema.ThresholdTable) []schema.Alert {
	b := schema.Bucket{Kind: m.Kind, Resolution: schema.MinuteResolution, Start: m.BucketStart}
	return evaluate(b, m.Range, m.StdDev, 0, table)
}

// EvaluateHour compares an hour row against its variation limits.
func EvaluateHour(h schema.HourAggregate, table schema.ThresholdTable) []schema.Alert {
	b := schema.Bucket{Kind: h.Kind, Resolution: schema.HourResolution, Start: h.BucketStart}
	return evaluate(b, h.Range, h.StdDev, 0, table)
}

// EvaluateDay compares a day row against its variation and peak-valley limits.
func EvaluateDay(b schema.Bucket, d schema.DayAggregate, table schema.ThresholdTable) []schema.Alert {
	return evaluate(b, d.Range, d.StdDev, d.PeakValleyDiff(), table)
}

func evaluate(b schema.Bucket, rng, std, peakValley float64, table schema.ThresholdTable) []schema.Alert {
	limit, ok := table.Lookup(b.Resolution, b.Kind)
	if !ok {
		return nil
	}
	level := schema.AlertWarn
	alerts := make([]schema.Alert, 0)
	if limit.MaxRange > 0 && rng > limit.MaxRange {
		alerts = append(alerts, schema.Alert{Bucket: b, Metric: "range", Value: rng, Threshold: limit.MaxRange, Level: level})
	}
	if limit.MaxStdDev > 0 && std > limit.MaxStdDev {
		alerts = append(alerts, schema.Alert{Bucket: b, Metric: "std_dev", Value: std, Threshold: limit.MaxStdDev, Level: level})
	}
	if limit.MaxPeakValleyDiff > 0 && peakValley > limit.MaxPeakValleyDiff {
		alerts = append(alerts, schema.Alert{Bucket: b, Metric: "peak_valley_diff", Value: Round(peakValley, ValuePlaces), Threshold: limit.MaxPeakValleyDiff, Level: level})
	}
	return alerts
}

// EvaluateReading checks a raw reading against its ideal band.
func EvaluateReading(r schema.RawReading, bands map[schema.SensorKind]schema.Band) (schema.Alert, bool) {
	band, ok := bands[r.Kind]
	if !ok || band.Contains(r.Value) {
		return schema.Alert{}, false
	}
	threshold := band.High
	if r.Value < band.Low {
		threshold = band.Low
	}
	return schema.Alert{
		Bucket:    schema.Bucket{Kind: r.Kind, Resolution: schema.RawResolution, Start: r.Timestamp},
		Metric:    "value",
		Value:     r.Value,
		Threshold: threshold,
		Level:     band.Level,
	}, true
}
