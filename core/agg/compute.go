package agg

import (
	"sort"
	"time"

	"github.com/huangsam/sensorium/schema"
)

// ComputeMinute gates and summarizes the raw readings of one minute bucket.
// The aggregate is only meaningful when the returned gate is eligible.
func ComputeMinute(b schema.Bucket, readings []schema.RawReading) (schema.MinuteAggregate, GateResult) {
	gate := CheckMinute(len(readings))
	if !gate.Eligible {
		return schema.MinuteAggregate{}, gate
	}
	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}
	s := Summarize(values)
	return schema.MinuteAggregate{
		Kind:         b.Kind,
		BucketStart:  b.Start.UTC(),
		Avg:          Round(s.Mean, ValuePlaces),
		Min:          Round(s.Min, ValuePlaces),
		Max:          Round(s.Max, ValuePlaces),
		StdDev:       Round(s.StdDev, StdDevPlaces),
		Range:        Round(s.Range, ValuePlaces),
		ReadingCount: s.Count,
	}, gate
}

// ComputeHour gates and summarizes the minute rows of one hour bucket.
// Trend is fitted over the minute averages in chronological order.
func ComputeHour(b schema.Bucket, minutes []schema.MinuteAggregate) (schema.HourAggregate, GateResult) {
	sorted := make([]schema.MinuteAggregate, len(minutes))
	copy(sorted, minutes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BucketStart.Before(sorted[j].BucketStart) })

	starts := make([]time.Time, len(sorted))
	for i, m := range sorted {
		starts[i] = m.BucketStart
	}
	gate := CheckHour(starts)
	if !gate.Eligible {
		return schema.HourAggregate{}, gate
	}

	avgs, mins, maxs := make([]float64, len(sorted)), make([]float64, len(sorted)), make([]float64, len(sorted))
	for i, m := range sorted {
		avgs[i], mins[i], maxs[i] = m.Avg, m.Min, m.Max
	}
	s := SummarizeNested(avgs, mins, maxs)
	return schema.HourAggregate{
		Kind:        b.Kind,
		BucketStart: b.Start.UTC(),
		Avg:         Round(s.Mean, ValuePlaces),
		Min:         Round(s.Min, ValuePlaces),
		Max:         Round(s.Max, ValuePlaces),
		StdDev:      Round(s.StdDev, StdDevPlaces),
		Range:       Round(s.Range, ValuePlaces),
		Trend:       roundedTrend(avgs),
		MinuteCount: s.Count,
	}, gate
}

// ComputeDay gates and summarizes the hour rows of one day bucket, including the
// peak and valley hours by average. Hour labels are rendered in loc.
func ComputeDay(b schema.Bucket, hours []schema.HourAggregate, loc *time.Location) (schema.DayAggregate, GateResult) {
	sorted := make([]schema.HourAggregate, len(hours))
	copy(sorted, hours)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BucketStart.Before(sorted[j].BucketStart) })

	starts := make([]time.Time, len(sorted))
	for i, h := range sorted {
		starts[i] = h.BucketStart
	}
	gate := CheckDay(starts)
	if !gate.Eligible {
		return schema.DayAggregate{}, gate
	}

	avgs, mins, maxs := make([]float64, len(sorted)), make([]float64, len(sorted)), make([]float64, len(sorted))
	for i, h := range sorted {
		avgs[i], mins[i], maxs[i] = h.Avg, h.Min, h.Max
	}
	s := SummarizeNested(avgs, mins, maxs)
	peak, valley := PeakValley(sorted)

	return schema.DayAggregate{
		Kind:        b.Kind,
		Date:        b.Start.Format(schema.DateLayout),
		Avg:         Round(s.Mean, ValuePlaces),
		Min:         Round(s.Min, ValuePlaces),
		Max:         Round(s.Max, ValuePlaces),
		StdDev:      Round(s.StdDev, StdDevPlaces),
		Range:       Round(s.Range, ValuePlaces),
		Trend:       roundedTrend(avgs),
		HourCount:   s.Count,
		PeakValue:   Round(peak.Avg, ValuePlaces),
		ValleyValue: Round(valley.Avg, ValuePlaces),
		PeakHour:    peak.BucketStart.In(loc).Format("15:04"),
		ValleyHour:  valley.BucketStart.In(loc).Format("15:04"),
	}, gate
}

// PeakValley returns the hours with the highest and lowest average.
// Ties resolve to the earliest hour. hours must be non-empty and sorted.
func PeakValley(hours []schema.HourAggregate) (peak, valley schema.HourAggregate) {
	peak, valley = hours[0], hours[0]
	for _, h := range hours[1:] {
		if h.Avg > peak.Avg {
			peak = h
		}
		if h.Avg < valley.Avg {
			valley = h
		}
	}
	return peak, valley
}

func roundedTrend(values []float64) *float64 {
	slope, ok := TrendSlope(values)
	if !ok {
		return nil
	}
	r := Round(slope, TrendPlaces)
	return &r
}
