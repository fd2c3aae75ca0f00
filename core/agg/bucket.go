package agg

import (
	"time"

	"github.com/huangsam/sensorium/schema"
)

// MinuteStart truncates t to its minute. Every real zone offset is a whole number of
// minutes, so this is location independent.
func MinuteStart(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// HourStart is the start of t's hour as seen in loc. It steps back in absolute time so
// the repeated hour of a DST fall-back keeps its own start.
func HourStart(t time.Time, loc *time.Location) time.Time {
	m := MinuteStart(t)
	return m.Add(-time.Duration(m.In(loc).Minute()) * time.Minute).In(loc)
}

// DayStart is local midnight of t's date in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// BucketFor places t into the bucket of the given resolution.
func BucketFor(kind schema.SensorKind, res schema.Resolution, t time.Time, loc *time.Location) schema.Bucket {
	var start time.Time
	switch res {
	case schema.HourResolution:
		start = HourStart(t, loc)
	case schema.DayResolution:
		start = DayStart(t, loc)
	default:
		start = MinuteStart(t).In(loc)
	}
	return schema.Bucket{Kind: kind, Resolution: res, Start: start}
}

// End is the exclusive end of the bucket. Days use the calendar so DST days keep their length.
func End(b schema.Bucket) time.Time {
	switch b.Resolution {
	case schema.HourResolution:
		return b.Start.Add(time.Hour)
	case schema.DayResolution:
		return b.Start.AddDate(0, 0, 1)
	default:
		return b.Start.Add(time.Minute)
	}
}

// Parent is the next-resolution bucket containing b.
func Parent(b schema.Bucket, loc *time.Location) (schema.Bucket, bool) {
	next, ok := b.Resolution.Next()
	if !ok {
		return schema.Bucket{}, false
	}
	return BucketFor(b.Kind, next, b.Start, loc), true
}

// CompletedBuckets lists every bucket of res that starts in [from, now) and has fully
// elapsed by now, oldest first. The bucket containing now is never included.
func CompletedBuckets(kind schema.SensorKind, res schema.Resolution, from, now time.Time, loc *time.Location) []schema.Bucket {
	current := BucketFor(kind, res, now, loc)
	b := BucketFor(kind, res, from, loc)
	buckets := make([]schema.Bucket, 0)
	for b.Start.Before(current.Start) {
		buckets = append(buckets, b)
		b = schema.Bucket{Kind: kind, Resolution: res, Start: End(b)}
	}
	return buckets
}
