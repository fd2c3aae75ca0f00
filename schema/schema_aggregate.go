package schema

import "time"

// DateLayout is the layout of day bucket keys.
const DateLayout = "2006-01-02"

// MinuteAggregate summarizes the raw readings of one sensor kind in one minute.
type MinuteAggregate struct {
	Kind         SensorKind `json:"kind"`
	BucketStart  time.Time  `json:"minute_timestamp"`
	Avg          float64    `json:"avg_value"`
	Min          float64    `json:"min_value"`
	Max          float64    `json:"max_value"`
	StdDev       float64    `json:"std_dev"`
	Range        float64    `json:"variation_range"`
	ReadingCount int        `json:"reading_count"`
}

// HourAggregate summarizes the minute aggregates of one sensor kind in one hour.
type HourAggregate struct {
	Kind        SensorKind `json:"kind"`
	BucketStart time.Time  `json:"hour_timestamp"`
	Avg         float64    `json:"avg_value"`
	Min         float64    `json:"min_value"`
	Max         float64    `json:"max_value"`
	StdDev      float64    `json:"std_dev"`
	Range       float64    `json:"variation_range"`
	Trend       *float64   `json:"hourly_trend"` // nil when fewer than two minutes exist
	MinuteCount int        `json:"minute_count"`
}

// DayAggregate summarizes the hour aggregates of one sensor kind on one calendar date.
type DayAggregate struct {
	Kind        SensorKind `json:"kind"`
	Date        string     `json:"day_date"` // YYYY-MM-DD in the bucketing location
	Avg         float64    `json:"avg_value"`
	Min         float64    `json:"min_value"`
	Max         float64    `json:"max_value"`
	StdDev      float64    `json:"std_dev"`
	Range       float64    `json:"variation_range"`
	Trend       *float64   `json:"daily_trend"`
	HourCount   int        `json:"hour_count"`
	PeakValue   float64    `json:"peak_hour_avg"`
	ValleyValue float64    `json:"valley_hour_avg"`
	PeakHour    string     `json:"peak_hour"` // HH:MM
	ValleyHour  string     `json:"valley_hour"`
}

// PeakValleyDiff is the spread between the day's warmest and coolest hour averages.
func (d DayAggregate) PeakValleyDiff() float64 {
	return d.PeakValue - d.ValleyValue
}

// Bucket identifies one aggregation unit.
// Start is the bucket's first instant; for days it is local midnight.
type Bucket struct {
	Kind       SensorKind `json:"kind"`
	Resolution Resolution `json:"resolution"`
	Start      time.Time  `json:"start"`
}

// Key is a stable textual identity for logs and dedupe maps.
func (b Bucket) Key() string {
	if b.Resolution == DayResolution {
		return string(b.Kind) + "/" + string(b.Resolution) + "/" + b.Start.Format(DateLayout)
	}
	return string(b.Kind) + "/" + string(b.Resolution) + "/" + b.Start.UTC().Format(time.RFC3339)
}

// In returns b with its start expressed in loc.
func (b Bucket) In(loc *time.Location) Bucket {
	if loc != nil {
		b.Start = b.Start.In(loc)
	}
	return b
}

// Label is the human-readable bucket start used in log fields.
func (b Bucket) Label() string {
	switch b.Resolution {
	case DayResolution:
		return b.Start.Format(DateLayout)
	case HourResolution:
		return b.Start.Format("2006-01-02 15:00")
	default:
		return b.Start.Format("2006-01-02 15:04")
	}
}

// BucketCompleted is emitted after an aggregate row was written.
type BucketCompleted struct {
	Bucket    Bucket    `json:"bucket"`
	Avg       float64   `json:"avg_value"`
	Count     int       `json:"count"`
	WrittenAt time.Time `json:"written_at"`
}
